package pipeline

import (
	"context"
	"time"
)

// Browser is the page-automation collaborator. Implementations drive a
// single headless tab; every call blocks until the DOM condition resolves
// or the bounded wait expires.
type Browser interface {
	// Navigate loads the URL in the current tab.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching the selector is present,
	// or fails once the timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Links returns the href target of every anchor on the current page.
	Links(ctx context.Context) ([]string, error)
	// Click activates the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// HTML returns the rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab and the underlying browser process.
	Close()
}

// Embedder converts free text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces an answer from a prompt plus conversation history.
type Generator interface {
	Complete(ctx context.Context, system, question string, history []Message) (string, error)
}

// Message is one turn of chat history handed to the Generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// VectorIndex is the shared product index. Upsert is the only write path
// and is atomic per id; entries are never deleted.
type VectorIndex interface {
	Get(ctx context.Context, id string) (*ProductRecord, error)
	Upsert(ctx context.Context, rec ProductRecord) error
	Query(ctx context.Context, embedding []float32, k int) ([]ProductRecord, error)
	Count(ctx context.Context) (int, error)
}

// URLStore is the durable file-backed persistence for discovered and
// already-scraped domains.
type URLStore interface {
	LoadDomains() ([]CandidateDomain, error)
	// OverwriteDomains replaces the stored set with the full accumulated
	// candidate set (last-writer-wins per discovery pass).
	OverwriteDomains(domains []CandidateDomain) error
	LoadScraped() (map[string]ScrapeRecord, error)
	// AppendScraped adds one record to the append-only scrape log.
	AppendScraped(rec ScrapeRecord) error
}

// LinkProber enumerates anchors on a page over plain HTTP, without the
// headless browser. Used as the cheap first pass for product-link discovery.
type LinkProber interface {
	Links(ctx context.Context, pageURL string) ([]string, error)
}

// Clock abstracts time for budget accounting and tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }
