package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// fakeBrowser serves scripted result pages. Click advances to the next page
// until the script runs out.
type fakeBrowser struct {
	mu       sync.Mutex
	pages    [][]string
	current  int
	navErr   error
	navCount int
}

func (b *fakeBrowser) Navigate(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navCount++
	b.current = 0
	return b.navErr
}

func (b *fakeBrowser) WaitVisible(_ context.Context, _ string, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current >= len(b.pages) {
		return errors.New("wait timeout")
	}
	return nil
}

func (b *fakeBrowser) Links(_ context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current >= len(b.pages) {
		return nil, nil
	}
	return b.pages[b.current], nil
}

func (b *fakeBrowser) Click(_ context.Context, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current+1 >= len(b.pages) {
		return errors.New("no next control")
	}
	b.current++
	return nil
}

func (b *fakeBrowser) HTML(_ context.Context) (string, error) { return "", nil }
func (b *fakeBrowser) Close()                                 {}

type fakeStore struct {
	mu      sync.Mutex
	domains []pipeline.CandidateDomain
	writes  int
}

func (s *fakeStore) LoadDomains() ([]pipeline.CandidateDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.CandidateDomain(nil), s.domains...), nil
}

func (s *fakeStore) OverwriteDomains(domains []pipeline.CandidateDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains = append([]pipeline.CandidateDomain(nil), domains...)
	s.writes++
	return nil
}

func (s *fakeStore) LoadScraped() (map[string]pipeline.ScrapeRecord, error) { return nil, nil }
func (s *fakeStore) AppendScraped(pipeline.ScrapeRecord) error              { return nil }

func newDiscovery(browser pipeline.Browser, store pipeline.URLStore) *Discovery {
	metrics.Init()
	return New(Config{
		Phrase:          "pakistani women clothing brands",
		Engines:         []string{"https://www.bing.com/search?q="},
		ExcludedDomains: []string{"facebook.com"},
		PagesPerEngine:  5,
	}, browser, store, pipeline.SystemClock{}, zap.NewNop())
}

func TestRunCollectsUniqueNonExcludedHosts(t *testing.T) {
	browser := &fakeBrowser{pages: [][]string{
		{
			"https://www.khaadi.com/collections/new",
			"https://generation.com.pk/",
			"https://www.facebook.com/khaadi",
			"https://www.khaadi.com/pages/about",
			"not-a-url",
		},
		{
			"https://myrangja.com/collections/new-arrivals",
			"https://pk.sapphireonline.pk/",
			"https://generation.com.pk/sale",
			"https://www.facebook.com/sapphire",
			"https://limelight.pk/",
		},
	}}
	store := &fakeStore{}
	d := newDiscovery(browser, store)

	domains, err := d.Run(context.Background())
	require.NoError(t, err)

	hosts := make([]string, 0, len(domains))
	for _, dom := range domains {
		hosts = append(hosts, dom.SchemeAndHost)
	}
	require.ElementsMatch(t, []string{
		"https://www.khaadi.com",
		"https://generation.com.pk",
		"https://myrangja.com",
		"https://pk.sapphireonline.pk",
		"https://limelight.pk",
	}, hosts)

	// Nothing excluded ever enters the set.
	for _, h := range hosts {
		require.False(t, pipeline.Excluded(h, []string{"facebook.com"}))
	}

	// The full set is written to the store.
	require.Equal(t, 1, store.writes)
	stored, err := store.LoadDomains()
	require.NoError(t, err)
	require.Len(t, stored, 5)
}

func TestRunIsIdempotentAgainstStableResults(t *testing.T) {
	pages := [][]string{{
		"https://www.khaadi.com/",
		"https://generation.com.pk/",
	}}
	browser := &fakeBrowser{pages: pages}
	store := &fakeStore{}
	d := newDiscovery(browser, store)

	first, err := d.Run(context.Background())
	require.NoError(t, err)

	browser.mu.Lock()
	browser.current = 0
	browser.mu.Unlock()

	second, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEngineFailureDoesNotAbortDiscovery(t *testing.T) {
	metrics.Init()
	browser := &fakeBrowser{navErr: errors.New("dns failure")}
	store := &fakeStore{}
	d := New(Config{
		Phrase:         "pakistani women clothing brands",
		Engines:        []string{"https://a.example/?q=", "https://b.example/?q="},
		PagesPerEngine: 2,
	}, browser, store, pipeline.SystemClock{}, zap.NewNop())

	domains, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, domains)
	require.Equal(t, 2, browser.navCount)
	require.Equal(t, 1, store.writes)
}

func TestSeedsFromStore(t *testing.T) {
	metrics.Init()
	store := &fakeStore{domains: []pipeline.CandidateDomain{{SchemeAndHost: "https://www.khaadi.com"}}}
	d := New(Config{Phrase: "x", PagesPerEngine: 1}, &fakeBrowser{}, store, pipeline.SystemClock{}, zap.NewNop())
	require.Len(t, d.Domains(), 1)
}
