// Package pipeline defines the domain types and collaborator interfaces
// shared by the discovery, extraction, indexing and retrieval components.
package pipeline

import (
	"sync/atomic"
	"time"
)

// NotFound is the sentinel stored for any product field no heuristic rule
// could resolve. A record whose description is NotFound is never embedded.
const NotFound = "not found"

// CandidateDomain is a discovered website root believed to belong to a
// fashion brand, keyed by scheme://host.
type CandidateDomain struct {
	SchemeAndHost string    `json:"scheme_and_host"`
	DiscoveredVia string    `json:"discovered_via"`
	FirstSeen     time.Time `json:"first_seen"`
}

// ScrapeRecord marks a domain as processed by a crawl session.
type ScrapeRecord struct {
	Domain      string    `json:"domain"`
	LastScraped time.Time `json:"last_scraped"`
}

// ProductRecord is the structured extraction of one product page. Embedding
// is nil until the indexer enriches the record; only records with a non-nil
// embedding are persisted to the vector index.
type ProductRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	SourceURL   string    `json:"source_url"`
	Embedding   []float32 `json:"-"`
}

// Metadata returns the payload stored alongside the embedding.
func (p ProductRecord) Metadata() map[string]string {
	return map[string]string{
		"url":         p.SourceURL,
		"name":        p.Name,
		"price":       p.Price,
		"description": p.Description,
		"image":       p.ImageURL,
	}
}

// SessionStatus identifies the phase a crawl session is in.
type SessionStatus string

// Session phases. A session moves Idle -> Discovering -> Scraping ->
// Indexing -> Idle; budget expiry forces an early jump back to Idle.
const (
	StatusIdle        SessionStatus = "idle"
	StatusDiscovering SessionStatus = "discovering"
	StatusScraping    SessionStatus = "scraping"
	StatusIndexing    SessionStatus = "indexing"
)

// StatusHolder is an atomically updated session status readable by the
// query path without taking any lock shared with the writer.
type StatusHolder struct {
	v atomic.Value
}

// NewStatusHolder returns a holder starting at StatusIdle.
func NewStatusHolder() *StatusHolder {
	h := &StatusHolder{}
	h.v.Store(StatusIdle)
	return h
}

// Set records the current session phase.
func (h *StatusHolder) Set(s SessionStatus) {
	h.v.Store(s)
}

// Get returns the current session phase.
func (h *StatusHolder) Get() SessionStatus {
	return h.v.Load().(SessionStatus)
}

// Active reports whether a session is in any non-idle phase.
func (h *StatusHolder) Active() bool {
	return h.Get() != StatusIdle
}
