// Package session orchestrates the periodic discovery-crawl-index pipeline
// under a global wall-clock budget.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/discovery"
	"github.com/stylistiq/fashionbot/internal/extract"
	"github.com/stylistiq/fashionbot/internal/index"
	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/publish"
	"github.com/stylistiq/fashionbot/internal/snapshot"
)

// Config controls one crawl session.
type Config struct {
	Budget time.Duration
}

// Session runs Discovering -> Scraping -> Indexing -> Idle once per
// invocation. It exclusively owns the candidate and scrape sets during a
// run; the vector index is shared with the read path.
type Session struct {
	cfg       Config
	discovery *discovery.Discovery
	extractor *extract.Extractor
	indexer   *index.Indexer
	store     pipeline.URLStore
	snapshots snapshot.Provider
	publisher publish.Publisher
	status    *pipeline.StatusHolder
	clock     pipeline.Clock
	logger    *zap.Logger
}

// New builds a Session. snapshots and publisher may be nil.
func New(
	cfg Config,
	disc *discovery.Discovery,
	extractor *extract.Extractor,
	indexer *index.Indexer,
	store pipeline.URLStore,
	snapshots snapshot.Provider,
	publisher publish.Publisher,
	status *pipeline.StatusHolder,
	clock pipeline.Clock,
	logger *zap.Logger,
) *Session {
	if snapshots == nil {
		snapshots = snapshot.Noop{}
	}
	if publisher == nil {
		publisher = publish.Noop{}
	}
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:       cfg,
		discovery: disc,
		extractor: extractor,
		indexer:   indexer,
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
		status:    status,
		clock:     clock,
		logger:    logger,
	}
}

// Run executes one full session. Budget exhaustion is a normal early
// return, never an error: whatever was already upserted stays.
func (s *Session) Run(ctx context.Context) pipeline.SessionReport {
	started := s.clock.Now()
	deadline := started.Add(s.cfg.Budget)
	report := pipeline.SessionReport{}

	metrics.SetSessionActive(true)
	defer func() {
		s.status.Set(pipeline.StatusIdle)
		metrics.SetSessionActive(false)
		duration := s.clock.Now().Sub(started)
		metrics.ObserveSession(duration)
		s.logger.Info("crawl session finished",
			zap.Duration("duration", duration),
			zap.Int("domains_discovered", report.DomainsDiscovered),
			zap.Int("domains_crawled", report.DomainsCrawled),
			zap.Int("products_indexed", report.ProductsIndexed),
			zap.Int("products_skipped", report.ProductsSkipped),
			zap.Int("products_failed", report.ProductsFailed),
			zap.Bool("budget_exhausted", report.BudgetExhausted),
		)
	}()

	s.status.Set(pipeline.StatusDiscovering)
	domains, err := s.discovery.Run(ctx)
	if err != nil {
		s.logger.Warn("writing discovered domains failed", zap.Error(err))
	}
	report.DomainsDiscovered = len(domains)

	scraped, err := s.store.LoadScraped()
	if err != nil {
		s.logger.Warn("loading scrape log failed", zap.Error(err))
		scraped = map[string]pipeline.ScrapeRecord{}
	}

	for _, domain := range domains {
		if ctx.Err() != nil {
			return report
		}
		if s.clock.Now().After(deadline) {
			s.logger.Info("crawl budget exhausted before domain",
				zap.String("domain", domain.SchemeAndHost))
			report.BudgetExhausted = true
			break
		}
		if _, done := scraped[domain.SchemeAndHost]; done {
			s.logger.Debug("domain already scraped, skipping",
				zap.String("domain", domain.SchemeAndHost))
			continue
		}
		s.crawlDomain(ctx, domain.SchemeAndHost, deadline, &report)
	}

	if err := s.publisher.Publish(ctx, "session.completed", map[string]any{
		"domains_discovered": report.DomainsDiscovered,
		"domains_crawled":    report.DomainsCrawled,
		"products_indexed":   report.ProductsIndexed,
		"budget_exhausted":   report.BudgetExhausted,
	}); err != nil {
		s.logger.Warn("session event publish failed", zap.Error(err))
	}
	return report
}

// crawlDomain scrapes and indexes one domain. Failures mark the domain
// scraped-with-gaps; the session always proceeds.
func (s *Session) crawlDomain(ctx context.Context, domain string, deadline time.Time, report *pipeline.SessionReport) {
	logger := s.logger.With(zap.String("domain", domain))
	defer func() {
		if err := s.store.AppendScraped(pipeline.ScrapeRecord{
			Domain:      domain,
			LastScraped: s.clock.Now(),
		}); err != nil {
			logger.Warn("appending scrape record failed", zap.Error(err))
		}
		report.DomainsCrawled++
	}()

	s.status.Set(pipeline.StatusScraping)
	links, err := s.extractor.ProductLinks(ctx, domain)
	if err != nil {
		logger.Warn("product link enumeration failed", zap.Error(err))
		return
	}
	logger.Info("product candidates found", zap.Int("candidates", len(links)))

	pages, outcomes := s.extractor.Extract(ctx, links, deadline)
	for _, o := range outcomes {
		if o.Kind != pipeline.OutcomeExtracted {
			report.Count(o)
		}
	}

	s.status.Set(pipeline.StatusIndexing)
	for _, page := range pages {
		outcome := s.indexer.Process(ctx, page.Record)
		report.Count(outcome)
		if outcome.Kind != pipeline.OutcomeIndexed {
			continue
		}
		if uri, err := s.snapshots.Put(ctx, page.Record.SourceURL, page.HTML); err != nil {
			logger.Warn("snapshot archive failed",
				zap.String("url", page.Record.SourceURL), zap.Error(err))
		} else if uri != "" {
			logger.Debug("page snapshot archived", zap.String("uri", uri))
		}
	}
}
