// Package discovery finds candidate brand domains by paginating configured
// search engines and harvesting result links.
package discovery

import (
	"context"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// nextSelector locates the pagination control on a result page.
const nextSelector = `a[aria-label='Next']`

// linkWait bounds the wait for the first anchor on a result page.
const linkWait = 10 * time.Second

// Config controls a discovery pass.
type Config struct {
	Phrase          string
	Engines         []string
	ExcludedDomains []string
	PagesPerEngine  int
}

// Discovery accumulates candidate domains across passes. The in-memory set
// is monotonic for the life of the process; the store file is overwritten
// with the full set at the end of every pass.
type Discovery struct {
	cfg     Config
	browser pipeline.Browser
	store   pipeline.URLStore
	clock   pipeline.Clock
	logger  *zap.Logger
	seen    map[string]pipeline.CandidateDomain
}

// New builds a Discovery seeded with the domains already in the store.
func New(cfg Config, browser pipeline.Browser, store pipeline.URLStore, clock pipeline.Clock, logger *zap.Logger) *Discovery {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	d := &Discovery{
		cfg:     cfg,
		browser: browser,
		store:   store,
		clock:   clock,
		logger:  logger,
		seen:    make(map[string]pipeline.CandidateDomain),
	}
	if stored, err := store.LoadDomains(); err != nil {
		logger.Warn("loading stored domains failed", zap.Error(err))
	} else {
		for _, dom := range stored {
			d.seen[dom.SchemeAndHost] = dom
		}
	}
	return d
}

// Run executes one discovery pass over every configured engine and
// overwrites the domain store with the accumulated set. Engine-level
// failures are logged and isolated; Run itself only fails when the final
// store write does.
func (d *Discovery) Run(ctx context.Context) ([]pipeline.CandidateDomain, error) {
	for _, engine := range d.cfg.Engines {
		if ctx.Err() != nil {
			break
		}
		d.runEngine(ctx, engine)
	}

	domains := d.Domains()
	if err := d.store.OverwriteDomains(domains); err != nil {
		return domains, err
	}
	return domains, nil
}

// Domains returns the accumulated candidate set, sorted by domain.
func (d *Discovery) Domains() []pipeline.CandidateDomain {
	out := make([]pipeline.CandidateDomain, 0, len(d.seen))
	for _, dom := range d.seen {
		out = append(out, dom)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchemeAndHost < out[j].SchemeAndHost })
	return out
}

func (d *Discovery) runEngine(ctx context.Context, engine string) {
	queryURL := engine + url.QueryEscape(d.cfg.Phrase)
	logger := d.logger.With(zap.String("engine", engine))
	logger.Info("querying search engine", zap.String("url", queryURL))

	if err := d.browser.Navigate(ctx, queryURL); err != nil {
		logger.Warn("engine navigation failed", zap.Error(err))
		return
	}

	for page := 1; page <= d.cfg.PagesPerEngine; page++ {
		if err := d.browser.WaitVisible(ctx, "a", linkWait); err != nil {
			logger.Warn("result page yielded no links", zap.Int("page", page), zap.Error(err))
			return
		}
		links, err := d.browser.Links(ctx)
		if err != nil {
			logger.Warn("link collection failed", zap.Int("page", page), zap.Error(err))
			return
		}
		admitted := d.admit(engine, links)
		logger.Debug("result page processed",
			zap.Int("page", page),
			zap.Int("links", len(links)),
			zap.Int("admitted", admitted),
		)

		if page == d.cfg.PagesPerEngine {
			break
		}
		// No pagination control means this engine is done, not an error.
		if err := d.browser.Click(ctx, nextSelector); err != nil {
			logger.Debug("no next-page control", zap.Int("page", page))
			return
		}
	}
}

// admit filters raw links down to new, non-excluded scheme://host candidates
// and adds them to the set. Exclusion is checked before insertion, never
// after; once added a domain is never removed within the process.
func (d *Discovery) admit(engine string, links []string) int {
	added := 0
	for _, link := range links {
		if !pipeline.URLPattern.MatchString(link) {
			continue
		}
		domain, err := pipeline.NormalizeDomain(link)
		if err != nil {
			continue
		}
		if _, ok := d.seen[domain]; ok {
			continue
		}
		if pipeline.Excluded(domain, d.cfg.ExcludedDomains) {
			continue
		}
		d.seen[domain] = pipeline.CandidateDomain{
			SchemeAndHost: domain,
			DiscoveredVia: engine,
			FirstSeen:     d.clock.Now(),
		}
		metrics.ObserveDomainDiscovered(engine)
		d.logger.Info("candidate domain found", zap.String("domain", domain))
		added++
	}
	return added
}
