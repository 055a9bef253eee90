package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Config controls the extractor.
type Config struct {
	// ProductMarker selects candidate links whose path contains it.
	ProductMarker string
	BodyWait      time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// Page couples an extracted record with the markup it was extracted from,
// so the session can archive the raw page.
type Page struct {
	Record pipeline.ProductRecord
	HTML   string
}

// Extractor crawls a domain's product pages and extracts structured records.
type Extractor struct {
	cfg     Config
	browser pipeline.Browser
	prober  pipeline.LinkProber
	clock   pipeline.Clock
	rules   []Rule
	logger  *zap.Logger
	sleep   func(time.Duration)
}

// New builds an Extractor. prober may be nil, in which case link enumeration
// always uses the headless browser.
func New(cfg Config, browser pipeline.Browser, prober pipeline.LinkProber, clock pipeline.Clock, logger *zap.Logger) *Extractor {
	if cfg.ProductMarker == "" {
		cfg.ProductMarker = "product"
	}
	if cfg.BodyWait <= 0 {
		cfg.BodyWait = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if clock == nil {
		clock = pipeline.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		cfg:     cfg,
		browser: browser,
		prober:  prober,
		clock:   clock,
		rules:   DefaultRules(),
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// ProductLinks enumerates candidate product links on the domain's home
// page: a cheap HTTP probe first, escalating to the headless browser when
// the probe fails or finds nothing. Links are deduplicated within the page.
func (e *Extractor) ProductLinks(ctx context.Context, domain string) ([]string, error) {
	if e.prober != nil {
		links, err := e.prober.Links(ctx, domain)
		if err == nil {
			if candidates := e.filterProductLinks(domain, links); len(candidates) > 0 {
				return candidates, nil
			}
		} else {
			e.logger.Debug("link probe failed, escalating to headless",
				zap.String("domain", domain), zap.Error(err))
		}
	}

	if err := e.browser.Navigate(ctx, domain); err != nil {
		return nil, err
	}
	if err := e.browser.WaitVisible(ctx, "a", e.cfg.BodyWait); err != nil {
		return nil, err
	}
	links, err := e.browser.Links(ctx)
	if err != nil {
		return nil, err
	}
	return e.filterProductLinks(domain, links), nil
}

// Extract processes candidates until the list is exhausted or the session
// deadline passes, returning the extracted pages and per-candidate
// outcomes. The deadline is checked cooperatively before each candidate;
// an in-flight page load is never preempted, it only carries its own
// bounded wait.
func (e *Extractor) Extract(ctx context.Context, candidates []string, deadline time.Time) ([]Page, []pipeline.Outcome) {
	var (
		pages    []Page
		outcomes []pipeline.Outcome
	)
	for _, candidate := range candidates {
		if !deadline.IsZero() && e.clock.Now().After(deadline) {
			e.logger.Info("crawl budget exhausted, stopping extraction",
				zap.Int("remaining", len(candidates)-len(outcomes)))
			outcomes = append(outcomes, pipeline.Skipped(candidate, pipeline.SkipBudgetExhausted))
			break
		}
		if ctx.Err() != nil {
			break
		}

		page, err := e.extractOne(ctx, candidate)
		if err != nil {
			e.logger.Warn("product skipped after retries",
				zap.String("url", candidate), zap.Error(err))
			metrics.ObservePageFetch("failed")
			metrics.ObserveProduct(string(pipeline.OutcomeFailed), pipeline.FailRetriesExhausted)
			outcomes = append(outcomes, pipeline.Failed(candidate, pipeline.FailRetriesExhausted))
			continue
		}
		metrics.ObservePageFetch("ok")
		pages = append(pages, page)
		outcomes = append(outcomes, pipeline.Outcome{Kind: pipeline.OutcomeExtracted, URL: candidate})
	}
	return pages, outcomes
}

// extractOne navigates to the candidate and extracts fields, retrying
// transient navigation or DOM failures up to MaxRetries with a fixed delay.
func (e *Extractor) extractOne(ctx context.Context, url string) (Page, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			e.sleep(e.cfg.RetryDelay)
		}
		page, err := e.attempt(ctx, url)
		if err == nil {
			return page, nil
		}
		lastErr = err
		e.logger.Debug("extraction attempt failed",
			zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return Page{}, fmt.Errorf("extract %s: %w", url, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, url string) (Page, error) {
	if err := e.browser.Navigate(ctx, url); err != nil {
		return Page{}, err
	}
	if err := e.browser.WaitVisible(ctx, "body", e.cfg.BodyWait); err != nil {
		return Page{}, err
	}
	html, err := e.browser.HTML(ctx)
	if err != nil {
		return Page{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}
	return Page{Record: Fields(doc, e.rules, url), HTML: html}, nil
}

// filterProductLinks keeps same-host links whose path carries the product
// marker, deduplicated, in first-seen order.
func (e *Extractor) filterProductLinks(domain string, links []string) []string {
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, link := range links {
		if !strings.Contains(strings.ToLower(link), e.cfg.ProductMarker) {
			continue
		}
		if !strings.HasPrefix(link, "http") {
			link = strings.TrimSuffix(domain, "/") + "/" + strings.TrimPrefix(link, "/")
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
