// Package browser drives a headless Chrome tab via chromedp. It is the
// page-automation collaborator behind discovery and extraction; one instance
// serves one crawl session at a time, strictly synchronously.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Config controls the headless browser.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
}

// Chromedp implements pipeline.Browser over a single headless tab.
type Chromedp struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
}

var _ pipeline.Browser = (*Chromedp)(nil)

// New launches a headless Chrome and opens the tab all subsequent calls
// operate on.
func New(cfg Config) (*Chromedp, error) {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &Chromedp{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		tab:         tabCtx,
		tabCancel:   tabCancel,
	}
	if err := b.setup(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *Chromedp) setup() error {
	ctx, cancel := context.WithTimeout(b.tab, b.cfg.NavTimeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	}))
}

// Navigate loads the URL in the tab, bounded by the configured nav timeout.
func (b *Chromedp) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, b.cfg.NavTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitVisible blocks until the selector resolves or the timeout expires.
func (b *Chromedp) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := b.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Links collects the href of every anchor on the current page.
func (b *Chromedp) Links(ctx context.Context) ([]string, error) {
	var hrefs []string
	script := `Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`
	if err := b.run(ctx, b.cfg.NavTimeout, chromedp.Evaluate(script, &hrefs)); err != nil {
		return nil, fmt.Errorf("collect links: %w", err)
	}
	return hrefs, nil
}

// Click activates the first visible element matching the selector.
func (b *Chromedp) Click(ctx context.Context, selector string) error {
	if err := b.run(ctx, b.cfg.NavTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// HTML returns the rendered markup of the current page.
func (b *Chromedp) HTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, b.cfg.NavTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("capture html: %w", err)
	}
	return html, nil
}

// Close tears down the tab and the browser process.
func (b *Chromedp) Close() {
	b.tabCancel()
	b.allocCancel()
}

// run executes actions against the tab with a bounded wait. The caller's
// context is honored cooperatively: a canceled caller aborts before the
// browser is touched, and cancellation propagates into the CDP session.
func (b *Chromedp) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = b.cfg.NavTimeout
	}
	runCtx, cancel := context.WithTimeout(b.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}
