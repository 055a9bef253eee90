package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

// Runner is the unit of work the scheduler drives.
type Runner interface {
	Run(ctx context.Context) pipeline.SessionReport
}

// Scheduler runs sessions strictly sequentially on a single background
// worker: once immediately at start, then on a fixed interval. A tick that
// fires while a session is still active is dropped, never overlapped.
type Scheduler struct {
	interval time.Duration
	runner   Runner
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewScheduler builds a Scheduler.
func NewScheduler(interval time.Duration, runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		interval: interval,
		runner:   runner,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background worker. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop cancels the worker and blocks until the in-flight session, if any,
// returns.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		<-s.done
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("starting crawl session")
	report := s.runner.Run(ctx)
	s.logger.Info("crawl session report",
		zap.Int("products_indexed", report.ProductsIndexed),
		zap.Bool("budget_exhausted", report.BudgetExhausted),
	)
}
