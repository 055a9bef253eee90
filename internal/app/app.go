// Package app builds and runs the service: the periodic crawl pipeline and
// the retrieval HTTP API sharing one vector index.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/stylistiq/fashionbot/internal/api"
	"github.com/stylistiq/fashionbot/internal/browser"
	"github.com/stylistiq/fashionbot/internal/config"
	"github.com/stylistiq/fashionbot/internal/discovery"
	"github.com/stylistiq/fashionbot/internal/extract"
	"github.com/stylistiq/fashionbot/internal/fetch"
	"github.com/stylistiq/fashionbot/internal/gemini"
	"github.com/stylistiq/fashionbot/internal/index"
	"github.com/stylistiq/fashionbot/internal/logging"
	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/publish"
	"github.com/stylistiq/fashionbot/internal/retrieval"
	"github.com/stylistiq/fashionbot/internal/session"
	"github.com/stylistiq/fashionbot/internal/snapshot"
	"github.com/stylistiq/fashionbot/internal/store/file"
	"github.com/stylistiq/fashionbot/internal/vector/memory"
	"github.com/stylistiq/fashionbot/internal/vector/qdrant"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	browser   *browser.Chromedp
	publisher publish.Publisher
	status    *pipeline.StatusHolder
	index     pipeline.VectorIndex

	session   *session.Session
	scheduler *session.Scheduler
	apiServer *api.Server
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := &App{cfg: cfg, logger: logger, status: pipeline.NewStatusHolder()}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("vector_provider", cfg.Vector.Provider),
	)

	urlStore := file.NewURLStore(cfg.Store.DomainsFile, cfg.Store.ScrapedFile, logger.Named("store"))
	engines := file.LoadEngines(cfg.Discovery.EnginesFile, logger.Named("store"))

	a.browser, err = browser.New(browser.Config{
		UserAgent:  cfg.Crawl.UserAgent,
		NavTimeout: cfg.NavTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("browser init failed: %w", err)
	}
	prober := fetch.New(fetch.Config{
		UserAgent: cfg.Crawl.UserAgent,
		Timeout:   cfg.NavTimeout(),
	})

	if err := a.setupIndex(ctx); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}
	embedder := gemini.NewEmbedder(client, cfg.Gemini.EmbedModel)
	generator := gemini.NewGenerator(client, cfg.Gemini.ChatModel)

	snapshots, err := a.setupSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	a.publisher, err = a.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	clock := pipeline.SystemClock{}
	disc := discovery.New(discovery.Config{
		Phrase:          cfg.Discovery.Phrase,
		Engines:         engines,
		ExcludedDomains: cfg.Discovery.ExcludedDomains,
		PagesPerEngine:  cfg.Discovery.PagesPerEngine,
	}, a.browser, urlStore, clock, logger.Named("discovery"))

	extractor := extract.New(extract.Config{
		ProductMarker: cfg.Crawl.ProductMarker,
		BodyWait:      cfg.NavTimeout(),
		MaxRetries:    cfg.Crawl.MaxRetries,
		RetryDelay:    cfg.RetryDelay(),
	}, a.browser, prober, clock, logger.Named("extract"))

	indexer := index.New(a.index, embedder, a.publisher, logger.Named("index"))

	a.session = session.New(session.Config{Budget: cfg.Budget()},
		disc, extractor, indexer, urlStore, snapshots, a.publisher,
		a.status, clock, logger.Named("session"))
	a.scheduler = session.NewScheduler(cfg.Interval(), a.session, logger.Named("scheduler"))

	svc := retrieval.New(retrieval.Config{TopK: cfg.Retrieval.TopK},
		a.index, embedder, generator, a.status, logger.Named("retrieval"))
	a.apiServer = api.NewServer(svc, a.index, a.status, logger.Named("api"))

	return a, nil
}

func (a *App) setupIndex(ctx context.Context) error {
	switch a.cfg.Vector.Provider {
	case "qdrant":
		a.logger.Info("using qdrant vector index",
			zap.String("url", a.cfg.Vector.URL),
			zap.String("collection", a.cfg.Vector.Collection),
		)
		idx, err := qdrant.New(ctx, qdrant.Config{
			URL:        a.cfg.Vector.URL,
			APIKey:     a.cfg.Vector.APIKey,
			Collection: a.cfg.Vector.Collection,
			Dimension:  a.cfg.Vector.Dimension,
		})
		if err != nil {
			return fmt.Errorf("qdrant init failed: %w", err)
		}
		a.index = idx
	default:
		a.logger.Info("using in-memory vector index")
		a.index = memory.New()
	}
	return nil
}

func (a *App) setupSnapshots(ctx context.Context) (snapshot.Provider, error) {
	switch a.cfg.Snapshot.Provider {
	case "gcs":
		a.logger.Info("archiving page snapshots to GCS",
			zap.String("bucket", a.cfg.Snapshot.GCSBucket))
		provider, err := snapshot.NewGCS(ctx, a.cfg.Snapshot.GCSBucket, a.cfg.Snapshot.Prefix)
		if err != nil {
			return nil, fmt.Errorf("gcs snapshot init failed: %w", err)
		}
		return provider, nil
	case "fs":
		a.logger.Info("archiving page snapshots to disk",
			zap.String("dir", a.cfg.Snapshot.Dir))
		return &snapshot.FS{Dir: a.cfg.Snapshot.Dir, Prefix: a.cfg.Snapshot.Prefix}, nil
	default:
		return snapshot.Noop{}, nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (publish.Publisher, error) {
	if a.cfg.Publish.Provider != "pubsub" {
		a.logger.Info("event publishing disabled")
		return publish.Noop{}, nil
	}
	a.logger.Info("publishing crawl events to Pub/Sub",
		zap.String("project", a.cfg.Publish.ProjectID),
		zap.String("topic", a.cfg.Publish.TopicID),
	)
	pub, err := publish.NewPubSub(ctx, a.cfg.Publish.ProjectID, a.cfg.Publish.TopicID)
	if err != nil {
		return nil, fmt.Errorf("pubsub init failed: %w", err)
	}
	return pub, nil
}

// Run starts the scheduler and the HTTP server and blocks until the context
// is canceled or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.scheduler.Stop()
	a.Close()
	return nil
}

// RunSession executes a single crawl session and returns its report. Used
// by the one-shot crawl command.
func (a *App) RunSession(ctx context.Context) pipeline.SessionReport {
	return a.session.Run(ctx)
}

// Close releases browser, publisher and logger resources.
func (a *App) Close() {
	a.browser.Close()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
}

// Logger exposes the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}
