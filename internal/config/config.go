// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Store     StoreConfig     `mapstructure:"store"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Snapshot  SnapshotConfig  `mapstructure:"snapshot"`
	Publish   PublishConfig   `mapstructure:"publish"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DiscoveryConfig governs the search-engine discovery pass.
type DiscoveryConfig struct {
	Phrase          string   `mapstructure:"phrase"`
	ExcludedDomains []string `mapstructure:"excluded_domains"`
	PagesPerEngine  int      `mapstructure:"pages_per_engine"`
	EnginesFile     string   `mapstructure:"engines_file"`
}

// CrawlConfig governs the periodic crawl session.
type CrawlConfig struct {
	IntervalSeconds   int    `mapstructure:"interval_seconds"`
	BudgetSeconds     int    `mapstructure:"budget_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelayMs      int    `mapstructure:"retry_delay_ms"`
	ProductMarker     string `mapstructure:"product_marker"`
}

// StoreConfig sets the file paths backing the URL stores.
type StoreConfig struct {
	DomainsFile string `mapstructure:"domains_file"`
	ScrapedFile string `mapstructure:"scraped_file"`
}

// VectorConfig selects and configures the vector index.
type VectorConfig struct {
	Provider   string `mapstructure:"provider"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

// GeminiConfig names the models used for embedding and generation. The API
// key is read from GEMINI_API_KEY.
type GeminiConfig struct {
	EmbedModel string `mapstructure:"embed_model"`
	ChatModel  string `mapstructure:"chat_model"`
}

// RetrievalConfig controls the read path.
type RetrievalConfig struct {
	TopK int `mapstructure:"top_k"`
}

// SnapshotConfig selects the raw-page archive provider.
type SnapshotConfig struct {
	Provider  string `mapstructure:"provider"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PublishConfig selects the crawl-event publisher.
type PublishConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FASHIONBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("discovery.phrase", "pakistani women clothing brands")
	v.SetDefault("discovery.excluded_domains", []string{
		"bingplaces.com", "youtube.com", "google.com", "bing.com",
		"microsoft.com", "facebook.com", "instagram.com", "twitter.com",
		"yahoo.com", "duckduckgo.com",
	})
	v.SetDefault("discovery.pages_per_engine", 5)
	v.SetDefault("discovery.engines_file", "search_engines.txt")
	v.SetDefault("crawl.interval_seconds", 3600)
	v.SetDefault("crawl.budget_seconds", 120)
	v.SetDefault("crawl.user_agent", "fashionbot/0.1")
	v.SetDefault("crawl.nav_timeout_seconds", 10)
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.retry_delay_ms", 500)
	v.SetDefault("crawl.product_marker", "product")
	v.SetDefault("store.domains_file", "urls.txt")
	v.SetDefault("store.scraped_file", "scraped_urls.txt")
	v.SetDefault("vector.provider", "memory")
	v.SetDefault("vector.collection", "clothing_brands")
	v.SetDefault("vector.dimension", 768)
	v.SetDefault("gemini.embed_model", "gemini-embedding-001")
	v.SetDefault("gemini.chat_model", "gemini-2.5-flash")
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("snapshot.provider", "noop")
	v.SetDefault("snapshot.prefix", "pages")
	v.SetDefault("publish.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Discovery.Phrase == "" {
		return fmt.Errorf("discovery.phrase must be set")
	}
	if c.Discovery.PagesPerEngine <= 0 {
		return fmt.Errorf("discovery.pages_per_engine must be > 0")
	}
	if c.Crawl.IntervalSeconds <= 0 {
		return fmt.Errorf("crawl.interval_seconds must be > 0")
	}
	if c.Crawl.BudgetSeconds <= 0 {
		return fmt.Errorf("crawl.budget_seconds must be > 0")
	}
	if c.Crawl.MaxRetries <= 0 {
		return fmt.Errorf("crawl.max_retries must be > 0")
	}
	switch c.Vector.Provider {
	case "memory":
	case "qdrant":
		if c.Vector.URL == "" {
			return fmt.Errorf("vector.url must be set when vector.provider is qdrant")
		}
	default:
		return fmt.Errorf("unknown vector provider: %s", c.Vector.Provider)
	}
	switch c.Snapshot.Provider {
	case "noop", "fs":
	case "gcs":
		if c.Snapshot.GCSBucket == "" {
			return fmt.Errorf("snapshot.gcs_bucket must be set when snapshot.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown snapshot provider: %s", c.Snapshot.Provider)
	}
	switch c.Publish.Provider {
	case "noop":
	case "pubsub":
		if c.Publish.ProjectID == "" || c.Publish.TopicID == "" {
			return fmt.Errorf("publish.project_id and publish.topic_id must be set when publish.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown publish provider: %s", c.Publish.Provider)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be > 0")
	}
	return nil
}

// Interval returns the scheduler interval as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Crawl.IntervalSeconds) * time.Second
}

// Budget returns the per-session wall-clock budget as a duration.
func (c Config) Budget() time.Duration {
	return time.Duration(c.Crawl.BudgetSeconds) * time.Second
}

// NavTimeout returns the bounded wait applied to page navigations.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Crawl.NavTimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed delay between extraction retries.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Crawl.RetryDelayMs) * time.Millisecond
}
