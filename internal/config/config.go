// Package config provides configuration management for the ingestion
// pipeline. It handles loading, validation, and access to configuration
// values from a YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/newsward/ingest/internal/logger"
)

// envPrefix namespaces the environment variable overrides.
const envPrefix = "NEWSWARD"

// Crawl interval defaults and floor.
const (
	// MinCrawlInterval is the enforced floor for any source's poll interval.
	MinCrawlInterval = 10 * time.Second

	defaultRssInterval     = 5 * time.Minute
	defaultWebsiteInterval = 10 * time.Minute
	defaultKeyCacheSize    = 2000
	defaultDispatchWorkers = 4
	defaultFetchTimeout    = 30 * time.Second
)

// Indexer defaults.
const (
	defaultSupersetTTL     = 30 * time.Second
	defaultFeedQueryWindow = 30 * 24 * time.Hour
)

// Compactor defaults.
const (
	defaultCompactorSchedule = "@every 4h"
	defaultCompactorPageSize = 500
)

// Server defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
)

// Config represents the application configuration.
type Config struct {
	// Logging holds logger configuration.
	Logging *logger.Config `yaml:"logging" mapstructure:"logging"`
	// Elasticsearch holds the search backend configuration.
	Elasticsearch *ElasticsearchConfig `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	// Crawler holds the source crawler configuration.
	Crawler *CrawlerConfig `yaml:"crawler" mapstructure:"crawler"`
	// Indexer holds the indexing engine configuration.
	Indexer *IndexerConfig `yaml:"indexer" mapstructure:"indexer"`
	// Compactor holds the duplicate compactor configuration.
	Compactor *CompactorConfig `yaml:"compactor" mapstructure:"compactor"`
	// Sources holds the source/feed configuration store settings.
	Sources *SourcesConfig `yaml:"sources" mapstructure:"sources"`
	// Server holds the HTTP API configuration.
	Server *ServerConfig `yaml:"server" mapstructure:"server"`
}

// ElasticsearchConfig represents Elasticsearch connection settings.
type ElasticsearchConfig struct {
	// Addresses is the list of Elasticsearch node addresses.
	Addresses []string `yaml:"addresses" mapstructure:"addresses"`
	// Username for basic authentication.
	Username string `yaml:"username" mapstructure:"username"`
	// Password for basic authentication.
	Password string `yaml:"password" mapstructure:"password"`
	// APIKey is the base64 encoded API key; takes precedence over basic auth.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// IndexPrefix is prepended to every index name the pipeline manages.
	IndexPrefix string `yaml:"index_prefix" mapstructure:"index_prefix"`
}

// Validate validates the Elasticsearch configuration.
func (c *ElasticsearchConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return errors.New("at least one address is required")
	}
	for _, addr := range c.Addresses {
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			return fmt.Errorf("invalid address %q: must start with http:// or https://", addr)
		}
	}
	return nil
}

// CrawlerConfig represents source crawler settings.
type CrawlerConfig struct {
	// RssInterval is the poll interval for syndication sources.
	RssInterval time.Duration `yaml:"rss_interval" mapstructure:"rss_interval"`
	// WebsiteInterval is the poll interval for website sources.
	WebsiteInterval time.Duration `yaml:"website_interval" mapstructure:"website_interval"`
	// FetchTimeout bounds a single network fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	// KeyCacheSize is the maximum number of entry keys a syndication
	// source's short-term duplicate cache holds.
	KeyCacheSize int `yaml:"key_cache_size" mapstructure:"key_cache_size"`
	// DispatchWorkers is the number of controller workers forwarding
	// candidates to the indexing engine.
	DispatchWorkers int `yaml:"dispatch_workers" mapstructure:"dispatch_workers"`
}

// Interval returns the poll interval for the given content type, clamped
// to the enforced floor.
func (c *CrawlerConfig) Interval(contentType string) time.Duration {
	interval := c.WebsiteInterval
	if contentType == "rss" {
		interval = c.RssInterval
	}
	if interval < MinCrawlInterval {
		return MinCrawlInterval
	}
	return interval
}

// Validate validates the crawler configuration.
func (c *CrawlerConfig) Validate() error {
	if c.KeyCacheSize <= 0 {
		return errors.New("key_cache_size must be positive")
	}
	if c.DispatchWorkers <= 0 {
		return errors.New("dispatch_workers must be positive")
	}
	return nil
}

// IndexerConfig represents indexing engine settings.
type IndexerConfig struct {
	// SupersetTTL is the lifetime of the cached superset keyword filter.
	SupersetTTL time.Duration `yaml:"superset_ttl" mapstructure:"superset_ttl"`
	// SerializeWrites serializes all indexing writes behind a single lock,
	// for backends without per-document read-after-write guarantees.
	SerializeWrites bool `yaml:"serialize_writes" mapstructure:"serialize_writes"`
	// FeedQueryWindow bounds how far back the default feed query looks.
	FeedQueryWindow time.Duration `yaml:"feed_query_window" mapstructure:"feed_query_window"`
}

// Validate validates the indexer configuration.
func (c *IndexerConfig) Validate() error {
	if c.SupersetTTL <= 0 {
		return errors.New("superset_ttl must be positive")
	}
	return nil
}

// CompactorConfig represents duplicate compactor settings.
type CompactorConfig struct {
	// Schedule is a cron expression (robfig/cron syntax, @every supported).
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
	// PageSize is the scroll page size used when scanning the permanent store.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
	// Enabled toggles the background job.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// Validate validates the compactor configuration.
func (c *CompactorConfig) Validate() error {
	if c.Enabled && c.Schedule == "" {
		return errors.New("schedule is required when the compactor is enabled")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	return nil
}

// SourcesConfig selects and configures the source/feed configuration store.
type SourcesConfig struct {
	// Backend is "file" or "postgres".
	Backend string `yaml:"backend" mapstructure:"backend"`
	// File is the path to the YAML source definitions (file backend).
	File string `yaml:"file" mapstructure:"file"`
	// DSN is the Postgres connection string (postgres backend).
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// Validate validates the sources configuration.
func (c *SourcesConfig) Validate() error {
	switch c.Backend {
	case "file":
		if c.File == "" {
			return errors.New("file path is required for the file backend")
		}
	case "postgres":
		if c.DSN == "" {
			return errors.New("dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown sources backend %q", c.Backend)
	}
	return nil
}

// ServerConfig represents HTTP API settings.
type ServerConfig struct {
	// Address is the listen address.
	Address string `yaml:"address" mapstructure:"address"`
	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	return nil
}

// Validate validates the full configuration.
func (c *Config) Validate() error {
	if err := c.Elasticsearch.Validate(); err != nil {
		return fmt.Errorf("elasticsearch: %w", err)
	}
	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("crawler: %w", err)
	}
	if err := c.Indexer.Validate(); err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if err := c.Compactor.Validate(); err != nil {
		return fmt.Errorf("compactor: %w", err)
	}
	if err := c.Sources.Validate(); err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// Load loads configuration from the given path, or from the default search
// locations when path is empty. Environment variables prefixed with
// NEWSWARD_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.newsward")
		v.AddConfigPath("/etc/newsward")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file is fine; defaults plus env cover a dev setup.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies default values to the config.
func setDefaults(cfg *Config) {
	if cfg.Logging == nil {
		cfg.Logging = &logger.Config{Level: "info", Encoding: "console"}
	}
	if cfg.Elasticsearch == nil {
		cfg.Elasticsearch = &ElasticsearchConfig{}
	}
	if len(cfg.Elasticsearch.Addresses) == 0 {
		cfg.Elasticsearch.Addresses = []string{"http://127.0.0.1:9200"}
	}
	if cfg.Elasticsearch.IndexPrefix == "" {
		cfg.Elasticsearch.IndexPrefix = "newsward"
	}

	if cfg.Crawler == nil {
		cfg.Crawler = &CrawlerConfig{}
	}
	if cfg.Crawler.RssInterval == 0 {
		cfg.Crawler.RssInterval = defaultRssInterval
	}
	if cfg.Crawler.WebsiteInterval == 0 {
		cfg.Crawler.WebsiteInterval = defaultWebsiteInterval
	}
	if cfg.Crawler.FetchTimeout == 0 {
		cfg.Crawler.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Crawler.KeyCacheSize == 0 {
		cfg.Crawler.KeyCacheSize = defaultKeyCacheSize
	}
	if cfg.Crawler.DispatchWorkers == 0 {
		cfg.Crawler.DispatchWorkers = defaultDispatchWorkers
	}

	if cfg.Indexer == nil {
		cfg.Indexer = &IndexerConfig{}
	}
	if cfg.Indexer.SupersetTTL == 0 {
		cfg.Indexer.SupersetTTL = defaultSupersetTTL
	}
	if cfg.Indexer.FeedQueryWindow == 0 {
		cfg.Indexer.FeedQueryWindow = defaultFeedQueryWindow
	}

	if cfg.Compactor == nil {
		cfg.Compactor = &CompactorConfig{Enabled: true}
	}
	if cfg.Compactor.Schedule == "" {
		cfg.Compactor.Schedule = defaultCompactorSchedule
	}
	if cfg.Compactor.PageSize == 0 {
		cfg.Compactor.PageSize = defaultCompactorPageSize
	}

	if cfg.Sources == nil {
		cfg.Sources = &SourcesConfig{Backend: "file", File: "sources.yaml"}
	}

	if cfg.Server == nil {
		cfg.Server = &ServerConfig{}
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerWriteTimeout
	}
}
