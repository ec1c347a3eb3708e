package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"wartracker/internal/domain"
)

const (
	configPathEnv  = "WAR_TRACKER_CONFIG"
	databaseDSNEnv = "DATABASE_DSN"
	llmAPIKeyEnv   = "LLM_API_KEY"
	llmModelEnv    = "LLM_MODEL"
	listenAddrEnv  = "LISTEN_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LLM       LLMConfig       `yaml:"llm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging"`
	Feeds     []FeedConfig    `yaml:"feeds"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ServerConfig describes the HTTP trigger surface.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
}

// SchedulerConfig defines how often the ingestion cycle runs.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LLMConfig defines how to contact the completion provider.
type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
}

// PipelineConfig bounds batch sizes and concurrency inside one cycle.
type PipelineConfig struct {
	BatchSize      int  `yaml:"batchSize"`
	MaxConcurrent  int  `yaml:"maxConcurrent"`
	FetchWorkers   int  `yaml:"fetchWorkers"`
	UpsertChunk    int  `yaml:"upsertChunk"`
	WritesPerSec   int  `yaml:"writesPerSec"`
	MinConfidence  int  `yaml:"minConfidence"`
	WarRelatedOnly bool `yaml:"warRelatedOnly"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig describes a single registered RSS/Atom source.
type FeedConfig struct {
	Name        string        `yaml:"name"`
	URL         string        `yaml:"url"`
	Category    string        `yaml:"category"`
	Reliability int           `yaml:"reliability"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

// Validate refuses startup when required external credentials are absent.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required (set %s)", databaseDSNEnv)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key is required (set %s)", llmAPIKeyEnv)
	}
	if c.LLM.Endpoint == "" || c.LLM.Model == "" {
		return fmt.Errorf("llm endpoint and model are required")
	}
	return nil
}

// Sources converts configured feeds into registry entries.
func (c Config) Sources() []domain.FeedSource {
	sources := make([]domain.FeedSource, 0, len(c.Feeds))
	for _, f := range c.Feeds {
		timeout := f.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		sources = append(sources, domain.FeedSource{
			Name:        f.Name,
			URL:         f.URL,
			Category:    f.Category,
			Reliability: f.Reliability,
			Timeout:     timeout,
		})
	}
	return sources
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(listenAddrEnv); v != "" {
		c.Server.ListenAddr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Server.ListenAddr != "" {
		base.Server.ListenAddr = override.Server.ListenAddr
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Timeout > 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}
	if override.LLM.MaxTokens > 0 {
		base.LLM.MaxTokens = override.LLM.MaxTokens
	}
	if override.LLM.Temperature > 0 {
		base.LLM.Temperature = override.LLM.Temperature
	}

	if override.Pipeline.BatchSize > 0 {
		base.Pipeline.BatchSize = override.Pipeline.BatchSize
	}
	if override.Pipeline.MaxConcurrent > 0 {
		base.Pipeline.MaxConcurrent = override.Pipeline.MaxConcurrent
	}
	if override.Pipeline.FetchWorkers > 0 {
		base.Pipeline.FetchWorkers = override.Pipeline.FetchWorkers
	}
	if override.Pipeline.UpsertChunk > 0 {
		base.Pipeline.UpsertChunk = override.Pipeline.UpsertChunk
	}
	if override.Pipeline.WritesPerSec > 0 {
		base.Pipeline.WritesPerSec = override.Pipeline.WritesPerSec
	}
	if override.Pipeline.MinConfidence > 0 {
		base.Pipeline.MinConfidence = override.Pipeline.MinConfidence
	}
	if override.Pipeline.WarRelatedOnly {
		base.Pipeline.WarRelatedOnly = true
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database:  DatabaseConfig{DSN: ""},
		Server:    ServerConfig{ListenAddr: ":8085"},
		Scheduler: SchedulerConfig{Interval: 15 * time.Minute},
		LLM: LLMConfig{
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Timeout:     15 * time.Second,
			MaxTokens:   500,
			Temperature: 0.1,
		},
		Pipeline: PipelineConfig{
			BatchSize:     25,
			MaxConcurrent: 3,
			FetchWorkers:  4,
			UpsertChunk:   50,
			WritesPerSec:  5,
			MinConfidence: 60,
		},
		Logging: LoggingConfig{Level: "info"},
		Feeds: []FeedConfig{
			{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: "world", Reliability: 9},
			{Name: "Reuters World", URL: "https://www.reutersagency.com/feed/?best-topics=world", Category: "world", Reliability: 9},
			{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Category: "world", Reliability: 8},
			{Name: "Kyiv Independent", URL: "https://kyivindependent.com/feed", Category: "conflict", Reliability: 8},
			{Name: "Defense News", URL: "https://www.defensenews.com/arc/outboundfeeds/rss/", Category: "military", Reliability: 7},
		},
	}
}
