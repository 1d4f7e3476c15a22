package main

import (
	"fmt"
	"os"
	"time"

	"dailystudy/internal/common/cache"
	"dailystudy/internal/common/db"
	"dailystudy/internal/common/mq"
	"dailystudy/internal/common/storage"
	"dailystudy/internal/study/judgeclient"
	"dailystudy/internal/study/metaclient"
	"dailystudy/internal/study/model"
	"dailystudy/internal/study/service"
	"dailystudy/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEventTopic      = "study.crawl.finished"
	defaultSnapshotPrefix  = "crawl-snapshots"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// EventsConfig controls crawl.finished publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// SnapshotConfig controls archiving of raw crawl input.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// MetadataConfig holds the problem metadata client and its cache settings.
type MetadataConfig struct {
	metaclient.Config `yaml:",inline"`
	CacheTTL          time.Duration `yaml:"cacheTTL"`
	EmptyCacheTTL     time.Duration `yaml:"emptyCacheTTL"`
}

// CrawlConfig holds orchestrator settings.
type CrawlConfig struct {
	Retry service.RetryPolicy `yaml:"retry"`

	// Interval schedules periodic runs; 0 leaves crawling to the HTTP trigger.
	Interval          time.Duration `yaml:"interval"`
	LockTTL           time.Duration `yaml:"lockTTL"`
	ExceptionalExcuse string        `yaml:"exceptionalExcuse"`
	PaidExcuse        string        `yaml:"paidExcuse"`
	MetaConcurrency   int           `yaml:"metaConcurrency"`
}

// AppConfig holds the study-service configuration.
type AppConfig struct {
	Server ServerConfig  `yaml:"server"`
	Logger logger.Config `yaml:"logger"`

	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	Events   EventsConfig        `yaml:"events"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Snapshot SnapshotConfig      `yaml:"snapshot"`

	Judge    judgeclient.Config `yaml:"judge"`
	Metadata MetadataConfig     `yaml:"metadata"`
	Crawl    CrawlConfig        `yaml:"crawl"`
	Roster   model.Roster       `yaml:"roster"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if len(cfg.Roster) == 0 {
		return nil, fmt.Errorf("roster must not be empty")
	}
	seen := make(map[string]struct{}, len(cfg.Roster))
	for _, entry := range cfg.Roster {
		if entry.Handle == "" {
			return nil, fmt.Errorf("roster entry without handle")
		}
		if _, ok := seen[entry.Handle]; ok {
			return nil, fmt.Errorf("duplicate roster handle %q", entry.Handle)
		}
		seen[entry.Handle] = struct{}{}
	}
	cfg.Redis.ApplyDefaults()

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	// A synchronous crawl can take a while.
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Events.Enabled {
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required when events are enabled")
		}
		if cfg.Events.Topic == "" {
			cfg.Events.Topic = defaultEventTopic
		}
	}
	if cfg.Snapshot.Enabled {
		if cfg.MinIO.Bucket == "" {
			return nil, fmt.Errorf("minio bucket is required when snapshots are enabled")
		}
		if cfg.Snapshot.Prefix == "" {
			cfg.Snapshot.Prefix = defaultSnapshotPrefix
		}
	}

	if cfg.Crawl.Retry.MaxAttempts <= 0 {
		cfg.Crawl.Retry = service.DefaultRetryPolicy()
	}
	if cfg.Crawl.ExceptionalExcuse == "" {
		cfg.Crawl.ExceptionalExcuse = service.DefaultExceptionalExcuse
	}
	if cfg.Crawl.PaidExcuse == "" {
		cfg.Crawl.PaidExcuse = service.DefaultPaidExcuse
	}
	return &cfg, nil
}
