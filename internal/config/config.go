// Package config defines the DockFlow configuration structures. No I/O lives
// here, only plain data types and validation.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // debug | info | warn | error
	Format      string   `mapstructure:"format"` // json | console
	OutputPaths []string `mapstructure:"output_paths"`
}

// ToolsConfig names the external executables and their time limits. Bare
// names are resolved through PATH.
type ToolsConfig struct {
	Python    string `mapstructure:"python"`
	Obabel    string `mapstructure:"obabel"`
	Gnina     string `mapstructure:"gnina"`
	Fpocket   string `mapstructure:"fpocket"`
	OpenEye   string `mapstructure:"openeye_dir"`
	Converter string `mapstructure:"converter"`

	DockTimeout    time.Duration `mapstructure:"dock_timeout"`
	ScoreTimeout   time.Duration `mapstructure:"score_timeout"`
	ConvertTimeout time.Duration `mapstructure:"convert_timeout"`
}

// DiffDockConfig holds defaults for the diffusion docking driver.
type DiffDockConfig struct {
	Dir             string `mapstructure:"dir"`
	TopN            int    `mapstructure:"top_n"`
	BatchSize       int    `mapstructure:"batch_size"`
	IncludeSequence bool   `mapstructure:"include_sequence"`
	SkipInvalid     bool   `mapstructure:"skip_invalid"`
}

// FredConfig holds defaults for the pocket-search docking driver.
type FredConfig struct {
	CPUs        int    `mapstructure:"cpus"`
	HitlistSize int    `mapstructure:"hitlist_size"`
	License     string `mapstructure:"license"`
}

// ScoringConfig controls the rescoring pool and its cache.
type ScoringConfig struct {
	Workers      int           `mapstructure:"workers"`
	CacheEnabled bool          `mapstructure:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// MinIOConfig holds object-storage parameters for run artifacts.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// KafkaConfig holds job queue topics and broker settings.
type KafkaConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Brokers        []string      `mapstructure:"brokers"`
	GroupID        string        `mapstructure:"group_id"`
	RequestTopic   string        `mapstructure:"request_topic"`
	CompletedTopic string        `mapstructure:"completed_topic"`
	FailedTopic    string        `mapstructure:"failed_topic"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	// AutoCreateTopics creates missing job topics when infrastructure opens.
	AutoCreateTopics  bool `mapstructure:"auto_create_topics"`
	Partitions        int  `mapstructure:"partitions"`
	ReplicationFactor int  `mapstructure:"replication_factor"`
}

// DatabaseConfig holds PostgreSQL parameters for run history.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN renders the connection URL understood by pgx and golang-migrate.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// ServerConfig holds HTTP API tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Addr      string `mapstructure:"addr"`
}

// WorkerConfig controls the Kafka job worker.
type WorkerConfig struct {
	WorkDir     string `mapstructure:"work_dir"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration for every DockFlow binary.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Tools    ToolsConfig    `mapstructure:"tools"`
	DiffDock DiffDockConfig `mapstructure:"diffdock"`
	Fred     FredConfig     `mapstructure:"fred"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks the populated Config and returns the first problem found.
// Disabled integrations are not validated.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.DiffDock.TopN < 0 {
		return fmt.Errorf("config: diffdock.top_n must be ≥ 0, got %d", c.DiffDock.TopN)
	}
	if c.DiffDock.BatchSize == 0 || c.DiffDock.BatchSize < -1 {
		return fmt.Errorf("config: diffdock.batch_size must be -1 or ≥ 1, got %d", c.DiffDock.BatchSize)
	}
	if c.Fred.CPUs < 1 {
		return fmt.Errorf("config: fred.cpus must be ≥ 1, got %d", c.Fred.CPUs)
	}
	if c.Fred.HitlistSize < 0 {
		return fmt.Errorf("config: fred.hitlist_size must be ≥ 0, got %d", c.Fred.HitlistSize)
	}
	if c.Scoring.Workers < 1 {
		return fmt.Errorf("config: scoring.workers must be ≥ 1, got %d", c.Scoring.Workers)
	}
	if c.Tools.Python == "" || c.Tools.Obabel == "" || c.Tools.Gnina == "" || c.Tools.Fpocket == "" {
		return fmt.Errorf("config: tools.python, tools.obabel, tools.gnina and tools.fpocket are required")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
		}
	}
	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required")
		}
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("config: database.host is required")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("config: database.db_name is required")
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	return nil
}

//Personal.AI order the ending
