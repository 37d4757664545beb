package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultPython    = "python"
	DefaultObabel    = "obabel"
	DefaultGnina     = "gnina"
	DefaultFpocket   = "fpocket"
	DefaultConverter = "oeconvert"

	DefaultTopN      = 1
	DefaultBatchSize = -1

	DefaultFredCPUs    = 1
	DefaultHitlistSize = 0

	DefaultScoreWorkers  = 5
	DefaultScoreCacheTTL = 7 * 24 * time.Hour

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisPoolSize  = 10
	DefaultRedisKeyPrefix = "dockflow:"
	DefaultLockTTL        = 6 * time.Hour

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "dockflow-artifacts"

	DefaultKafkaBroker         = "localhost:9092"
	DefaultKafkaGroupID        = "dockflow-workers"
	DefaultKafkaRequestTopic   = "dockflow.job.requested"
	DefaultKafkaCompletedTopic = "dockflow.job.completed"
	DefaultKafkaFailedTopic    = "dockflow.job.failed"
	DefaultKafkaPartitions     = 3
	DefaultKafkaReplication    = 1

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "dockflow"
	DefaultDBName     = "dockflow"
	DefaultDBSSLMode  = "disable"
	DefaultDBMaxConns = 10

	DefaultServerPort    = 8080
	DefaultServerMode    = "release"
	DefaultReadTimeout   = 30 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultShutdownGrace = 15 * time.Second

	DefaultMetricsNamespace = "dockflow"
	DefaultMetricsAddr      = ":9090"

	DefaultWorkDir           = "./runs"
	DefaultWorkerConcurrency = 1
)

// defaultValues lists every key that has a default. Registering them with
// viper makes the keys visible to AutomaticEnv during Unmarshal.
func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"log.level":                 DefaultLogLevel,
		"log.format":                DefaultLogFormat,
		"log.output_paths":          []string{"stdout"},
		"tools.python":              DefaultPython,
		"tools.obabel":              DefaultObabel,
		"tools.gnina":               DefaultGnina,
		"tools.fpocket":             DefaultFpocket,
		"tools.openeye_dir":         "",
		"tools.converter":           DefaultConverter,
		"tools.dock_timeout":        time.Duration(0),
		"tools.score_timeout":       time.Duration(0),
		"tools.convert_timeout":     time.Duration(0),
		"diffdock.dir":              "",
		"diffdock.top_n":            DefaultTopN,
		"diffdock.batch_size":       DefaultBatchSize,
		"diffdock.include_sequence": false,
		"diffdock.skip_invalid":     false,
		"fred.cpus":                 DefaultFredCPUs,
		"fred.hitlist_size":         DefaultHitlistSize,
		"fred.license":              "",
		"scoring.workers":           DefaultScoreWorkers,
		"scoring.cache_enabled":     false,
		"scoring.cache_ttl":         DefaultScoreCacheTTL,
		"redis.enabled":             false,
		"redis.addr":                DefaultRedisAddr,
		"redis.password":            "",
		"redis.db":                  0,
		"redis.pool_size":           DefaultRedisPoolSize,
		"redis.key_prefix":          DefaultRedisKeyPrefix,
		"redis.lock_ttl":            DefaultLockTTL,
		"minio.enabled":             false,
		"minio.endpoint":            DefaultMinIOEndpoint,
		"minio.access_key":          "",
		"minio.secret_key":          "",
		"minio.bucket":              DefaultMinIOBucket,
		"minio.use_ssl":             false,
		"kafka.enabled":             false,
		"kafka.brokers":             []string{DefaultKafkaBroker},
		"kafka.group_id":            DefaultKafkaGroupID,
		"kafka.request_topic":       DefaultKafkaRequestTopic,
		"kafka.completed_topic":     DefaultKafkaCompletedTopic,
		"kafka.failed_topic":        DefaultKafkaFailedTopic,
		"kafka.auto_create_topics":  true,
		"kafka.partitions":          DefaultKafkaPartitions,
		"kafka.replication_factor":  DefaultKafkaReplication,
		"database.enabled":          false,
		"database.host":             DefaultDBHost,
		"database.port":             DefaultDBPort,
		"database.user":             DefaultDBUser,
		"database.password":         "",
		"database.db_name":          DefaultDBName,
		"database.ssl_mode":         DefaultDBSSLMode,
		"database.max_conns":        DefaultDBMaxConns,
		"database.auto_migrate":     true,
		"server.port":               DefaultServerPort,
		"server.mode":               DefaultServerMode,
		"server.read_timeout":       DefaultReadTimeout,
		"server.write_timeout":      DefaultWriteTimeout,
		"server.shutdown_timeout":   DefaultShutdownGrace,
		"metrics.enabled":           true,
		"metrics.namespace":         DefaultMetricsNamespace,
		"metrics.addr":              DefaultMetricsAddr,
		"worker.work_dir":           DefaultWorkDir,
		"worker.concurrency":        DefaultWorkerConcurrency,
	}
}

func registerDefaults(v *viper.Viper) {
	for key, val := range defaultValues() {
		v.SetDefault(key, val)
	}
}

// ApplyDefaults fills zero-value fields of cfg. Explicit values are kept.
// Boolean switches are not touched since false is a valid explicit choice.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Tools ─────────────────────────────────────────────────────────────────
	setString(&cfg.Tools.Python, DefaultPython)
	setString(&cfg.Tools.Obabel, DefaultObabel)
	setString(&cfg.Tools.Gnina, DefaultGnina)
	setString(&cfg.Tools.Fpocket, DefaultFpocket)
	setString(&cfg.Tools.Converter, DefaultConverter)

	// ── Docking ───────────────────────────────────────────────────────────────
	if cfg.DiffDock.BatchSize == 0 {
		cfg.DiffDock.BatchSize = DefaultBatchSize
	}
	if cfg.Fred.CPUs == 0 {
		cfg.Fred.CPUs = DefaultFredCPUs
	}
	if cfg.Scoring.Workers == 0 {
		cfg.Scoring.Workers = DefaultScoreWorkers
	}
	if cfg.Scoring.CacheTTL == 0 {
		cfg.Scoring.CacheTTL = DefaultScoreCacheTTL
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	setString(&cfg.Redis.Addr, DefaultRedisAddr)
	setString(&cfg.Redis.KeyPrefix, DefaultRedisKeyPrefix)
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = DefaultLockTTL
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	setString(&cfg.MinIO.Endpoint, DefaultMinIOEndpoint)
	setString(&cfg.MinIO.Bucket, DefaultMinIOBucket)

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	setString(&cfg.Kafka.GroupID, DefaultKafkaGroupID)
	setString(&cfg.Kafka.RequestTopic, DefaultKafkaRequestTopic)
	setString(&cfg.Kafka.CompletedTopic, DefaultKafkaCompletedTopic)
	setString(&cfg.Kafka.FailedTopic, DefaultKafkaFailedTopic)
	if cfg.Kafka.Partitions == 0 {
		cfg.Kafka.Partitions = DefaultKafkaPartitions
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = DefaultKafkaReplication
	}

	// ── Database ──────────────────────────────────────────────────────────────
	setString(&cfg.Database.Host, DefaultDBHost)
	setString(&cfg.Database.User, DefaultDBUser)
	setString(&cfg.Database.DBName, DefaultDBName)
	setString(&cfg.Database.SSLMode, DefaultDBSSLMode)
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}

	// ── Server / Metrics / Worker ─────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	setString(&cfg.Server.Mode, DefaultServerMode)
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownGrace
	}
	setString(&cfg.Metrics.Namespace, DefaultMetricsNamespace)
	setString(&cfg.Metrics.Addr, DefaultMetricsAddr)
	setString(&cfg.Worker.WorkDir, DefaultWorkDir)
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// Default returns a Config equal to loading an empty file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.DiffDock.TopN = DefaultTopN
	cfg.Metrics.Enabled = true
	cfg.Database.AutoMigrate = true
	cfg.Log.OutputPaths = []string{"stdout"}
	return cfg
}

//Personal.AI order the ending
