package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return Default()
}

func TestConfig_Validate_DefaultIsValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"negative top_n", func(c *Config) { c.DiffDock.TopN = -1 }, "diffdock.top_n"},
		{"zero batch", func(c *Config) { c.DiffDock.BatchSize = 0 }, "diffdock.batch_size"},
		{"batch below -1", func(c *Config) { c.DiffDock.BatchSize = -3 }, "diffdock.batch_size"},
		{"fred cpus", func(c *Config) { c.Fred.CPUs = 0 }, "fred.cpus"},
		{"hitlist", func(c *Config) { c.Fred.HitlistSize = -1 }, "fred.hitlist_size"},
		{"workers", func(c *Config) { c.Scoring.Workers = 0 }, "scoring.workers"},
		{"tool missing", func(c *Config) { c.Tools.Gnina = "" }, "tools.python"},
		{"redis addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"minio bucket", func(c *Config) { c.MinIO.Enabled = true; c.MinIO.Bucket = "" }, "minio.endpoint"},
		{"kafka brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka group", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.GroupID = "" }, "kafka.group_id"},
		{"db host", func(c *Config) { c.Database.Enabled = true; c.Database.Host = "" }, "database.host"},
		{"db port", func(c *Config) { c.Database.Enabled = true; c.Database.Port = 70000 }, "database.port"},
		{"db conns", func(c *Config) { c.Database.Enabled = true; c.Database.MaxConns = 0 }, "database.max_conns"},
		{"server port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"server mode", func(c *Config) { c.Server.Mode = "prod" }, "server.mode"},
		{"worker", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_Validate_DisabledIntegrationsSkipped(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	cfg.Database.Host = ""
	cfg.MinIO.Bucket = ""
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "dock", Password: "p@ss", DBName: "runs", SSLMode: "disable"}
	assert.Equal(t, "postgres://dock:p%40ss@db:5433/runs?sslmode=disable", d.DSN())
}

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultGnina, cfg.Tools.Gnina)
	assert.Equal(t, DefaultBatchSize, cfg.DiffDock.BatchSize)
	assert.Equal(t, DefaultScoreWorkers, cfg.Scoring.Workers)
	assert.Equal(t, []string{DefaultKafkaBroker}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaRequestTopic, cfg.Kafka.RequestTopic)
	assert.Equal(t, DefaultKafkaPartitions, cfg.Kafka.Partitions)
	assert.Equal(t, DefaultKafkaReplication, cfg.Kafka.ReplicationFactor)
	assert.Equal(t, DefaultDBPort, cfg.Database.Port)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, 0, cfg.DiffDock.TopN, "zero top_n means no filtering and is kept")
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	cfg := &Config{}
	cfg.Scoring.Workers = 12
	cfg.Tools.Gnina = "/opt/gnina/bin/gnina"
	cfg.DiffDock.BatchSize = 4
	ApplyDefaults(cfg)

	assert.Equal(t, 12, cfg.Scoring.Workers)
	assert.Equal(t, "/opt/gnina/bin/gnina", cfg.Tools.Gnina)
	assert.Equal(t, 4, cfg.DiffDock.BatchSize)
}

func TestApplyDefaults_Nil(t *testing.T) {
	assert.NotPanics(t, func() { ApplyDefaults(nil) })
}

//Personal.AI order the ending
