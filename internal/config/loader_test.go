package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
log:
  level: debug
  format: console
tools:
  gnina: /opt/gnina/gnina
  openeye_dir: /opt/openeye/bin
  score_timeout: 10m
diffdock:
  dir: /opt/DiffDock
  top_n: 3
  batch_size: 6
fred:
  cpus: 8
  hitlist_size: 100
  license: /licenses/oe_license.txt
scoring:
  workers: 4
  cache_enabled: true
redis:
  enabled: true
  addr: redis:6379
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/opt/gnina/gnina", cfg.Tools.Gnina)
	assert.Equal(t, DefaultObabel, cfg.Tools.Obabel)
	assert.Equal(t, 10*time.Minute, cfg.Tools.ScoreTimeout)
	assert.Equal(t, "/opt/DiffDock", cfg.DiffDock.Dir)
	assert.Equal(t, 3, cfg.DiffDock.TopN)
	assert.Equal(t, 6, cfg.DiffDock.BatchSize)
	assert.Equal(t, 8, cfg.Fred.CPUs)
	assert.Equal(t, 100, cfg.Fred.HitlistSize)
	assert.Equal(t, 4, cfg.Scoring.Workers)
	assert.True(t, cfg.Scoring.CacheEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, DefaultKafkaGroupID, cfg.Kafka.GroupID)
	assert.True(t, cfg.Kafka.AutoCreateTopics)
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, "log:\n  level: info\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultTopN, cfg.DiffDock.TopN)
	assert.Equal(t, DefaultBatchSize, cfg.DiffDock.BatchSize)
	assert.Equal(t, DefaultScoreWorkers, cfg.Scoring.Workers)
	assert.Equal(t, DefaultFredCPUs, cfg.Fred.CPUs)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_ExplicitZeroTopNKept(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, "diffdock:\n  top_n: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.DiffDock.TopN)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "log: [unclosed"))
	assert.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "scoring:\n  workers: -2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scoring.workers")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DOCKFLOW_SCORING_WORKERS", "9")
	t.Setenv("DOCKFLOW_TOOLS_OBABEL", "/usr/local/bin/obabel")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Scoring.Workers)
	assert.Equal(t, "/usr/local/bin/obabel", cfg.Tools.Obabel)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	t.Setenv("DOCKFLOW_DIFFDOCK_DIR", "/srv/diffdock")
	t.Setenv("DOCKFLOW_FRED_LICENSE", "/srv/oe.txt")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/srv/diffdock", cfg.DiffDock.Dir)
	assert.Equal(t, "/srv/oe.txt", cfg.Fred.License)
	assert.Equal(t, DefaultGnina, cfg.Tools.Gnina)
}

func TestLoad_EmptyPathUsesEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
}

func TestMustLoad(t *testing.T) {
	assert.NotPanics(t, func() { MustLoad(createTempConfigFile(t, validConfigYAML)) })
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "nope.yaml")) })
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.Error(t, err)
}

//Personal.AI order the ending
