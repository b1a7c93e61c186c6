package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cohort-cli.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "plink", cfg.Plink.Path)
	assert.Equal(t, 3600, cfg.Plink.TimeoutSecs)
	assert.Equal(t, 3, cfg.Plink.RetryAttempts)
	assert.Equal(t, 4, cfg.Merge.Concurrency)
	assert.InDelta(t, 1.0, cfg.Merge.LaunchRate, 0.001)
	assert.Equal(t, "work", cfg.Pipeline.WorkDir)
	assert.Equal(t, "delivery", cfg.Pipeline.DeliveryDir)
	assert.True(t, cfg.Pipeline.ConvertVCF)
	assert.Equal(t, "SampleID", cfg.Filter.IDColumn)
	assert.Equal(t, "Reason", cfg.Filter.ReasonColumn)
	assert.Equal(t, "copy", cfg.Transfer.Method)
	assert.Equal(t, "Du=rwx,Dgo=rx", cfg.Transfer.ChmodDirs)
	assert.Equal(t, "Fu=rw,Fgo=r", cfg.Transfer.ChmodFiles)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Monitoring.Enabled)
	assert.Equal(t, 300, cfg.Monitoring.CheckIntervalSecs)
	assert.Equal(t, 24, cfg.Monitoring.LookbackWindowHours)
	assert.InDelta(t, 0.25, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Equal(t, 120, cfg.Monitoring.StuckRunMins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/cohort
plink:
  path: /opt/plink/plink
  timeout_secs: 600
merge:
  concurrency: 8
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cohort", cfg.Store.DatabaseURL)
	assert.Equal(t, "/opt/plink/plink", cfg.Plink.Path)
	assert.Equal(t, 600, cfg.Plink.TimeoutSecs)
	assert.Equal(t, 8, cfg.Merge.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, "work", cfg.Pipeline.WorkDir)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
plink:
  path: plink
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("COHORT_STORE_DRIVER", "sqlite")
	t.Setenv("COHORT_PLINK_PATH", "plink2")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "plink2", cfg.Plink.Path)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COHORT_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with the fields validation cares about.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Plink.Path = "plink"
	cfg.Plink.TimeoutSecs = 3600
	cfg.Merge.Concurrency = 4
	cfg.Merge.LaunchRate = 1.0
	cfg.Pipeline.WorkDir = "work"
	cfg.Transfer.Method = "copy"
	cfg.Transfer.StagingRoot = "/staging"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Plink.Path = ""
	cfg.Pipeline.WorkDir = ""

	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "plink.path is required")
	assert.Contains(t, err.Error(), "pipeline.work_dir is required")
}

func TestValidateRun_ConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Merge.Concurrency = 0
	err := cfg.Validate("run")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "merge.concurrency must be between 1 and 32")

	cfg.Merge.Concurrency = 33
	err = cfg.Validate("run")
	assert.Error(t, err)

	cfg.Merge.Concurrency = 32
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateTransfer_CopyNeedsStagingRoot(t *testing.T) {
	cfg := validDefaults()
	cfg.Transfer.StagingRoot = ""

	err := cfg.Validate("transfer")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transfer.staging_root is required")
}

func TestValidateTransfer_FTPNeedsAddr(t *testing.T) {
	cfg := validDefaults()
	cfg.Transfer.Method = "ftp"

	err := cfg.Validate("transfer")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transfer.ftp_addr is required")

	cfg.Transfer.FTPAddr = "ftp.example.org:21"
	assert.NoError(t, cfg.Validate("transfer"))
}

func TestValidateTransfer_UnknownMethod(t *testing.T) {
	cfg := validDefaults()
	cfg.Transfer.Method = "carrier-pigeon"

	err := cfg.Validate("transfer")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transfer.method must be copy, rsync, or ftp")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
