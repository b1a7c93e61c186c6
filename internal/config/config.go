package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Plink      PlinkConfig      `yaml:"plink" mapstructure:"plink"`
	Merge      MergeConfig      `yaml:"merge" mapstructure:"merge"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Filter     FilterConfig     `yaml:"filter" mapstructure:"filter"`
	Transfer   TransferConfig   `yaml:"transfer" mapstructure:"transfer"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// PlinkConfig configures the external genotype tool.
type PlinkConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// MergeConfig configures the merge engine.
type MergeConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	LaunchRate  float64 `yaml:"launch_rate" mapstructure:"launch_rate"`
}

// PipelineConfig configures the delivery pipeline layout.
type PipelineConfig struct {
	WorkDir     string `yaml:"work_dir" mapstructure:"work_dir"`
	DeliveryDir string `yaml:"delivery_dir" mapstructure:"delivery_dir"`
	ConvertVCF  bool   `yaml:"convert_vcf" mapstructure:"convert_vcf"`
	Profiles    string `yaml:"profiles" mapstructure:"profiles"`
}

// FilterConfig configures exclusion-list parsing.
type FilterConfig struct {
	IDColumn     string `yaml:"id_column" mapstructure:"id_column"`
	ReasonColumn string `yaml:"reason_column" mapstructure:"reason_column"`
	Sheet        int    `yaml:"sheet" mapstructure:"sheet"`
	Encoding     string `yaml:"encoding" mapstructure:"encoding"`
}

// TransferConfig configures delivery staging.
type TransferConfig struct {
	Method      string `yaml:"method" mapstructure:"method"`
	StagingRoot string `yaml:"staging_root" mapstructure:"staging_root"`
	ChmodDirs   string `yaml:"chmod_dirs" mapstructure:"chmod_dirs"`
	ChmodFiles  string `yaml:"chmod_files" mapstructure:"chmod_files"`
	FTPAddr     string `yaml:"ftp_addr" mapstructure:"ftp_addr"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures background run-health checks. The checker
// only starts when Enabled is set; alerts go nowhere unless WebhookURL
// is also configured.
type MonitoringConfig struct {
	Enabled              bool    `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	StuckRunMins         int     `yaml:"stuck_run_mins" mapstructure:"stuck_run_mins"`
	ConflictThreshold    int     `yaml:"conflict_threshold" mapstructure:"conflict_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COHORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cohort-cli.db")
	v.SetDefault("plink.path", "plink")
	v.SetDefault("plink.timeout_secs", 3600)
	v.SetDefault("plink.retry_attempts", 3)
	v.SetDefault("merge.concurrency", 4)
	v.SetDefault("merge.launch_rate", 1.0)
	v.SetDefault("pipeline.work_dir", "work")
	v.SetDefault("pipeline.delivery_dir", "delivery")
	v.SetDefault("pipeline.convert_vcf", true)
	v.SetDefault("filter.id_column", "SampleID")
	v.SetDefault("filter.reason_column", "Reason")
	v.SetDefault("filter.sheet", 0)
	v.SetDefault("filter.encoding", "utf-8")
	v.SetDefault("transfer.method", "copy")
	v.SetDefault("transfer.chmod_dirs", "Du=rwx,Dgo=rx")
	v.SetDefault("transfer.chmod_files", "Fu=rw,Fgo=r")
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.stuck_run_mins", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a given command mode depends on. Modes: "run"
// for commands that execute the merge engine, "transfer" for staging
// deliveries, "serve" for the status server.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Plink.Path == "" {
			problems = append(problems, "plink.path is required")
		}
		if c.Plink.TimeoutSecs <= 0 {
			problems = append(problems, "plink.timeout_secs must be > 0")
		}
		if c.Merge.Concurrency < 1 || c.Merge.Concurrency > 32 {
			problems = append(problems, "merge.concurrency must be between 1 and 32")
		}
		if c.Merge.LaunchRate <= 0 {
			problems = append(problems, "merge.launch_rate must be > 0")
		}
		if c.Pipeline.WorkDir == "" {
			problems = append(problems, "pipeline.work_dir is required")
		}
	case "transfer":
		switch c.Transfer.Method {
		case "copy", "rsync":
			if c.Transfer.StagingRoot == "" {
				problems = append(problems, "transfer.staging_root is required")
			}
		case "ftp":
			if c.Transfer.FTPAddr == "" {
				problems = append(problems, "transfer.ftp_addr is required")
			}
		default:
			problems = append(problems, "transfer.method must be copy, rsync, or ftp")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
