package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/herrtunante/whisp/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	GEE      GEEConfig      `yaml:"gee" mapstructure:"gee"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// StoreConfig configures the run persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GEEConfig configures the zonal statistics backend client.
type GEEConfig struct {
	APIKey           string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSec   float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	RetryMaxAttempts int     `yaml:"retry_max_attempts" mapstructure:"retry_max_attempts"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// AnalysisConfig configures the aggregation and classification defaults.
type AnalysisConfig struct {
	OutputUnit    string           `yaml:"output_unit" mapstructure:"output_unit"`
	PageThreshold int              `yaml:"page_threshold" mapstructure:"page_threshold"`
	Thresholds    ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
}

// ThresholdsConfig holds per-indicator risk thresholds in percent of plot area.
type ThresholdsConfig struct {
	TreeCover         float64 `yaml:"tree_cover" mapstructure:"tree_cover"`
	Commodities       float64 `yaml:"commodities" mapstructure:"commodities"`
	DisturbanceBefore float64 `yaml:"disturbance_before" mapstructure:"disturbance_before"`
	DisturbanceAfter  float64 `yaml:"disturbance_after" mapstructure:"disturbance_after"`
}

// MonitoringConfig configures background health checks and webhook alerts.
// Alerts fire only when WebhookURL is set.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	NullRateThreshold     float64 `yaml:"null_rate_threshold" mapstructure:"null_rate_threshold"`
	MoreInfoRateThreshold float64 `yaml:"more_info_rate_threshold" mapstructure:"more_info_rate_threshold"`
	LookbackWindowHours   int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("WHISP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "whisp.db")
	v.SetDefault("gee.base_url", "http://localhost:8085")
	v.SetDefault("gee.timeout_secs", 120)
	v.SetDefault("gee.requests_per_sec", 5.0)
	v.SetDefault("gee.retry_max_attempts", 3)
	v.SetDefault("gee.breaker_failures", 5)
	v.SetDefault("gee.breaker_reset_secs", 30)
	v.SetDefault("analysis.output_unit", "ha")
	v.SetDefault("analysis.page_threshold", 500)
	v.SetDefault("analysis.thresholds.tree_cover", 10.0)
	v.SetDefault("analysis.thresholds.commodities", 10.0)
	v.SetDefault("analysis.thresholds.disturbance_before", 0.0)
	v.SetDefault("analysis.thresholds.disturbance_after", 0.0)
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.failure_rate_threshold", 0.10)
	v.SetDefault("monitoring.null_rate_threshold", 0.20)
	v.SetDefault("monitoring.more_info_rate_threshold", 0.50)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

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

// Thresholds converts the configured thresholds into the model form.
func (c ThresholdsConfig) Thresholds() model.Thresholds {
	return model.Thresholds{
		TreeCover:         c.TreeCover,
		Commodities:       c.Commodities,
		DisturbanceBefore: c.DisturbanceBefore,
		DisturbanceAfter:  c.DisturbanceAfter,
	}
}

// Unit parses the configured output unit, defaulting to hectares.
func (c AnalysisConfig) Unit() model.OutputUnit {
	if c.OutputUnit == string(model.OutputPercent) {
		return model.OutputPercent
	}
	return model.OutputHectares
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
