// Package config loads application configuration and initializes logging.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Weather   WeatherConfig   `yaml:"weather" mapstructure:"weather"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CatalogConfig configures where species and toxicology tables come from.
type CatalogConfig struct {
	SpeciesFile    string `yaml:"species_file" mapstructure:"species_file"`
	ToxicologyFile string `yaml:"toxicology_file" mapstructure:"toxicology_file"`
}

// EngineConfig exposes the simulation tunables. Values map onto
// simulate.Params; nothing in the engine is a compiled-in constant.
type EngineConfig struct {
	StepHours           float64 `yaml:"step_hours" mapstructure:"step_hours"`
	MaxSearchHours      float64 `yaml:"max_search_hours" mapstructure:"max_search_hours"`
	SunnyOffsetC        float64 `yaml:"sunny_offset_c" mapstructure:"sunny_offset_c"`
	ShadedOffsetC       float64 `yaml:"shaded_offset_c" mapstructure:"shaded_offset_c"`
	MassColonizationADH float64 `yaml:"mass_colonization_adh" mapstructure:"mass_colonization_adh"`
	MassRampADH         float64 `yaml:"mass_ramp_adh" mapstructure:"mass_ramp_adh"`
	MassMaxHeatC        float64 `yaml:"mass_max_heat_c" mapstructure:"mass_max_heat_c"`
	VariancePct         float64 `yaml:"variance_pct" mapstructure:"variance_pct"`
	ConfidenceLevel     float64 `yaml:"confidence_level" mapstructure:"confidence_level"`
	PIAOpenHours        float64 `yaml:"pia_open_hours" mapstructure:"pia_open_hours"`
	PIAWrappedHours     float64 `yaml:"pia_wrapped_hours" mapstructure:"pia_wrapped_hours"`
	PIABuriedHours      float64 `yaml:"pia_buried_hours" mapstructure:"pia_buried_hours"`
}

// AnthropicConfig holds Anthropic API settings for narrative parsing.
type AnthropicConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	Model     string  `yaml:"model" mapstructure:"model"`
	MaxTokens int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RPS       float64 `yaml:"rps" mapstructure:"rps"`
}

// NotionConfig holds the optional Notion catalog sync settings.
type NotionConfig struct {
	Token        string `yaml:"token" mapstructure:"token"`
	SpeciesDB    string `yaml:"species_db" mapstructure:"species_db"`
	ToxicologyDB string `yaml:"toxicology_db" mapstructure:"toxicology_db"`
}

// WeatherConfig configures station archive retrieval.
type WeatherConfig struct {
	FTPURL        string `yaml:"ftp_url" mapstructure:"ftp_url"`
	StationsShp   string `yaml:"stations_shp" mapstructure:"stations_shp"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// BatchConfig configures parallel what-if runs.
type BatchConfig struct {
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("PMI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_runs", 4)
	v.SetDefault("engine.step_hours", 1.0)
	v.SetDefault("engine.max_search_hours", 0)
	v.SetDefault("engine.sunny_offset_c", 5.0)
	v.SetDefault("engine.shaded_offset_c", -2.0)
	v.SetDefault("engine.mass_colonization_adh", 350)
	v.SetDefault("engine.mass_ramp_adh", 200)
	v.SetDefault("engine.mass_max_heat_c", 5.0)
	v.SetDefault("engine.variance_pct", 0.10)
	v.SetDefault("engine.confidence_level", 0.95)
	v.SetDefault("engine.pia_open_hours", 0)
	v.SetDefault("engine.pia_wrapped_hours", 24)
	v.SetDefault("engine.pia_buried_hours", 48)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.rps", 1.0)
	v.SetDefault("weather.timeout_secs", 30)
	v.SetDefault("weather.cache_ttl_hours", 720)

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
