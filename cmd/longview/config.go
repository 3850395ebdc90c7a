package main

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config validation errors
var (
	ErrInvalidListenAddr    = errors.New("listen_addr cannot be empty")
	ErrInvalidDataPath      = errors.New("data_path cannot be empty")
	ErrInvalidLogFormat     = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel      = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidDefaultLimit  = errors.New("default_limit must be positive")
	ErrInvalidMaxLimit      = errors.New("max_limit must be at least default_limit")
	ErrInvalidPreviewLimit  = errors.New("preview_limit must be between 1 and max_limit")
	ErrInvalidChunkRows     = errors.New("read_chunk_rows must be positive")
	ErrInvalidShutdownGrace = errors.New("shutdown_grace must be positive")
)

// Config holds the server configuration. Values come from environment
// variables with the LONGVIEW prefix, optionally seeded from a .env file.
type Config struct {
	ListenAddr    string        `envconfig:"LISTEN_ADDR" default:"0.0.0.0:8080"`
	DataPath      string        `envconfig:"DATA_PATH" default:"./data"`
	WebRoot       string        `envconfig:"WEB_ROOT" default:""`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	DefaultLimit  int           `envconfig:"DEFAULT_LIMIT" default:"50"`
	MaxLimit      int           `envconfig:"MAX_LIMIT" default:"200"`
	PreviewLimit  int           `envconfig:"PREVIEW_LIMIT" default:"100"`
	ReadChunkRows int           `envconfig:"READ_CHUNK_ROWS" default:"10"`
	RateRPS       int           `envconfig:"RATE_RPS" default:"0"` // 0 means disabled
	RateBurst     int           `envconfig:"RATE_BURST" default:"0"`
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("LONGVIEW", &cfg); err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return ErrInvalidListenAddr
	}
	if cfg.DataPath == "" {
		return ErrInvalidDataPath
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	if cfg.DefaultLimit <= 0 {
		return ErrInvalidDefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		return ErrInvalidMaxLimit
	}
	if cfg.PreviewLimit <= 0 || cfg.PreviewLimit > cfg.MaxLimit {
		return ErrInvalidPreviewLimit
	}
	if cfg.ReadChunkRows <= 0 {
		return ErrInvalidChunkRows
	}
	if cfg.ShutdownGrace <= 0 {
		return ErrInvalidShutdownGrace
	}
	return nil
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		ListenAddr:    "0.0.0.0:8080",
		DataPath:      "./data",
		WebRoot:       "",
		LogFormat:     "json",
		LogLevel:      "info",
		DefaultLimit:  50,
		MaxLimit:      200,
		PreviewLimit:  100,
		ReadChunkRows: 10,
		RateRPS:       0,
		RateBurst:     0,
		ShutdownGrace: 10 * time.Second,
	}
}
