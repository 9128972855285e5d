package config

import (
	"os"
	"time"
)

const (
	DefaultListen       = "127.0.0.1:5173"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 60 * time.Second
	DefaultScale        = 1.0
	DefaultMaxPixels    = 1 << 26
	DefaultDebounce     = 500 * time.Millisecond
	DefaultMetricsPath  = "/metrics"
)

// applyDefaults fills zero values and canonicalises enumerations.
func applyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}

	// Unknown spellings are left for Validate to reject.
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	} else if l, err := logLevels.Parse(string(cfg.Logging.Level)); err == nil {
		cfg.Logging.Level = l
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	} else if f, err := logFormats.Parse(string(cfg.Logging.Format)); err == nil {
		cfg.Logging.Format = f
	}

	if cfg.Editor.TempDir == "" {
		cfg.Editor.TempDir = os.TempDir()
	}

	if cfg.Export.DefaultScale == 0 {
		cfg.Export.DefaultScale = DefaultScale
	}
	if cfg.Export.MaxPixels == 0 {
		cfg.Export.MaxPixels = DefaultMaxPixels
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
