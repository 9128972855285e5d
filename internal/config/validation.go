package config

import (
	"math"
	"net"
	"strings"

	ferrors "git.home.luguber.info/inful/manyvis/internal/foundation/errors"
)

// Validate checks a configuration after defaults have been applied.
func Validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.Listen); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryValidation, "invalid server.listen address").
			WithContext("listen", cfg.Server.Listen).
			Build()
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return ferrors.ValidationError("server timeouts must not be negative").Build()
	}

	if _, err := logLevels.Parse(string(cfg.Logging.Level)); err != nil {
		return err
	}
	if _, err := logFormats.Parse(string(cfg.Logging.Format)); err != nil {
		return err
	}

	if s := cfg.Export.DefaultScale; s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return ferrors.ValidationError("export.default_scale must be a positive finite number").
			WithContext("default_scale", s).
			Build()
	}
	if cfg.Export.MaxPixels <= 0 {
		return ferrors.ValidationError("export.max_pixels must be positive").
			WithContext("max_pixels", cfg.Export.MaxPixels).
			Build()
	}

	if cfg.Watch.Debounce <= 0 {
		return ferrors.ValidationError("watch.debounce must be positive").Build()
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return ferrors.ValidationError("metrics.path must start with '/'").
			WithContext("path", cfg.Metrics.Path).
			Build()
	}
	return nil
}
