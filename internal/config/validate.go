package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	logx "cronlite/pkg/logx"
)

// MinPollInterval keeps a misconfigured interval from spinning the loop.
const MinPollInterval = time.Second

// Validate checks values that can be verified without touching the host.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs *multierror.Error

	if d, err := ParseDurationField("poll_interval", cfg.PollInterval); err != nil {
		errs = multierror.Append(errs, err)
	} else if d != 0 && d < MinPollInterval {
		errs = multierror.Append(errs, fmt.Errorf("poll_interval: must be >= %s", MinPollInterval))
	}
	if _, err := ParseDurationField("dispatch.grace_period", cfg.Dispatch.GracePeriod); err != nil {
		errs = multierror.Append(errs, err)
	}
	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.ParseLevel(lvl); !ok {
			errs = multierror.Append(errs, fmt.Errorf("logging.level: unknown level %q", lvl))
		}
	}
	if cfg.Dispatch.RatePerSec < 0 {
		errs = multierror.Append(errs, errors.New("dispatch.rate_per_sec: must be >= 0"))
	}
	if cfg.Dispatch.OutputLimit < 0 {
		errs = multierror.Append(errs, errors.New("dispatch.output_limit: must be >= 0"))
	}
	for i, s := range cfg.Dispatch.Shell {
		if strings.TrimSpace(s) == "" {
			errs = multierror.Append(errs, fmt.Errorf("dispatch.shell[%d]: empty argument", i))
		}
	}
	return errs.ErrorOrNil()
}

// PollIntervalOrDefault resolves poll_interval.
func (c *Config) PollIntervalOrDefault() time.Duration {
	return durationOr(c.PollInterval, DefaultPollInterval)
}

// GracePeriodOrDefault resolves dispatch.grace_period.
func (c *Config) GracePeriodOrDefault() time.Duration {
	return durationOr(c.Dispatch.GracePeriod, DefaultGracePeriod)
}

// LogConfig maps the logging section onto logx.Config.
func (c *Config) LogConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}
