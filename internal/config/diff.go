package config

import (
	"reflect"
	"strings"

	logx "cronlite/pkg/logx"
)

// SummarizeConfigChange returns the changed sections and structured attrs
// describing their new values, for a single "config reloaded" log line.
//
// Sections that only take effect on restart are reported too, with
// restart_required set, so operators are not surprised.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)
	restart := false

	if strings.TrimSpace(oldCfg.PollInterval) != strings.TrimSpace(newCfg.PollInterval) {
		changed = append(changed, "poll_interval")
		attrs = append(attrs, logx.Duration("poll_interval", newCfg.PollIntervalOrDefault()))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Dispatch, newCfg.Dispatch) {
		changed = append(changed, "dispatch")
		attrs = append(attrs,
			logx.Duration("dispatch.grace_period", newCfg.GracePeriodOrDefault()),
			logx.String("dispatch.encoding", newCfg.Dispatch.Encoding),
			logx.Int("dispatch.rate_per_sec", newCfg.Dispatch.RatePerSec),
			logx.Strs("dispatch.shell", newCfg.Dispatch.Shell),
		)
	}

	if strings.TrimSpace(oldCfg.Schedule) != strings.TrimSpace(newCfg.Schedule) {
		changed = append(changed, "schedule")
		restart = true
	}

	if oldCfg.Instance.GuardEnabled() != newCfg.Instance.GuardEnabled() ||
		!reflect.DeepEqual(oldCfg.Instance.Signature, newCfg.Instance.Signature) {
		changed = append(changed, "instance")
		restart = true
	}

	if restart {
		attrs = append(attrs, logx.Bool("restart_required", true))
	}
	return changed, attrs
}
