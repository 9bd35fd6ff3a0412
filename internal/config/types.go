package config

// Config is the optional settings file. Every field has a default, so the
// scheduler runs without one.
//
// All durations are Go duration strings (e.g. "200ms", "60s", "1m").
type Config struct {
	// Schedule is the crontab path. A positional CLI argument overrides it.
	// Changing it requires a restart.
	Schedule string `json:"schedule,omitempty"`

	// PollInterval is the delay between passes over the schedule. Default "60s".
	PollInterval string `json:"poll_interval,omitempty"`

	Logging  LoggingConfig  `json:"logging"`
	Dispatch DispatchConfig `json:"dispatch"`
	Instance InstanceConfig `json:"instance"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// DispatchConfig controls how due commands are launched.
//
// Defaults (when fields are omitted/zero):
//   - shell: platform shell ("/bin/sh -c" or "cmd /C")
//   - grace_period: "200ms"
//   - encoding: "gbk"
//   - rate_per_sec: 0 (unlimited)
//   - output_limit: 65536 bytes
type DispatchConfig struct {
	Shell       []string `json:"shell,omitempty"`
	Dir         string   `json:"dir,omitempty"`
	GracePeriod string   `json:"grace_period,omitempty"`

	// Encoding names the legacy code page used to decode failed command output.
	Encoding    string `json:"encoding,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	OutputLimit int    `json:"output_limit,omitempty"`
}

// InstanceConfig controls the duplicate-scheduler check done at startup.
//
// Enabled is a pointer so we can distinguish "omitted" (default true)
// from an explicit false.
type InstanceConfig struct {
	Enabled *bool `json:"enabled,omitempty"`
	// Signature lists tokens that must all appear (case-insensitively) in
	// another process's command line for it to count as an instance.
	// Empty selects the executable's base name.
	Signature []string `json:"signature,omitempty"`
}

// GuardEnabled reports whether the startup instance check should run.
func (c InstanceConfig) GuardEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Default returns the settings used when no settings file is given.
// Parse decodes on top of these, so omitted keys keep their defaults.
func Default() *Config {
	return &Config{
		PollInterval: "60s",
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Dispatch: DispatchConfig{
			GracePeriod: "200ms",
			Encoding:    "gbk",
		},
	}
}
