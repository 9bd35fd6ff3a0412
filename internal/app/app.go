package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cronlite/internal/config"
	"cronlite/internal/dispatch"
	"cronlite/internal/instance"
	"cronlite/internal/runtime/supervisor"
	logx "cronlite/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

// NonSchedulingSubcommands are CLI subcommands that share the binary but never
// run the poll loop, so they do not count as another instance.
var NonSchedulingSubcommands = []string{"check", "help", "completion"}

// Options wires the process-level collaborators. Nil capabilities select the
// host implementations.
type Options struct {
	// SchedulePath is the positional CLI argument; empty falls back to the
	// settings file, then crontab.txt beside the executable.
	SchedulePath string
	// ConfigPath is the optional settings file.
	ConfigPath string
	// LogLevel overrides logging.level when set.
	LogLevel string

	Inspector instance.Inspector
	Launcher  dispatch.Launcher
	Notifier  Notifier
}

type App struct {
	cfgm *config.ConfigManager
	logs *logx.Service
	log  logx.Logger

	schedulePath string
	logLevel     string
	guardEnabled bool

	guard    *instance.Guard
	launcher dispatch.Launcher
	disp     *dispatch.Dispatcher
	notifier Notifier
	interval time.Duration

	// applied is the config last applied on the poll goroutine.
	applied *config.Config
}

// New loads settings, starts logging and resolves the schedule path.
// It returns ErrScheduleNotFound when the schedule file does not exist.
func New(opts Options) (*App, error) {
	cfgm := config.NewConfigManager(opts.ConfigPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	logLevel := strings.TrimSpace(opts.LogLevel)
	if logLevel != "" {
		if _, ok := logx.ParseLevel(logLevel); !ok {
			return nil, fmt.Errorf("unknown log level %q", logLevel)
		}
	}

	a := &App{
		cfgm:         cfgm,
		logLevel:     logLevel,
		guardEnabled: cfg.Instance.GuardEnabled(),
		notifier:     opts.Notifier,
		interval:     cfg.PollIntervalOrDefault(),
		applied:      cfg,
	}
	a.logs, a.log = logx.New(a.logConfig(cfg))
	if cfgm.Path() != "" {
		a.log.Debug("settings loaded", logx.String("path", cfgm.Path()))
	}
	cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	cfgm.SetValidator(a.validate)

	path, err := ResolveSchedulePath(opts.SchedulePath, cfg.Schedule)
	if err != nil {
		_ = a.logs.Close()
		return nil, err
	}
	a.schedulePath = path

	inspector := opts.Inspector
	if inspector == nil {
		inspector = instance.HostInspector{}
	}
	a.guard = instance.NewGuard(inspector, a.log, cfg.Instance.Signature)
	a.guard.IgnoreSubcommands(NonSchedulingSubcommands...)

	a.launcher = opts.Launcher
	if a.launcher == nil {
		a.launcher = &dispatch.ShellLauncher{}
	}
	dopts, err := a.dispatchOptions(cfg)
	if err != nil {
		_ = a.logs.Close()
		return nil, err
	}
	a.configureLauncher(cfg)
	a.disp = dispatch.New(a.launcher, a.log, dopts)

	if a.notifier == nil {
		a.notifier = systemdNotifier{log: a.log.With(logx.String("comp", "systemd"))}
	}
	return a, nil
}

func (a *App) Logger() logx.Logger  { return a.log }
func (a *App) SchedulePath() string { return a.schedulePath }

// CheckInstance fails with instance.ErrAnotherInstance when another scheduler
// is already running. It is a no-op when instance.enabled is false.
func (a *App) CheckInstance(ctx context.Context) error {
	if !a.guardEnabled {
		a.log.Debug("instance check disabled")
		return nil
	}
	return a.guard.Check(ctx)
}

// Run blocks until ctx is done, polling the schedule every interval.
func (a *App) Run(ctx context.Context) error {
	sup := supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	updates := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(updates)

	loop := &Loop{
		Cycle: &Cycle{
			Path:       a.schedulePath,
			Dispatcher: a.disp,
			Log:        a.log.With(logx.String("comp", "cycle")),
		},
		Log:      a.log.With(logx.String("comp", "poll")),
		Notifier: a.notifier,
		Interval: a.interval,
		Updates:  updates,
		Apply:    a.apply,
	}

	sup.GoRestart("config.watch", a.cfgm.Watch)
	sup.Go("systemd.watchdog", func(ctx context.Context) error { return runWatchdog(ctx, a.notifier) })
	sup.Go("poll", loop.Run)

	<-sup.Context().Done()
	wctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := sup.Stop(wctx)
	// Children are never signalled; waiting only lets their exits be logged.
	if werr := a.disp.Wait(wctx); werr != nil {
		a.log.Info("commands still running at shutdown; leaving them detached")
	}
	return err
}

func (a *App) Close() error {
	return a.logs.Close()
}

// validate rejects reloads whose values only fail once resolved.
func (a *App) validate(_ context.Context, cfg *config.Config) error {
	_, err := a.dispatchOptions(cfg)
	return err
}

// apply runs on the poll goroutine between passes.
func (a *App) apply(cfg *config.Config) {
	changed, attrs := config.SummarizeConfigChange(a.applied, cfg)
	a.applied = cfg
	a.logs.Apply(a.logConfig(cfg))
	if dopts, err := a.dispatchOptions(cfg); err == nil {
		a.disp.Apply(dopts)
		a.configureLauncher(cfg)
	}
	if len(changed) > 0 {
		a.log.Info("config reloaded", append(attrs, logx.Strs("changed", changed))...)
	}
}

func (a *App) logConfig(cfg *config.Config) logx.Config {
	lc := cfg.LogConfig()
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}
	return lc
}

func (a *App) dispatchOptions(cfg *config.Config) (dispatch.Options, error) {
	dec, err := dispatch.NewOutputDecoder(cfg.Dispatch.Encoding)
	if err != nil {
		return dispatch.Options{}, err
	}
	return dispatch.Options{
		GracePeriod: cfg.GracePeriodOrDefault(),
		Decoder:     dec,
		RatePerSec:  cfg.Dispatch.RatePerSec,
	}, nil
}

func (a *App) configureLauncher(cfg *config.Config) {
	sl, ok := a.launcher.(*dispatch.ShellLauncher)
	if !ok {
		return
	}
	sl.Shell = append([]string(nil), cfg.Dispatch.Shell...)
	sl.Dir = cfg.Dispatch.Dir
	sl.OutputLimit = cfg.Dispatch.OutputLimit
}
