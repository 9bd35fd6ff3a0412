package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"cronlite/internal/config"
	logx "cronlite/pkg/logx"
)

// Loop triggers a Cycle every interval. Passes never overlap: a pass still
// running when the next trigger fires causes that trigger to be skipped.
type Loop struct {
	Cycle    *Cycle
	Log      logx.Logger
	Notifier Notifier
	Interval time.Duration
	// Updates delivers reloaded settings; they are applied at the start of
	// the next pass, on the pass goroutine.
	Updates <-chan *config.Config
	Apply   func(cfg *config.Config)

	c   *cron.Cron
	id  cron.EntryID
	job cron.Job
}

// Run executes one pass immediately, then one per interval until ctx is done.
// It waits for an in-flight pass before returning.
func (l *Loop) Run(ctx context.Context) error {
	if l.Log.IsZero() {
		l.Log = logx.Nop()
	}
	if l.Notifier == nil {
		l.Notifier = nopNotifier{}
	}
	if l.Interval <= 0 {
		l.Interval = time.Minute
	}
	clog := cronLogger{log: l.Log}
	l.c = cron.New(cron.WithLocation(time.Local), cron.WithLogger(clog))
	// Wrapped once so rescheduling keeps the same skip-if-running guard.
	l.job = cron.NewChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)).
		Then(cron.FuncJob(func() { l.pass(ctx) }))

	l.Notifier.Ready()
	l.job.Run()
	l.id = l.c.Schedule(cron.Every(l.Interval), l.job)
	l.c.Start()
	l.Log.Info("poll loop started", logx.Duration("interval", l.Interval), logx.String("schedule", l.Cycle.Path))

	<-ctx.Done()
	l.Notifier.Stopping()
	<-l.c.Stop().Done()
	l.Log.Info("poll loop stopped")
	return nil
}

func (l *Loop) pass(ctx context.Context) {
	l.applyPending()
	if ctx.Err() != nil {
		return
	}
	rep, err := l.Cycle.Run(ctx)
	if err != nil {
		l.Log.Error("cycle skipped", logx.Err(err))
		return
	}
	fields := []logx.Field{
		logx.Time("at", rep.At),
		logx.Int("entries", rep.Entries),
		logx.Int("due", rep.Due),
		logx.Int("dispatched", rep.Dispatched),
	}
	if rep.Err != nil {
		l.Log.Warn("cycle finished with errors", append(fields, logx.Err(rep.Err))...)
		return
	}
	if rep.Due > 0 {
		l.Log.Info("cycle finished", fields...)
		return
	}
	l.Log.Debug("cycle finished", fields...)
}

func (l *Loop) applyPending() {
	for {
		select {
		case cfg, ok := <-l.Updates:
			if !ok {
				l.Updates = nil
				return
			}
			if cfg == nil {
				continue
			}
			if l.Apply != nil {
				l.Apply(cfg)
			}
			l.reschedule(cfg.PollIntervalOrDefault())
		default:
			return
		}
	}
}

func (l *Loop) reschedule(every time.Duration) {
	if every == l.Interval || every <= 0 {
		return
	}
	l.Interval = every
	if l.c == nil || l.id == 0 {
		return
	}
	l.c.Remove(l.id)
	l.id = l.c.Schedule(cron.Every(every), l.job)
	l.Log.Info("poll interval changed", logx.Duration("interval", every))
}
