package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "cronlite/pkg/logx"
)

// DefaultGracePeriod is how long Dispatch waits before checking whether the
// command already failed.
const DefaultGracePeriod = 200 * time.Millisecond

// ErrExitedNonZero is wrapped by Result.Err when a command failed within the
// grace period.
var ErrExitedNonZero = errors.New("command exited non-zero")

// Options configures a Dispatcher. Zero values select defaults.
type Options struct {
	GracePeriod time.Duration
	Decoder     *OutputDecoder
	// RatePerSec caps launches per second; <= 0 disables limiting.
	RatePerSec int
}

// Result describes what was observed during the grace period.
type Result struct {
	Command string
	Pid     int
	// Exited is true when the process finished within the grace period.
	Exited   bool
	ExitCode int
	// Output is set only for commands that exited non-zero within the grace period.
	Output string
	// OutputTruncated is set when Output lost its head to the retention limit.
	OutputTruncated bool
	Err             error
}

// truncationReporter is implemented by processes that bound retained output.
type truncationReporter interface {
	OutputTruncated() bool
}

// Dispatcher fires commands and reports immediate failures.
type Dispatcher struct {
	launcher Launcher
	log      logx.Logger

	mu      sync.Mutex
	grace   time.Duration
	decoder *OutputDecoder
	limiter *rate.Limiter

	inflight sync.WaitGroup
}

func New(launcher Launcher, log logx.Logger, opts Options) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{launcher: launcher, log: log.With(logx.String("comp", "dispatch"))}
	d.Apply(opts)
	return d
}

// Apply swaps the dispatch settings. Commands already in flight keep theirs.
func (d *Dispatcher) Apply(opts Options) {
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	var lim *rate.Limiter
	if opts.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	d.mu.Lock()
	d.grace = grace
	d.decoder = opts.Decoder
	d.limiter = lim
	d.mu.Unlock()
}

func (d *Dispatcher) settings() (time.Duration, *OutputDecoder, *rate.Limiter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.grace, d.decoder, d.limiter
}

// Dispatch launches command and returns once the grace period elapsed or the
// process exited, whichever comes first. It never returns a launch failure as
// a panic or fatal error; failures are logged and reported in Result.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, command string) (res Result) {
	res = Result{Command: command, ExitCode: -1}
	grace, decoder, limiter := d.settings()
	log := d.log.With(logx.String("cmd", command))

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("dispatch %q: panic: %v", command, r)
			log.Error("dispatch panicked", logx.Any("panic", r), logx.Stack(logx.StackTrace(2, 32)))
		}
	}()

	log.Info("CMD")

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = fmt.Errorf("dispatch %q: %w", command, err)
			log.Warn("dispatch skipped", logx.Err(err))
			return res
		}
	}

	p, err := d.launcher.Launch(ctx, command)
	if err != nil {
		res.Err = fmt.Errorf("launch %q: %w", command, err)
		log.Error("launch failed", logx.Err(err), logx.Stack(logx.StackTrace(1, 16)))
		return res
	}
	res.Pid = p.Pid()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.Done():
	case <-timer.C:
	case <-ctx.Done():
	}

	select {
	case <-p.Done():
		res.Exited = true
		res.ExitCode = p.ExitCode()
	default:
	}

	if res.Exited && res.ExitCode != 0 {
		res.Output = decoder.Decode(p.Output())
		if tr, ok := p.(truncationReporter); ok {
			res.OutputTruncated = tr.OutputTruncated()
		}
		res.Err = fmt.Errorf("%w: %q exit status %d", ErrExitedNonZero, command, res.ExitCode)
		log.Warn("command failed immediately",
			logx.Int("pid", res.Pid),
			logx.Int("exit_code", res.ExitCode),
			logx.String("output", res.Output),
			logx.Bool("output_truncated", res.OutputTruncated),
		)
	}
	if !res.Exited {
		d.watch(log, p, time.Now())
	}
	log.Info("start CMD finish", logx.Int("pid", res.Pid))
	return res
}

// watch logs the eventual exit of a command that outlived the grace period.
func (d *Dispatcher) watch(log logx.Logger, p Process, started time.Time) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		<-p.Done()
		log.Debug("command finished",
			logx.Int("pid", p.Pid()),
			logx.Int("exit_code", p.ExitCode()),
			logx.Duration("after", time.Since(started)),
		)
	}()
}

// Wait blocks until every watched command has exited or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
