package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"cronlite/internal/dispatch"
	"cronlite/internal/schedule"
	logx "cronlite/pkg/logx"
)

// Dispatcher fires one command; see dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, command string) dispatch.Result
}

// Cycle is one pass over the schedule file.
type Cycle struct {
	Path       string
	Dispatcher Dispatcher
	Log        logx.Logger
	Now        func() time.Time
}

// CycleReport summarizes a pass.
type CycleReport struct {
	At         time.Time
	Entries    int
	Due        int
	Dispatched int
	// Err aggregates per-entry failures; nil when every entry was fine.
	Err error
}

// Run reads the schedule fresh, evaluates every entry against a single
// timestamp and dispatches the due ones in file order. A read failure skips
// the whole pass; a bad entry or failed launch only affects that entry.
func (c *Cycle) Run(ctx context.Context) (CycleReport, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	rep := CycleReport{At: now()}
	log := c.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	entries, err := schedule.ReadFile(c.Path)
	if err != nil {
		return rep, fmt.Errorf("read schedule %s: %w", c.Path, err)
	}
	rep.Entries = len(entries)

	var errs *multierror.Error
	for _, e := range entries {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		due, err := e.IsDue(rep.At)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d: %w", e.Line, err))
			log.Debug("entry skipped", logx.Int("line", e.Line), logx.Err(err))
			continue
		}
		if !due {
			continue
		}
		rep.Due++
		res := c.Dispatcher.Dispatch(ctx, e.Command)
		if res.Pid > 0 {
			rep.Dispatched++
		}
		if res.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("line %d: %w", e.Line, res.Err))
		}
	}
	rep.Err = errs.ErrorOrNil()
	return rep, nil
}
