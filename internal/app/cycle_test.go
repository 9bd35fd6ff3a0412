package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cronlite/internal/dispatch"
	"cronlite/internal/schedule"
)

type recordingDispatcher struct {
	mu       sync.Mutex
	commands []string
	fail     map[string]error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, command string) dispatch.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, command)
	if err := d.fail[command]; err != nil {
		return dispatch.Result{Command: command, Err: err}
	}
	return dispatch.Result{Command: command, Pid: 100 + len(d.commands)}
}

func (d *recordingDispatcher) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

func writeSchedule(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crontab.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// 2026-01-06 09:00 is a Tuesday (weekday 1).
var tuesdayNine = time.Date(2026, 1, 6, 9, 0, 0, 0, time.Local)

func TestCycleDispatchesDueEntriesInOrder(t *testing.T) {
	t.Parallel()
	path := writeSchedule(t, `
0 9 * * 0-4 first.sh
0 10 * * * not-now.sh
bad line
* x * * * broken.sh
*/30 */3 * * * second.sh --flag
`)
	d := &recordingDispatcher{}
	c := &Cycle{Path: path, Dispatcher: d, Now: func() time.Time { return tuesdayNine }}

	rep, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	got := d.Commands()
	if len(got) != 2 || got[0] != "first.sh" || got[1] != "second.sh --flag" {
		t.Fatalf("dispatched %v", got)
	}
	if rep.Entries != 4 || rep.Due != 2 || rep.Dispatched != 2 {
		t.Fatalf("report = %+v", rep)
	}
	if !errors.Is(rep.Err, schedule.ErrInvalidField) {
		t.Fatalf("report err = %v, want ErrInvalidField", rep.Err)
	}
}

func TestCycleCollectsDispatchFailures(t *testing.T) {
	t.Parallel()
	path := writeSchedule(t, "* * * * * a.sh\n* * * * * b.sh\n* * * * * c.sh\n")
	boom := errors.New("exec format error")
	d := &recordingDispatcher{fail: map[string]error{"b.sh": boom}}
	c := &Cycle{Path: path, Dispatcher: d, Now: func() time.Time { return tuesdayNine }}

	rep, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(d.Commands()) != 3 {
		t.Fatalf("a failure must not stop the cycle: %v", d.Commands())
	}
	if rep.Dispatched != 2 || !errors.Is(rep.Err, boom) {
		t.Fatalf("report = %+v", rep)
	}
}

func TestCycleReadFailureSkipsPass(t *testing.T) {
	t.Parallel()
	d := &recordingDispatcher{}
	c := &Cycle{Path: filepath.Join(t.TempDir(), "gone.txt"), Dispatcher: d}
	if _, err := c.Run(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
	if len(d.Commands()) != 0 {
		t.Fatal("nothing should be dispatched")
	}
}

func TestCycleRereadsFileEachPass(t *testing.T) {
	t.Parallel()
	path := writeSchedule(t, "* * * * * one.sh\n")
	d := &recordingDispatcher{}
	c := &Cycle{Path: path, Dispatcher: d, Now: func() time.Time { return tuesdayNine }}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("* * * * * two.sh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := d.Commands()
	if len(got) != 2 || got[1] != "two.sh" {
		t.Fatalf("dispatched %v", got)
	}
}
