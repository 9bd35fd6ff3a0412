package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cronlite/internal/dispatch"
	"cronlite/internal/instance"
)

type tableInspector map[int]struct {
	ppid    int
	cmdline []string
}

func (t tableInspector) ParentPID(_ context.Context, pid int) (int, error) {
	p, ok := t[pid]
	if !ok {
		return 0, errors.New("gone")
	}
	return p.ppid, nil
}

func (t tableInspector) PIDs(context.Context) ([]int, error) {
	out := make([]int, 0, len(t))
	for pid := range t {
		out = append(out, pid)
	}
	return out, nil
}

func (t tableInspector) Cmdline(_ context.Context, pid int) ([]string, error) {
	p, ok := t[pid]
	if !ok {
		return nil, errors.New("gone")
	}
	return p.cmdline, nil
}

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cronlite.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewMissingSchedule(t *testing.T) {
	t.Parallel()
	_, err := New(Options{
		SchedulePath: filepath.Join(t.TempDir(), "absent.txt"),
		Notifier:     nopNotifier{},
	})
	if !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("err = %v, want ErrScheduleNotFound", err)
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	t.Parallel()
	sched := writeSchedule(t, "")
	cfg := writeSettings(t, "dispatch:\n  encoding: klingon\n")
	if _, err := New(Options{SchedulePath: sched, ConfigPath: cfg, Notifier: nopNotifier{}}); err == nil {
		t.Fatal("expected unknown encoding to fail")
	}
	if _, err := New(Options{SchedulePath: sched, LogLevel: "shouty", Notifier: nopNotifier{}}); err == nil {
		t.Fatal("expected unknown log level to fail")
	}
}

func TestCheckInstance(t *testing.T) {
	t.Parallel()
	sched := writeSchedule(t, "")
	self, other := os.Getpid(), os.Getpid()+1
	others := tableInspector{
		self:  {ppid: 0, cmdline: []string{"cronlite"}},
		other: {ppid: 0, cmdline: []string{"/usr/bin/cronlite", "/etc/crontab.txt"}},
	}
	settings := writeSettings(t, "logging:\n  level: error\ninstance:\n  signature: [cronlite]\n")

	a, err := New(Options{SchedulePath: sched, ConfigPath: settings, Inspector: others, Notifier: nopNotifier{}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if err := a.CheckInstance(context.Background()); !errors.Is(err, instance.ErrAnotherInstance) {
		t.Fatalf("err = %v, want ErrAnotherInstance", err)
	}

	disabled := writeSettings(t, "logging:\n  level: error\ninstance:\n  enabled: false\n")
	b, err := New(Options{SchedulePath: sched, ConfigPath: disabled, Inspector: others, Notifier: nopNotifier{}})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.CheckInstance(context.Background()); err != nil {
		t.Fatalf("disabled guard returned %v", err)
	}
}

func TestResolveSchedulePathPrefersArgument(t *testing.T) {
	t.Parallel()
	arg := writeSchedule(t, "")
	configured := writeSchedule(t, "")
	got, err := ResolveSchedulePath(arg, configured)
	if err != nil || got != arg {
		t.Fatalf("got %q, %v; want %q", got, err, arg)
	}
	got, err = ResolveSchedulePath("", configured)
	if err != nil || got != configured {
		t.Fatalf("got %q, %v; want %q", got, err, configured)
	}
	if _, err := ResolveSchedulePath(t.TempDir(), ""); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("directory accepted: %v", err)
	}
}

type slowProcess struct {
	done chan struct{}
}

func (p *slowProcess) Pid() int              { return 4242 }
func (p *slowProcess) Done() <-chan struct{} { return p.done }
func (p *slowProcess) ExitCode() int         { return 0 }
func (p *slowProcess) Output() []byte        { return nil }

type slowLauncher struct {
	runFor   time.Duration
	launched chan *slowProcess
}

func (l *slowLauncher) Launch(context.Context, string) (dispatch.Process, error) {
	p := &slowProcess{done: make(chan struct{})}
	time.AfterFunc(l.runFor, func() { close(p.done) })
	l.launched <- p
	return p, nil
}

func TestRunWaitsForInFlightCommandsOnShutdown(t *testing.T) {
	t.Parallel()
	sched := writeSchedule(t, "* * * * * long-job\n")
	settings := writeSettings(t, "logging:\n  level: error\ndispatch:\n  grace_period: 20ms\ninstance:\n  enabled: false\n")
	l := &slowLauncher{runFor: 300 * time.Millisecond, launched: make(chan *slowProcess, 1)}

	a, err := New(Options{SchedulePath: sched, ConfigPath: settings, Launcher: l, Notifier: nopNotifier{}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	var p *slowProcess
	select {
	case p = <-l.launched:
	case <-time.After(2 * time.Second):
		t.Fatal("command was never launched")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Run did not return")
	}
	select {
	case <-p.Done():
	default:
		t.Fatal("Run returned before the in-flight command finished")
	}
}
