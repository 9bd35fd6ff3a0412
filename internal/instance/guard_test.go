package instance

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	logx "cronlite/pkg/logx"
)

type fakeProc struct {
	ppid    int
	cmdline []string
	hidden  bool
}

type fakeInspector struct {
	procs   map[int]fakeProc
	listErr error
}

func (f *fakeInspector) ParentPID(_ context.Context, pid int) (int, error) {
	p, ok := f.procs[pid]
	if !ok {
		return 0, errors.New("no such process")
	}
	return p.ppid, nil
}

func (f *fakeInspector) PIDs(context.Context) ([]int, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]int, 0, len(f.procs))
	for pid := range f.procs {
		out = append(out, pid)
	}
	return out, nil
}

func (f *fakeInspector) Cmdline(_ context.Context, pid int) ([]string, error) {
	p, ok := f.procs[pid]
	if !ok || p.hidden {
		return nil, errors.New("access denied")
	}
	return p.cmdline, nil
}

func newTestGuard(in Inspector, self int) *Guard {
	g := NewGuard(in, logx.Nop(), []string{"cronlite"})
	g.self = self
	return g
}

func TestCountOtherInstancesExcludesAncestors(t *testing.T) {
	t.Parallel()
	in := &fakeInspector{procs: map[int]fakeProc{
		1:    {ppid: 0, cmdline: []string{"/sbin/init"}},
		1000: {ppid: 1, cmdline: []string{"/opt/cronlite/cronlite", "crontab.txt"}},
		2000: {ppid: 1, cmdline: []string{"/opt/cronlite/CronLite", "crontab.txt"}},
	}}
	g := newTestGuard(in, 1000)

	anc := g.Ancestors(context.Background())
	if len(anc) != 2 {
		t.Fatalf("ancestors = %v, want {1000, 1}", anc)
	}
	n, err := g.CountOtherInstances(context.Background())
	if err != nil {
		t.Fatalf("CountOtherInstances error: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if err := g.Check(context.Background()); !errors.Is(err, ErrAnotherInstance) {
		t.Fatalf("Check err = %v, want ErrAnotherInstance", err)
	}
}

func TestCountOtherInstancesIgnoresLaunchingShell(t *testing.T) {
	t.Parallel()
	// The shell that started us mentions the binary but is an ancestor.
	in := &fakeInspector{procs: map[int]fakeProc{
		1:   {ppid: 0, cmdline: []string{"init"}},
		50:  {ppid: 1, cmdline: []string{"sh", "-c", "./cronlite crontab.txt"}},
		51:  {ppid: 50, cmdline: []string{"./cronlite", "crontab.txt"}},
		900: {ppid: 1, cmdline: []string{"vim", "notes.txt"}},
		901: {ppid: 1, hidden: true},
	}}
	g := newTestGuard(in, 51)
	n, err := g.CountOtherInstances(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("count = %d, %v; want 0, nil", n, err)
	}
	if err := g.Check(context.Background()); err != nil {
		t.Fatalf("Check err = %v", err)
	}
}

func TestAncestorsStopsOnCycle(t *testing.T) {
	t.Parallel()
	in := &fakeInspector{procs: map[int]fakeProc{
		10: {ppid: 11},
		11: {ppid: 12},
		12: {ppid: 10},
	}}
	g := newTestGuard(in, 10)
	anc := g.Ancestors(context.Background())
	if len(anc) != 3 {
		t.Fatalf("ancestors = %v, want 3 entries", anc)
	}
}

func TestAncestorsStopsOnLookupFailure(t *testing.T) {
	t.Parallel()
	in := &fakeInspector{procs: map[int]fakeProc{10: {ppid: 77}}}
	g := newTestGuard(in, 10)
	anc := g.Ancestors(context.Background())
	if _, ok := anc[77]; !ok || len(anc) != 2 {
		t.Fatalf("ancestors = %v, want {10, 77}", anc)
	}
}

func TestCountOtherInstancesListError(t *testing.T) {
	t.Parallel()
	g := newTestGuard(&fakeInspector{listErr: errors.New("boom")}, 1)
	if _, err := g.CountOtherInstances(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSignatureRequiresEveryToken(t *testing.T) {
	t.Parallel()
	in := &fakeInspector{procs: map[int]fakeProc{
		1: {cmdline: []string{"init"}},
		2: {ppid: 1, cmdline: []string{"python", "my_cron.py"}},
		3: {ppid: 1, cmdline: []string{"my_cron.py"}},
	}}
	g := NewGuard(in, logx.Nop(), []string{" MY_CRON.py ", "Python", ""})
	g.self = 1
	n, err := g.CountOtherInstances(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v; want 1", n, err)
	}
}

func TestProgramName(t *testing.T) {
	t.Parallel()
	if name := ProgramName(); name == "" || name != strings.ToLower(name) {
		t.Fatalf("ProgramName = %q", name)
	}
}

func TestProgramModeIgnoresUnrelatedMentions(t *testing.T) {
	t.Parallel()
	in := &fakeInspector{procs: map[int]fakeProc{
		1:  {cmdline: []string{"init"}},
		10: {ppid: 1, cmdline: []string{"/opt/cronlite/cronlite", "crontab.txt"}},
		20: {ppid: 1, cmdline: []string{"tail", "-f", "/var/log/cronlite.log"}},
		21: {ppid: 1, cmdline: []string{"vim", "/etc/cronlite.yaml"}},
		22: {ppid: 1, cmdline: []string{"/usr/local/bin/cronlite", "check", "--at", "2026-01-05T09:00"}},
		23: {ppid: 1, cmdline: []string{`C:\tools\CronLite.exe`}},
		24: {ppid: 1, cmdline: []string{"/usr/local/bin/cronlite-backup"}},
	}}
	g := NewGuard(in, logx.Nop(), nil)
	g.self = 1
	g.program = "cronlite"
	g.IgnoreSubcommands("check", "help")

	n, err := g.CountOtherInstances(context.Background())
	if err != nil {
		t.Fatalf("CountOtherInstances error: %v", err)
	}
	want := 1
	if runtime.GOOS == "windows" {
		want = 2
	}
	if n != want {
		t.Fatalf("count = %d, want %d", n, want)
	}
}
