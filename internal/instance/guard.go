package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logx "cronlite/pkg/logx"
)

// ErrAnotherInstance is returned by Check when a duplicate scheduler is running.
var ErrAnotherInstance = errors.New("another instance is running")

// maxAncestors bounds the parent walk on hosts that report inconsistent trees.
const maxAncestors = 1024

// Guard counts other scheduler processes on the host.
//
// Without a configured signature a process counts when its argv[0] names this
// executable and its first argument is not an ignored subcommand. A
// configured signature switches to substring mode: every token must appear in
// the joined command line.
type Guard struct {
	inspector Inspector
	log       logx.Logger
	self      int
	signature []string
	program   string
	ignore    map[string]struct{}
}

// NewGuard builds a guard for the current process. An empty signature selects
// program-name matching against ProgramName().
func NewGuard(inspector Inspector, log logx.Logger, signature []string) *Guard {
	if log.IsZero() {
		log = logx.Nop()
	}
	sig := make([]string, 0, len(signature))
	for _, s := range signature {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			sig = append(sig, s)
		}
	}
	g := &Guard{
		inspector: inspector,
		log:       log.With(logx.String("comp", "instance")),
		self:      os.Getpid(),
		signature: sig,
		ignore:    map[string]struct{}{},
	}
	if len(sig) == 0 {
		g.program = ProgramName()
	}
	return g
}

// IgnoreSubcommands excludes invocations such as "cronlite check" that share
// the binary but never schedule anything. Only applies to program-name matching.
func (g *Guard) IgnoreSubcommands(names ...string) {
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			g.ignore[n] = struct{}{}
		}
	}
}

// ProgramName is the executable's base name without extension, lower-cased.
// A Go binary is its own runtime, so the name alone identifies it.
func ProgramName() string {
	name := ""
	if exe, err := os.Executable(); err == nil {
		name = exe
	} else if len(os.Args) > 0 {
		name = os.Args[0]
	}
	name = programBase(name)
	if name == "" || name == "." {
		name = "cronlite"
	}
	return name
}

func programBase(arg0 string) string {
	name := strings.ToLower(filepath.Base(strings.TrimSpace(arg0)))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Ancestors returns self and every reachable ancestor PID.
// Lookup failures end the walk early; the result always contains self.
func (g *Guard) Ancestors(ctx context.Context) map[int]struct{} {
	seen := map[int]struct{}{}
	pid := g.self
	for len(seen) < maxAncestors {
		seen[pid] = struct{}{}
		ppid, err := g.inspector.ParentPID(ctx, pid)
		if err != nil {
			g.log.Debug("ancestor walk stopped", logx.Int("pid", pid), logx.Err(err))
			break
		}
		if ppid <= 0 {
			break
		}
		if _, ok := seen[ppid]; ok {
			break
		}
		pid = ppid
	}
	return seen
}

// CountOtherInstances scans the process table for matching processes,
// skipping the current process and its ancestors. Processes that vanish or deny access mid-scan are ignored.
func (g *Guard) CountOtherInstances(ctx context.Context) (int, error) {
	ancestors := g.Ancestors(ctx)
	pids, err := g.inspector.PIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}
	count := 0
	for _, pid := range pids {
		if _, ok := ancestors[pid]; ok {
			continue
		}
		args, err := g.inspector.Cmdline(ctx, pid)
		if err != nil {
			continue
		}
		if !g.matches(args) {
			continue
		}
		g.log.Info("found running instance", logx.Int("pid", pid), logx.String("cmd", strings.Join(args, " ")))
		count++
	}
	return count, nil
}

// Check returns ErrAnotherInstance when CountOtherInstances finds anything.
func (g *Guard) Check(ctx context.Context) error {
	n, err := g.CountOtherInstances(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w (%d found)", ErrAnotherInstance, n)
	}
	return nil
}

func (g *Guard) matches(args []string) bool {
	if len(args) == 0 {
		return false
	}
	if g.program != "" {
		if programBase(args[0]) != g.program {
			return false
		}
		if len(args) > 1 {
			if _, skip := g.ignore[strings.ToLower(args[1])]; skip {
				return false
			}
		}
		return true
	}
	if len(g.signature) == 0 {
		return false
	}
	line := strings.ToLower(strings.Join(args, " "))
	for _, tok := range g.signature {
		if !strings.Contains(line, tok) {
			return false
		}
	}
	return true
}
