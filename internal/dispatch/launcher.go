package dispatch

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	defaultOutputLimit = 64 << 10
	// drainWait bounds how long Output waits for the pipe to reach EOF after
	// the process exited. Grandchildren may hold it open indefinitely.
	drainWait = 250 * time.Millisecond
)

// Process is a launched command.
type Process interface {
	Pid() int
	// Done is closed once the process exited. Output may still be draining.
	Done() <-chan struct{}
	// ExitCode is valid after Done is closed; -1 if the process was killed by
	// a signal or could not be waited for.
	ExitCode() int
	// Output returns the combined stdout/stderr captured so far. After Done it
	// waits briefly for output still in the pipe.
	Output() []byte
}

// Launcher starts shell commands.
type Launcher interface {
	Launch(ctx context.Context, command string) (Process, error)
}

// ShellLauncher runs commands through the host shell ("/bin/sh -c" or "cmd /C").
type ShellLauncher struct {
	// Shell is the interpreter argv prefix; empty selects the platform default.
	Shell []string
	// OutputLimit bounds retained output per process.
	OutputLimit int
	// Dir is the working directory; empty inherits the scheduler's.
	Dir string
}

func (l *ShellLauncher) Launch(_ context.Context, command string) (Process, error) {
	shell := l.Shell
	if len(shell) == 0 {
		shell = defaultShell()
	}
	argv := append(append([]string(nil), shell...), command)

	// Not CommandContext: children outlive the cycle that started them.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = l.Dir
	cmd.SysProcAttr = sysProcAttr(shell, command)
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	// An *os.File is handed to the child directly, so Wait returns on process
	// exit even while grandchildren keep the write end open.
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return nil, err
	}
	_ = pw.Close()

	p := &shellProcess{
		cmd:     cmd,
		out:     newTailBuffer(l.OutputLimit),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
		code:    -1,
	}
	go p.drain(pr)
	go p.reap()
	return p, nil
}

type shellProcess struct {
	cmd     *exec.Cmd
	out     *tailBuffer
	done    chan struct{}
	drained chan struct{}

	mu   sync.Mutex
	code int
}

func (p *shellProcess) drain(r *os.File) {
	defer close(p.drained)
	_, _ = io.Copy(p.out, r)
	_ = r.Close()
}

func (p *shellProcess) reap() {
	defer close(p.done)
	// The error only restates the exit status; ProcessState is set either way.
	_ = p.cmd.Wait()
	code := -1
	if p.cmd.ProcessState != nil {
		code = p.cmd.ProcessState.ExitCode()
	}
	p.mu.Lock()
	p.code = code
	p.mu.Unlock()
}

func (p *shellProcess) Pid() int              { return p.cmd.Process.Pid }
func (p *shellProcess) Done() <-chan struct{} { return p.done }

func (p *shellProcess) Output() []byte {
	select {
	case <-p.done:
		t := time.NewTimer(drainWait)
		defer t.Stop()
		select {
		case <-p.drained:
		case <-t.C:
		}
	default:
	}
	return p.out.Bytes()
}

// OutputTruncated reports whether older output was discarded.
func (p *shellProcess) OutputTruncated() bool { return p.out.Truncated() }

func (p *shellProcess) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}
