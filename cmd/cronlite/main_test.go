package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cronlite/internal/app"
	"cronlite/internal/instance"
)

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{err: fmt.Errorf("wrap: %w", app.ErrScheduleNotFound), want: exitScheduleMissing},
		{err: fmt.Errorf("wrap: %w", instance.ErrAnotherInstance), want: exitAnotherInstance},
		{err: errors.New("other"), want: exitError},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestSubcommandsDoNotCountAsInstances(t *testing.T) {
	t.Parallel()
	ignored := map[string]bool{}
	for _, name := range app.NonSchedulingSubcommands {
		ignored[name] = true
	}
	for _, sub := range newRootCmd().Commands() {
		if !ignored[sub.Name()] {
			t.Fatalf("subcommand %q missing from app.NonSchedulingSubcommands", sub.Name())
		}
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crontab.txt")
	body := "0 9 * * 0-4 backup.sh\n0 9 * * 5-6 weekend.sh\n* oops * * * broken.sh\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"check", path, "--at", "2026-01-05T09:00"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v\n%s", err, out.String())
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	if !strings.Contains(lines[2], "due") || !strings.Contains(lines[2], "backup.sh") {
		t.Fatalf("backup line = %q", lines[2])
	}
	if strings.Contains(lines[3], "due") {
		t.Fatalf("weekend line = %q", lines[3])
	}
	if !strings.Contains(lines[4], "invalid") {
		t.Fatalf("broken line = %q", lines[4])
	}
}

func TestCheckCommandMissingSchedule(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"check", filepath.Join(t.TempDir(), "none.txt")})
	err := cmd.Execute()
	if exitCode(err) != exitScheduleMissing {
		t.Fatalf("err = %v, want schedule-missing exit", err)
	}
}

func TestParseAt(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"2026-01-05T09:00", "2026-01-05 09:00", "2026-01-05T09:00:30", "2026-01-05T09:00:00Z"} {
		if _, err := parseAt(raw); err != nil {
			t.Fatalf("parseAt(%q): %v", raw, err)
		}
	}
	if _, err := parseAt("tomorrow"); err == nil {
		t.Fatal("expected error")
	}
}
