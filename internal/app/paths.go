package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultScheduleName is looked up next to the executable when no path is given.
const DefaultScheduleName = "crontab.txt"

// ErrScheduleNotFound is returned when the resolved schedule path does not exist.
var ErrScheduleNotFound = errors.New("schedule file not found")

// ResolveSchedulePath picks the CLI argument, then the settings value, then
// crontab.txt beside the executable, and checks the result exists.
func ResolveSchedulePath(arg, configured string) (string, error) {
	path := strings.TrimSpace(arg)
	if path == "" {
		path = strings.TrimSpace(configured)
	}
	if path == "" {
		path = defaultSchedulePath()
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	st, err := os.Stat(path)
	if err != nil {
		return path, fmt.Errorf("%w: %s: %v", ErrScheduleNotFound, path, err)
	}
	if st.IsDir() {
		return path, fmt.Errorf("%w: %s is a directory", ErrScheduleNotFound, path)
	}
	return path, nil
}

func defaultSchedulePath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultScheduleName
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), DefaultScheduleName)
}
