package main

import (
	"errors"
	"os"

	"cronlite/internal/app"
	"cronlite/internal/instance"
	logx "cronlite/pkg/logx"
)

// Exit statuses for startup failures.
const (
	exitError           = 1
	exitScheduleMissing = 2
	exitAnotherInstance = 3
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		logx.NewConsole("").Error("cronlite failed", logx.Err(err), logx.Int("exit_code", code))
		os.Exit(code)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, app.ErrScheduleNotFound):
		return exitScheduleMissing
	case errors.Is(err, instance.ErrAnotherInstance):
		return exitAnotherInstance
	default:
		return exitError
	}
}
