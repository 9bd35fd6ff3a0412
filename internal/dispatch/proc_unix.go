//go:build !windows

package dispatch

import "syscall"

func defaultShell() []string { return []string{"/bin/sh", "-c"} }

// sysProcAttr puts the child in its own process group so terminal signals
// aimed at the scheduler do not reach it.
func sysProcAttr(_ []string, _ string) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
