//go:build windows

package dispatch

import (
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

func defaultShell() []string { return []string{"cmd", "/C"} }

// sysProcAttr passes the command line through verbatim (cmd.exe does its own
// parsing) and detaches the child from the scheduler's console process group.
func sysProcAttr(shell []string, command string) *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		CmdLine:       strings.Join(shell, " ") + " " + command,
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
		HideWindow:    true,
	}
}
