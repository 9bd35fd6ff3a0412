// Package instance detects other running copies of the scheduler.
//
// The check walks the current process's ancestor chain first so that neither
// the scheduler itself nor the shell or service manager that launched it is
// counted, then scans every other process for the program's signature.
package instance
