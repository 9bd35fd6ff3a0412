// Package dispatch launches due commands as detached shell processes.
//
// A dispatch never waits for the command to finish. It waits a short grace
// period and, if the process already exited non-zero, logs its exit status and
// captured output. Output is always drained in the background into a bounded
// tail buffer, so verbose long-running commands cannot stall on a full pipe.
package dispatch
