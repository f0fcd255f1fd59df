// Package process runs external commands as per-item work. Each command
// runs in its own process group; cancellation sends SIGTERM to the group
// and escalates to SIGKILL after a grace period.
package process
