// Package app wires the flavor check together: the Pipeline that performs one run, the
// Scheduler that triggers notifying runs on a cron schedule, and signal-driven shutdown.
package app
