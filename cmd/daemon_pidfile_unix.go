//go:build !windows

package cmd

import "golang.org/x/sys/unix"

// isProcessRunning probes pid with signal 0.
func isProcessRunning(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
