//go:build !windows

package cmd

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// killDaemon sends SIGTERM and escalates to SIGKILL after shutdownTimeout.
func killDaemon(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	if waitExit(pid, shutdownTimeout) {
		return nil
	}
	fmt.Println("Graceful shutdown timeout, forcing kill...")
	if err := unix.Kill(pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}
	waitExit(pid, time.Second)
	return nil
}
