//go:build windows

package cmd

import (
	"fmt"
	"os"
)

// killDaemon interrupts the daemon and kills it after shutdownTimeout.
func killDaemon(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Signal(os.Interrupt); err == nil && waitExit(pid, shutdownTimeout) {
		return nil
	}
	fmt.Println("Graceful shutdown timeout, forcing kill...")
	if err := process.Kill(); err != nil {
		return fmt.Errorf("failed to kill daemon: %w", err)
	}
	return nil
}
