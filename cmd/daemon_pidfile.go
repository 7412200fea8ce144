package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rozadev/roza/internal/config"
)

// WritePidFile writes the current process ID to the PID file.
func WritePidFile(cfg *config.Config) error {
	return os.WriteFile(cfg.PidFile(), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPidFile reads and returns the PID from the PID file.
func ReadPidFile(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(cfg.PidFile())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID: %d", pid)
	}
	return pid, nil
}

// RemovePidFile removes the PID file. A missing file is not an error.
func RemovePidFile(cfg *config.Config) error {
	err := os.Remove(cfg.PidFile())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
