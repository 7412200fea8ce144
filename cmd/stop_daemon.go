package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rozadev/roza/cmd/common"
	"github.com/urfave/cli"
)

const (
	shutdownTimeout = 5 * time.Second
	pollInterval    = 100 * time.Millisecond
)

func stopDaemon(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		common.PrintRuntimeErr(ctx, "stop", "load_config", err)
		return nil
	}
	pid, err := ReadPidFile(cfg)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running (PID file not found)")
			return nil
		}
		common.PrintRuntimeErr(ctx, "stop", "read_pidfile", err)
		return nil
	}
	if !isProcessRunning(pid) {
		fmt.Printf("Daemon is not running (stale PID %d)\n", pid)
		_ = RemovePidFile(cfg)
		return nil
	}

	fmt.Printf("Stopping daemon (PID %d)...\n", pid)
	if err := killDaemon(pid); err != nil {
		common.PrintRuntimeErr(ctx, "stop", "kill", err)
		return nil
	}
	// the daemon removes its own PID file on a clean exit
	fmt.Println("Daemon stopped successfully")
	return nil
}

// waitExit polls until pid is gone or the timeout passes.
func waitExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return true
		}
		time.Sleep(pollInterval)
	}
	return !isProcessRunning(pid)
}
