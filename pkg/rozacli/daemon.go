package rozacli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"
)

const (
	daemonStartTimeout = 5 * time.Second
	healthPollInterval = 100 * time.Millisecond
	healthProbeTimeout = 500 * time.Millisecond
)

// spawn starts the daemon in the background; replaced in tests.
var spawn = spawnDaemon

// IsDaemonRunning probes the daemon's health endpoint at addr.
func IsDaemonRunning(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureDaemon starts the daemon when nothing answers at addr and waits
// for it to become healthy.
func EnsureDaemon(ctx context.Context, addr string) error {
	if IsDaemonRunning(ctx, addr) {
		return nil
	}
	if err := spawn(); err != nil {
		return err
	}
	return waitForDaemon(ctx, addr, daemonStartTimeout)
}

func waitForDaemon(ctx context.Context, addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if IsDaemonRunning(ctx, addr) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
	return fmt.Errorf("daemon failed to start within %v", timeout)
}

// daemonCommand builds the detached `roza daemon` invocation.
func daemonCommand() (*exec.Cmd, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	cmd := exec.Command(executable, "daemon")
	cmd.Env = os.Environ()
	detach(cmd)
	return cmd, nil
}

func spawnDaemon() error {
	cmd, err := daemonCommand()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	return cmd.Process.Release()
}
