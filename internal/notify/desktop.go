package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rozadev/roza/pkg/rozalib"
)

// Runner executes a command. Replaced in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Desktop shows a notification through notify-send or osascript.
type Desktop struct {
	enabled  bool
	binary   string
	lookPath func(string) (string, error)
	run      Runner
	timeout  time.Duration
}

// DesktopOptions configures Desktop.
type DesktopOptions struct {
	Enabled bool
	// Binary overrides the OS default.
	Binary   string
	LookPath func(string) (string, error)
	Runner   Runner
}

func NewDesktop(opts DesktopOptions) *Desktop {
	if opts.Binary == "" {
		opts.Binary = "notify-send"
		if runtime.GOOS == "darwin" {
			opts.Binary = "osascript"
		}
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.Runner == nil {
		opts.Runner = execRunner
	}
	return &Desktop{
		enabled:  opts.Enabled,
		binary:   opts.Binary,
		lookPath: opts.LookPath,
		run:      opts.Runner,
		timeout:  5 * time.Second,
	}
}

func (d *Desktop) Name() string { return "desktop" }

// Permission is true when enabled and the binary is on PATH.
func (d *Desktop) Permission() bool {
	if !d.enabled {
		return false
	}
	_, err := d.lookPath(d.binary)
	return err == nil
}

func (d *Desktop) Notify(ctx context.Context, n rozalib.Notification) error {
	if !d.Permission() {
		return ErrNotificationUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if d.binary == "osascript" {
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(n.Body), strconv.Quote(n.Title))
		return d.run(ctx, d.binary, "-e", script)
	}
	return d.run(ctx, d.binary, "--app-name=roza", "--urgency=critical", n.Title, n.Body)
}
