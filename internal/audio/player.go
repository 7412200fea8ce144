// Package audio implements the playback tiers used by the alert trigger.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const (
	// DefaultLocalFile is looked up in the config dir.
	DefaultLocalFile = "notification.mp3"
	// DefaultRemoteURL is the fallback chime.
	DefaultRemoteURL = "https://assets.mixkit.co/active_storage/sfx/2869/2869-preview.mp3"

	DefaultPlayTimeout = 30 * time.Second
)

var (
	ErrNoPlayer     = errors.New("no audio player command available")
	ErrMissingAsset = errors.New("audio asset not found")
)

// Runner starts a command and waits for it. Replaced in tests.
type Runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// DefaultCommand picks a player command for the host OS. The file path is
// appended as the last argument.
func DefaultCommand() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"afplay"}
	case "windows":
		return []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"}
	}
	for _, c := range [][]string{
		{"paplay"},
		{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
		{"mpg123", "-q"},
	} {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c
		}
	}
	return nil
}

// CommandPlayer plays a local file through an external program.
type CommandPlayer struct {
	name    string
	path    string
	command []string
	timeout time.Duration
	run     Runner
}

// CommandOptions configures a CommandPlayer.
type CommandOptions struct {
	// Name is the tier name reported on delivery.
	Name    string
	Command []string
	Timeout time.Duration
	Runner  Runner
}

// NewCommandPlayer plays the file at path.
func NewCommandPlayer(path string, opts CommandOptions) *CommandPlayer {
	if opts.Name == "" {
		opts.Name = "local"
	}
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPlayTimeout
	}
	if opts.Runner == nil {
		opts.Runner = execRunner
	}
	return &CommandPlayer{
		name:    opts.Name,
		path:    path,
		command: opts.Command,
		timeout: opts.Timeout,
		run:     opts.Runner,
	}
}

func (p *CommandPlayer) Name() string { return p.name }

// Path returns the file this player plays.
func (p *CommandPlayer) Path() string { return p.path }

// Play blocks until the command exits or the timeout passes.
func (p *CommandPlayer) Play(ctx context.Context) error {
	if _, err := os.Stat(p.path); err != nil {
		return fmt.Errorf("%w: %s", ErrMissingAsset, p.path)
	}
	return p.playFile(ctx, p.path)
}

func (p *CommandPlayer) playFile(ctx context.Context, path string) error {
	if len(p.command) == 0 {
		return ErrNoPlayer
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	args := append(append([]string{}, p.command[1:]...), path)
	return p.run(ctx, p.command[0], args...)
}
