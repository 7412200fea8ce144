package cmd

import (
	"context"
	"os"
	"time"

	rcommon "github.com/rozadev/roza/common"
	"github.com/rozadev/roza/pkg/rozacli"
)

const requestTimeout = 15 * time.Second

// newClient makes sure the daemon is running and dials it. A daemon spawned
// here inherits the --config choice through the environment.
var newClient = func(ctx context.Context) (*rozacli.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		os.Setenv(rcommon.ConfigEnv, configPath)
	}
	addr := cfg.Daemon.Listen
	if err := rozacli.EnsureDaemon(ctx, addr); err != nil {
		return nil, err
	}
	token, err := rpcSecret(cfg, false)
	if err != nil {
		return nil, err
	}
	client, err := rozacli.Dial(ctx, rozacli.Options{Addr: addr, Token: token})
	if err != nil {
		return nil, err
	}
	client.CheckVersionMismatch(ctx, os.Stderr, currentBuildArgs.Version)
	return client, nil
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}
