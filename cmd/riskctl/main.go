// Command riskctl assesses proposals from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	service "github.com/okian/riskengine/internal/app"
	"github.com/okian/riskengine/internal/cli"
	"github.com/okian/riskengine/internal/config"
	"github.com/okian/riskengine/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Logs go to stderr so JSON output on stdout stays clean.
	if err := logger.Init(logger.WithOutput(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(newService)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}
	return 0
}

func newService(ctx context.Context) (cli.Service, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel))
		_ = logger.SetLevelString("info")
	}
	return service.New(ctx, cfg)
}
