package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/chessboard-core/internal/builder"
	appcfg "github.com/park285/chessboard-core/internal/config"
	"github.com/park285/chessboard-core/internal/console"
	"github.com/park285/chessboard-core/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	logger, err := obslog.Init(obslog.OptionsFromEnv())
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := builder.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			obslog.L().Warn("close_error", zap.Error(err))
		}
	}()

	c := console.New(deps.Manager, deps.Renderer, deps.Formatter, os.Stdout)
	if err := c.Run(ctx, os.Stdin); err != nil {
		obslog.L().Error("console_error", zap.Error(err))
	}
}
