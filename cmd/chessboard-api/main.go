package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/chessboard-core/internal/builder"
	appcfg "github.com/park285/chessboard-core/internal/config"
	"github.com/park285/chessboard-core/internal/httpapi"
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

	deps, err := builder.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}

	var opts []httpapi.Option
	if deps.Archive != nil {
		opts = append(opts, httpapi.WithHistory(deps.Archive))
	}
	srv := httpapi.New(deps.Manager, deps.Renderer, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(cfg.HTTPAddr) }()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		obslog.L().Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			obslog.L().Error("http_serve_error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		obslog.L().Warn("http_shutdown_error", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		obslog.L().Warn("close_error", zap.Error(err))
	}
	obslog.L().Info("shutdown_complete")
}
