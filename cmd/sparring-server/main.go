package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-sparring/internal/chessbuilder"
	appcfg "github.com/park285/cheese-sparring/internal/config"
	"github.com/park285/cheese-sparring/internal/httpapi"
	"github.com/park285/cheese-sparring/internal/obslog"
	svcchess "github.com/park285/cheese-sparring/internal/service/chess"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	closeLog, err := obslog.InitFromEnv()
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer closeLog()
	logger := obslog.L()
	defer logger.Sync()

	hub := httpapi.NewHub(logger)
	deps, err := chessbuilder.New(cfg, logger, svcchess.WithPublisher(hub))
	if err != nil {
		logger.Fatal("chess_init_failed", zap.Error(err))
	}
	defer deps.Close()

	api := httpapi.NewServer(deps.Service, hub, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.Bool("search_enabled", cfg.SearchConfigured()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok {
			logger.Error("http_server_failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_incomplete", zap.Error(err))
	}
}
