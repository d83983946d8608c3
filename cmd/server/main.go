package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/dotdoc/internal/api"
	"github.com/dgallion1/dotdoc/internal/config"
	"github.com/dgallion1/dotdoc/internal/logging"
	"golang.org/x/net/netutil"
)

func main() {
	cfg := config.Load()
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dotdoc-server: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, level, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("create data directory", "error", err)
		os.Exit(1)
	}
	if len(cfg.Tokens) == 0 {
		log.Warn("DOTDOC_TOKENS is empty, accepting any token")
	}

	srv := api.NewServer(log, cfg)
	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		log.Error("listen", "error", err)
		os.Exit(1)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConns)

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting dotdoc server", "port", cfg.Port, "data_dir", cfg.DataDir, "max_conns", cfg.MaxConns)
	if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
