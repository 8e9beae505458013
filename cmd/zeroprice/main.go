// Command zeroprice scans the shop listing pages once for zero-price
// products, prints the ones not seen before as JSON on stdout, and mails
// them.
//
// Usage:
//
//	zeroprice                          # crawl with built-in targets
//	zeroprice -config zeroprice.yaml   # crawl with YAML overrides
//	zeroprice -serve :8080             # browse stored results, no crawl
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hazyhaar/solarwatch/zeroprice"
)

func main() {
	configPath := flag.String("config", "", "path to zeroprice.yaml config file (optional)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	serveAddr := flag.String("serve", "", "serve the stored results on this address instead of crawling")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *serveAddr); err != nil {
		logger.Error("zeroprice: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, serveAddr string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("zeroprice: .env not loaded", "error", err)
	}

	cfg, err := zeroprice.LoadConfig(configPath, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, closeStore, err := zeroprice.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if serveAddr != "" {
		return serve(ctx, logger, serveAddr, zeroprice.Handler(st, logger))
	}

	session, err := zeroprice.OpenSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("zeroprice: close session", "error", err)
		}
	}()

	c := zeroprice.New(cfg, session, st,
		zeroprice.WithLogger(logger),
		zeroprice.WithNotifier(zeroprice.NewNotifier(cfg, logger)),
	)
	_, err = c.Run(ctx)
	return err
}

func serve(ctx context.Context, logger *slog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("zeroprice: viewer listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
