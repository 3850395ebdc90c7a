package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/23skdu/longview/internal/api"
	"github.com/23skdu/longview/internal/catalog"
	"github.com/23skdu/longview/internal/limiter"
	"github.com/23skdu/longview/internal/logging"
	"github.com/23skdu/longview/internal/reader"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "longview: invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info().
		Str("version", version).
		Str("data_path", cfg.DataPath).
		Str("listen_addr", cfg.ListenAddr).
		Msg("longview starting")

	mem := memory.NewGoAllocator()
	cat := catalog.New(cfg.DataPath, mem, logger)
	rdr := reader.New(logger, cfg.ReadChunkRows)
	rl := limiter.NewRateLimiter(limiter.Config{RPS: cfg.RateRPS, Burst: cfg.RateBurst})

	handler := api.NewHandler(cat, rdr, logger, api.Options{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
		PreviewLimit: cfg.PreviewLimit,
		Version:      version,
	})
	router := api.NewRouter(handler, rl, logger, cfg.WebRoot)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("address", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	logger.Info().Msg("longview stopped")
}
