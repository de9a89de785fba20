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

	"github.com/spf13/pflag"

	"podcastr/internal/config"
	"podcastr/internal/contentapi"
	"podcastr/internal/library"
)

func main() {
	settings, err := config.LoadLibrary(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "podcastr-library: %v\n", err)
		os.Exit(2)
	}

	logger := config.NewLogger(os.Stdout, "podcastr-library", settings.LogLevel)

	lib, err := library.NewLibrary(settings.AudioRoot, settings.Extensions, settings.Debounce, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise library")
	}
	defer func() {
		if err := lib.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing library")
		}
	}()

	httpServer := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           contentapi.New(lib, settings.AudioRoot, settings.PublicURL, logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("graceful shutdown error")
		}
	}()

	logger.Info().Str("addr", settings.ListenAddr).Str("audio_dir", settings.AudioRoot).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("shutdown complete")
}
