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

	"podcastr/internal/catalog"
	"podcastr/internal/config"
	"podcastr/internal/metrics"
	"podcastr/internal/player"
	"podcastr/internal/web"
)

func main() {
	site, err := config.LoadSite(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "podcastr: %v\n", err)
		os.Exit(2)
	}

	logger := config.NewLogger(os.Stdout, "podcastr", site.LogLevel)
	m := metrics.New()

	client := catalog.New(catalog.Options{
		BaseURL: site.APIBaseURL,
		HTTP:    &http.Client{Timeout: site.HTTPTimeout},
		Logger:  logger,
		Metrics: m,
	})

	store := player.NewStore(player.WithObserver(m.PlayerAction))
	controller := player.NewController(store, logger)

	srv := web.New(web.Options{
		Catalog:           client,
		Store:             store,
		Controller:        controller,
		Metrics:           m,
		Logger:            logger,
		Title:             site.Title,
		EpisodeLimit:      site.EpisodeLimit,
		HomeRevalidate:    site.HomeRevalidate,
		EpisodeRevalidate: site.EpisodeRevalidate,
	})

	httpServer := &http.Server{
		Addr:              site.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("player loop stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("graceful shutdown error")
		}
	}()

	logger.Info().Str("addr", site.ListenAddr).Str("api", site.APIBaseURL).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("shutdown complete")
}
