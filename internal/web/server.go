// Package web renders the site pages and exposes the player over HTTP and a
// websocket for the browser's audio element.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"podcastr/internal/catalog"
	"podcastr/internal/httplog"
	"podcastr/internal/metrics"
	"podcastr/internal/models"
	"podcastr/internal/player"
)

// latestCount is how many episodes the homepage shows as cards; the rest go
// in the table.
const latestCount = 2

// Catalog is the episode source the pages are generated from.
type Catalog interface {
	Latest(ctx context.Context, limit int) ([]models.Episode, error)
	Episode(ctx context.Context, id string) (models.Episode, error)
}

// Options configures a Server. Zero durations disable page caching.
type Options struct {
	Catalog Catalog
	// Store and Controller are created when nil.
	Store             *player.Store
	Controller        *player.Controller
	Metrics           *metrics.Metrics
	Logger            zerolog.Logger
	Title             string
	EpisodeLimit      int
	HomeRevalidate    time.Duration
	EpisodeRevalidate time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server wires the pages, the player endpoints and the media event channel.
type Server struct {
	catalog    Catalog
	store      *player.Store
	controller *player.Controller
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	title      string
	limit      int
	now        func() time.Time

	home     *propsCache[homeProps]
	episodes *propsCache[models.Episode]

	events chan player.MediaEvent
	hub    *hub

	handler http.Handler
	runOnce sync.Once
}

// New builds the router. Call Run to start processing media events.
func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Podcastr"
	}
	limit := opts.EpisodeLimit
	if limit <= 0 {
		limit = 12
	}
	store := opts.Store
	if store == nil {
		store = player.NewStore(player.WithObserver(opts.Metrics.PlayerAction))
	}
	controller := opts.Controller
	if controller == nil {
		controller = player.NewController(store, opts.Logger)
	}

	s := &Server{
		catalog:    opts.Catalog,
		store:      store,
		controller: controller,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		title:      title,
		limit:      limit,
		now:        now,
		home:       newPropsCache[homeProps](opts.HomeRevalidate, now),
		episodes:   newPropsCache[models.Episode](opts.EpisodeRevalidate, now),
		events:     make(chan player.MediaEvent, 64),
	}
	s.hub = newHub(s.store, s.controller, s.events, s.logger)

	r := chi.NewRouter()
	r.Use(httplog.Middleware(s.logger, s.metrics.HTTPResponse))
	r.Get("/", s.handleHome)
	r.Get("/episodes/{id}", s.handleEpisode)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/player", func(r chi.Router) {
		r.Get("/", s.handleView)
		r.Get("/ws", s.hub.serveWS)
		r.Post("/play/{id}", s.handlePlay)
		r.Post("/playlist", s.handlePlayList)
		r.Post("/toggle", s.action("toggle", s.store.TogglePlay))
		r.Post("/next", s.action("next", s.store.PlayNext))
		r.Post("/prev", s.action("prev", s.store.PlayPrev))
		r.Post("/loop", s.action("loop", s.store.ToggleLoop))
		r.Post("/shuffle", s.action("shuffle", s.store.ToggleShuffle))
		r.Post("/clear", s.action("clear", s.store.ClearPlayerState))
		r.Post("/seek", s.handleSeek)
	})

	s.handler = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Run drives the player controller and the websocket fan-out until ctx is
// done. It must be running for media events to take effect.
func (s *Server) Run(ctx context.Context) error {
	var err error
	s.runOnce.Do(func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.hub.run(ctx)
		}()
		err = s.controller.Run(ctx, s.events)
		wg.Wait()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

type homeProps struct {
	Latest []models.Episode
	All    []models.Episode
}

// Queue is the list the homepage play buttons load into the player.
func (p homeProps) Queue() []models.Episode {
	queue := make([]models.Episode, 0, len(p.Latest)+len(p.All))
	queue = append(queue, p.Latest...)
	return append(queue, p.All...)
}

func (s *Server) homeProps(ctx context.Context) (homeProps, error) {
	props, stale, err := s.home.get(ctx, "home", func(ctx context.Context) (homeProps, error) {
		episodes, err := s.catalog.Latest(ctx, s.limit)
		if err != nil {
			return homeProps{}, err
		}
		split := latestCount
		if split > len(episodes) {
			split = len(episodes)
		}
		return homeProps{Latest: episodes[:split], All: episodes[split:]}, nil
	})
	s.metrics.PageRender("home", err)
	if stale {
		s.logger.Warn().Err(err).Msg("homepage regeneration failed, serving previous version")
		return props, nil
	}
	return props, err
}

func (s *Server) episodeProps(ctx context.Context, id string) (models.Episode, error) {
	episode, stale, err := s.episodes.get(ctx, id, func(ctx context.Context) (models.Episode, error) {
		return s.catalog.Episode(ctx, id)
	})
	s.metrics.PageRender("episode", err)
	if stale {
		s.logger.Warn().Err(err).Str("episode_id", id).Msg("episode page regeneration failed, serving previous version")
		return episode, nil
	}
	return episode, err
}

// generationStatus maps a page generation failure to the response status.
func generationStatus(err error) int {
	if errors.Is(err, catalog.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn().Err(err).Msg("failed to encode response")
	}
}
