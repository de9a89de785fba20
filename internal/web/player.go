package web

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"podcastr/internal/models"
	"podcastr/internal/player"
)

// controlRequest is the JSON body accepted by the player endpoints. Form posts
// carry the same fields as form values.
type controlRequest struct {
	Index    *int   `json:"index"`
	Position *int   `json:"position"`
	ID       string `json:"id"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.View(), s.logger)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	episode, err := s.episodeProps(r.Context(), id)
	if err != nil {
		status := generationStatus(err)
		s.logger.Warn().Err(err).Str("episode_id", id).Msg("cannot play episode")
		http.Error(w, http.StatusText(status), status)
		return
	}
	s.store.Play(episode)
	s.respond(w, r)
}

func (s *Server) handlePlayList(w http.ResponseWriter, r *http.Request) {
	req, err := decodeControl(r)
	if err != nil || req.Index == nil {
		http.Error(w, "index is required", http.StatusBadRequest)
		return
	}

	props, err := s.homeProps(r.Context())
	if err != nil {
		status := generationStatus(err)
		s.logger.Warn().Err(err).Msg("cannot load episode list")
		http.Error(w, http.StatusText(status), status)
		return
	}
	queue := props.Queue()
	index, err := resolveClick(queue, *req.Index, req.ID)
	if err != nil {
		s.logger.Info().Str("episode_id", req.ID).Int("index", *req.Index).Msg("episode list changed since the page was rendered")
		http.Error(w, "the episode list changed, reload the page", http.StatusConflict)
		return
	}
	if err := s.store.PlayList(queue, index); err != nil {
		if errors.Is(err, player.ErrIndexOutOfRange) {
			http.Error(w, "index out of range", http.StatusBadRequest)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	s.respond(w, r)
}

// errListChanged means the clicked episode is no longer on the homepage.
var errListChanged = errors.New("episode list changed")

// resolveClick maps a play click to an index of queue. The page posts the
// index it rendered together with the episode id; when the homepage was
// regenerated in between, the episode is looked up by id instead.
func resolveClick(queue []models.Episode, index int, id string) (int, error) {
	if id == "" {
		return index, nil
	}
	if index >= 0 && index < len(queue) && queue[index].ID == id {
		return index, nil
	}
	for i, ep := range queue {
		if ep.ID == id {
			return i, nil
		}
	}
	return 0, errListChanged
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	req, err := decodeControl(r)
	if err != nil || req.Position == nil || *req.Position < 0 {
		http.Error(w, "position must be a non-negative number of seconds", http.StatusBadRequest)
		return
	}
	s.controller.Seek(*req.Position)
	s.respond(w, r)
}

// action adapts a store operation without arguments into a control endpoint.
func (s *Server) action(name string, apply func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apply()
		s.logger.Debug().Str("action", name).Msg("player action")
		s.respond(w, r)
	}
}

// respond answers a control request with the player view for API callers and
// a redirect back to the page for plain form posts.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.controller.View(), s.logger)
		return
	}
	// Redirects stay on this host.
	target := "/"
	if ref, err := url.Parse(r.Referer()); err == nil && strings.HasPrefix(ref.Path, "/") && !strings.HasPrefix(ref.Path, "//") {
		target = ref.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return isJSONBody(r)
}

func isJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

func decodeControl(r *http.Request) (controlRequest, error) {
	var req controlRequest
	if isJSONBody(r) {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(1 << 16); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, err
	}
	req.ID = strings.TrimSpace(r.FormValue("id"))
	for field, dst := range map[string]**int{"index": &req.Index, "position": &req.Position} {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return req, err
		}
		*dst = &value
	}
	return req, nil
}
