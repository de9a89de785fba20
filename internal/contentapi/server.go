// Package contentapi serves the local library in the record shape the site's
// catalog fetcher reads, compatible with a json-server "episodes" resource.
package contentapi

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"net/url"
	"os"
	pathpkg "path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"podcastr/internal/httplog"
	"podcastr/internal/library"
	"podcastr/internal/metadata"
	"podcastr/internal/models"
)

// Provider abstracts the episode source for the HTTP handlers.
type Provider interface {
	ListAudioFiles() []models.AudioFile
	AudioFile(id string) (models.AudioFile, error)
	Artwork(id string) (metadata.Artwork, error)
}

type serverHandler struct {
	lib       Provider
	audioRoot string
	publicURL *url.URL
	logger    zerolog.Logger
}

// New creates the HTTP handler for the content API. When publicURL is nil,
// media links are built from the incoming request.
func New(lib Provider, audioRoot string, publicURL *url.URL, logger zerolog.Logger) http.Handler {
	cleanRoot := filepath.Clean(audioRoot)
	absRoot, err := filepath.Abs(cleanRoot)
	if err != nil {
		logger.Warn().Err(err).Str("path", audioRoot).Msg("unable to resolve absolute audio root")
		absRoot = cleanRoot
	}

	h := &serverHandler{
		lib:       lib,
		audioRoot: absRoot,
		publicURL: publicURL,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(httplog.Middleware(logger, nil))
	r.Get("/health", h.handleHealth)
	r.Get("/episodes", h.handleEpisodes)
	r.Get("/episodes/{id}", h.handleEpisode)
	r.Get("/artwork/{id}", h.handleArtwork)
	r.Get("/audio/*", h.handleAudio)
	r.Head("/audio/*", h.handleAudio)
	return r
}

type episodeRecord struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Members     string     `json:"members"`
	PublishedAt string     `json:"published_at"`
	Thumbnail   string     `json:"thumbnail"`
	Description string     `json:"description"`
	File        fileRecord `json:"file"`
}

type fileRecord struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Duration string `json:"duration"`
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, h.logger)
}

func (h *serverHandler) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	files := h.lib.ListAudioFiles()
	less, err := sortFunc(files, query.Get("_sort"), query.Get("_order"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sort.SliceStable(files, less)

	if raw := strings.TrimSpace(query.Get("_limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "_limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if limit < len(files) {
			files = files[:limit]
		}
	}

	base := h.baseURL(r)
	if base == nil {
		h.logger.Error().Msg("unable to determine request base url")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	records := make([]episodeRecord, 0, len(files))
	for _, file := range files {
		records = append(records, h.record(base, file))
	}
	writeJSON(w, http.StatusOK, records, h.logger)
}

func (h *serverHandler) handleEpisode(w http.ResponseWriter, r *http.Request) {
	file, err := h.lib.AudioFile(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, library.ErrUnknownEpisode) {
			writeJSON(w, http.StatusNotFound, map[string]string{}, h.logger)
			return
		}
		h.logger.Error().Err(err).Msg("episode lookup failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	base := h.baseURL(r)
	if base == nil {
		h.logger.Error().Msg("unable to determine request base url")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.record(base, file), h.logger)
}

func (h *serverHandler) handleArtwork(w http.ResponseWriter, r *http.Request) {
	art, err := h.lib.Artwork(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, library.ErrUnknownEpisode) || errors.Is(err, metadata.ErrNoArtwork) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Msg("artwork read failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", art.MIMEType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(art.Data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write artwork")
	}
}

func (h *serverHandler) handleAudio(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/audio/")
	rel = pathpkg.Clean(rel)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	target := filepath.Join(h.audioRoot, filepath.FromSlash(rel))
	resolved, err := filepath.Abs(target)
	if err != nil {
		h.logger.Error().Err(err).Str("path", target).Msg("failed to resolve audio path")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !pathWithinRoot(h.audioRoot, resolved) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error().Err(err).Str("path", resolved).Msg("failed to stat audio file")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, resolved)
}

func (h *serverHandler) record(base *url.URL, file models.AudioFile) episodeRecord {
	audioURL := *base
	audioURL.Path = "/" + strings.TrimLeft(pathpkg.Join("audio", file.RelativePath), "/")
	audioURL.RawQuery = ""

	thumbnail := ""
	if file.HasArtwork {
		artURL := *base
		artURL.Path = "/artwork/" + file.ID
		artURL.RawQuery = ""
		thumbnail = artURL.String()
	}

	duration := 0
	if file.DurationSeconds != nil {
		duration = int(math.Round(*file.DurationSeconds))
	}

	return episodeRecord{
		ID:          file.ID,
		Title:       file.Title,
		Members:     members(file),
		PublishedAt: file.ModifiedAt.UTC().Format(time.RFC3339),
		Thumbnail:   thumbnail,
		Description: derefString(file.Comment),
		File: fileRecord{
			URL:      audioURL.String(),
			Type:     mimeTypeForFilename(file.Filename),
			Duration: strconv.Itoa(duration),
		},
	}
}

func (h *serverHandler) baseURL(r *http.Request) *url.URL {
	if h.publicURL != nil {
		base := *h.publicURL
		base.Path = ""
		base.RawQuery = ""
		return &base
	}

	scheme := "http"
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if candidate := strings.TrimSpace(parts[0]); candidate != "" {
			scheme = candidate
		}
	} else if r.TLS != nil {
		scheme = "https"
	}

	host := strings.TrimSpace(r.Host)
	if host == "" {
		return nil
	}

	return &url.URL{Scheme: scheme, Host: host}
}

func sortFunc(files []models.AudioFile, field, order string) (func(i, j int) bool, error) {
	var less func(a, b models.AudioFile) bool
	switch strings.TrimSpace(field) {
	case "", "id":
		less = func(a, b models.AudioFile) bool { return a.RelativePath < b.RelativePath }
	case "published_at":
		less = func(a, b models.AudioFile) bool {
			if a.ModifiedAt.Equal(b.ModifiedAt) {
				return a.RelativePath < b.RelativePath
			}
			return a.ModifiedAt.Before(b.ModifiedAt)
		}
	case "title":
		less = func(a, b models.AudioFile) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		return nil, errors.New("_sort must be one of id, title, published_at")
	}

	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "asc":
		return func(i, j int) bool { return less(files[i], files[j]) }, nil
	case "desc":
		return func(i, j int) bool { return less(files[j], files[i]) }, nil
	default:
		return nil, errors.New("_order must be asc or desc")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn().Err(err).Msg("failed to encode response")
	}
}

func pathWithinRoot(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

func members(file models.AudioFile) string {
	if file.Artist != nil && *file.Artist != "" {
		return *file.Artist
	}
	return derefString(file.Album)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func mimeTypeForFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if value := mime.TypeByExtension(ext); value != "" {
			return value
		}
		if fallback, ok := fallbackMIMETypes[ext]; ok {
			return fallback
		}
	}
	return "application/octet-stream"
}

var fallbackMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
}
