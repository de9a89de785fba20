// Package catalog fetches episode records from the content API and maps them
// into the display model.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"podcastr/internal/metrics"
	"podcastr/internal/models"
)

const (
	defaultBaseURL = "http://localhost:3333"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 2048
)

// Options configures a Client. Zero values fall back to the local content
// API address and a 15 second request timeout.
type Options struct {
	BaseURL string
	HTTP    *http.Client
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Client issues one GET per call against the content API. Failures are
// returned to the caller untouched; there are no retries.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// New returns a Client for the content API at opts.BaseURL.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: baseURL,
		http:    hc,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Latest returns up to limit episodes, newest first.
func (c *Client) Latest(ctx context.Context, limit int) ([]models.Episode, error) {
	query := url.Values{}
	query.Set("_limit", strconv.Itoa(limit))
	query.Set("_sort", "published_at")
	query.Set("_order", "desc")

	var records []Record
	err := c.get(ctx, "/episodes?"+query.Encode(), &records)
	if err == nil {
		var episodes []models.Episode
		episodes, err = toEpisodes(records)
		if err == nil {
			c.metrics.CatalogRequest("latest", nil)
			return episodes, nil
		}
	}
	c.metrics.CatalogRequest("latest", err)
	return nil, fmt.Errorf("fetch latest episodes: %w", err)
}

// Episode returns a single episode by identifier.
func (c *Client) Episode(ctx context.Context, id string) (models.Episode, error) {
	var record Record
	err := c.get(ctx, "/episodes/"+url.PathEscape(id), &record)
	if err == nil {
		var episode models.Episode
		episode, err = record.Episode()
		if err == nil {
			c.metrics.CatalogRequest("episode", nil)
			return episode, nil
		}
	}
	c.metrics.CatalogRequest("episode", err)
	return models.Episode{}, fmt.Errorf("fetch episode %s: %w", id, err)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("content api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func toEpisodes(records []Record) ([]models.Episode, error) {
	episodes := make([]models.Episode, 0, len(records))
	for i, record := range records {
		episode, err := record.Episode()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		episodes = append(episodes, episode)
	}
	return episodes, nil
}
