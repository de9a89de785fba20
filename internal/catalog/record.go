package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"podcastr/internal/format"
	"podcastr/internal/models"
)

// Record is the raw episode shape served by the content API.
type Record struct {
	ID          flexString `json:"id"`
	Title       string     `json:"title"`
	Members     string     `json:"members"`
	PublishedAt string     `json:"published_at"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail"`
	File        *File      `json:"file"`
}

// File holds the playable media fields of a record.
type File struct {
	URL      string     `json:"url"`
	Duration flexString `json:"duration"`
	Type     string     `json:"type,omitempty"`
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = flexString(n.String())
	return nil
}

// Episode validates the record and converts it to the display shape.
func (r Record) Episode() (models.Episode, error) {
	id := strings.TrimSpace(string(r.ID))
	if id == "" {
		return models.Episode{}, &ParseError{Field: "id", Reason: "missing"}
	}
	if strings.TrimSpace(r.Title) == "" {
		return models.Episode{}, &ParseError{Field: "title", Reason: "missing"}
	}
	if r.File == nil {
		return models.Episode{}, &ParseError{Field: "file", Reason: "missing"}
	}
	if strings.TrimSpace(r.File.URL) == "" {
		return models.Episode{}, &ParseError{Field: "file.url", Reason: "missing"}
	}

	duration, err := parseDuration(string(r.File.Duration))
	if err != nil {
		return models.Episode{}, &ParseError{Field: "file.duration", Reason: err.Error()}
	}

	published, err := format.ParseISODate(strings.TrimSpace(r.PublishedAt))
	if err != nil {
		return models.Episode{}, &ParseError{Field: "published_at", Reason: err.Error()}
	}

	return models.Episode{
		ID:          id,
		Title:       r.Title,
		Members:     r.Members,
		Thumbnail:   r.Thumbnail,
		Duration:    duration,
		TimeString:  format.Duration(duration),
		PublishedAt: format.PublishedDate(published),
		URL:         r.File.URL,
		Description: r.Description,
	}, nil
}

// maxDurationSeconds bounds file.duration so it fits an int everywhere.
const maxDurationSeconds = math.MaxInt32

func parseDuration(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("missing")
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("not a number: %q", value)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative: %q", value)
	}
	if seconds > maxDurationSeconds {
		return 0, fmt.Errorf("too large: %q", value)
	}
	return int(seconds), nil
}
