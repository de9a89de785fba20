package models

import "time"

// Episode is the display shape of a single podcast episode as the pages and
// the player consume it.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Members     string `json:"members"`
	Thumbnail   string `json:"thumbnail"`
	Duration    int    `json:"duration"`
	TimeString  string `json:"time_string"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// AudioFile represents the metadata exposed for a single audio file in the
// local library.
type AudioFile struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	RelativePath    string    `json:"relative_path"`
	Title           string    `json:"title"`
	Artist          *string   `json:"artist,omitempty"`
	Album           *string   `json:"album,omitempty"`
	Comment         *string   `json:"comment,omitempty"`
	HasArtwork      bool      `json:"has_artwork"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	BitrateKbps     *int      `json:"bitrate_kbps,omitempty"`
	FilesizeBytes   int64     `json:"filesize_bytes"`
	ModifiedAt      time.Time `json:"modified_at"`
}
