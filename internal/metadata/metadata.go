package metadata

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/tcolgate/mp3"

	"podcastr/internal/models"
)

// namespace scopes the name-based episode IDs derived from relative paths.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("podcastr:library"))

// ErrNoArtwork is returned by ReadArtwork when the file carries no picture.
var ErrNoArtwork = errors.New("no embedded artwork")

// Artwork is an embedded cover image.
type Artwork struct {
	MIMEType string
	Data     []byte
}

// IDForPath returns the stable episode identifier of a library-relative path.
func IDForPath(relative string) string {
	return uuid.NewSHA1(namespace, []byte(filepath.ToSlash(relative))).String()
}

// BuildAudioFile constructs a metadata snapshot for the given audio file path.
func BuildAudioFile(path string, root string) (models.AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.AudioFile{}, err
	}

	relative, err := filepath.Rel(root, path)
	if err != nil {
		relative = filepath.Base(path)
	}
	relative = filepath.ToSlash(relative)

	tags := readTags(path)
	title := tags.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var durationPtr *float64
	var bitratePtr *int

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		dur, err := computeMP3Duration(path)
		if err == nil && dur > 0 {
			duration := dur
			durationPtr = &duration

			bitrate := int(math.Round((float64(info.Size()) * 8) / duration / 1000))
			if bitrate > 0 {
				bitratePtr = &bitrate
			}
		}
	}

	return models.AudioFile{
		ID:              IDForPath(relative),
		Filename:        filepath.Base(path),
		RelativePath:    relative,
		Title:           title,
		Artist:          tags.artist,
		Album:           tags.album,
		Comment:         tags.comment,
		HasArtwork:      tags.hasArtwork,
		DurationSeconds: durationPtr,
		BitrateKbps:     bitratePtr,
		FilesizeBytes:   info.Size(),
		ModifiedAt:      info.ModTime().UTC().Round(time.Second),
	}, nil
}

// ReadArtwork returns the picture embedded in the file's tags.
func ReadArtwork(path string) (Artwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artwork{}, err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return Artwork{}, ErrNoArtwork
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return Artwork{}, ErrNoArtwork
	}

	mimeType := pic.MIMEType
	if mimeType == "" {
		mimeType = "image/" + strings.TrimPrefix(strings.ToLower(pic.Ext), ".")
	}
	return Artwork{MIMEType: mimeType, Data: pic.Data}, nil
}

type fileTags struct {
	title      string
	artist     *string
	album      *string
	comment    *string
	hasArtwork bool
}

func readTags(path string) fileTags {
	f, err := os.Open(path)
	if err != nil {
		return fileTags{}
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fileTags{}
	}

	pic := meta.Picture()
	return fileTags{
		title:      strings.TrimSpace(meta.Title()),
		artist:     optionalString(meta.Artist()),
		album:      optionalString(meta.Album()),
		comment:    optionalString(meta.Comment()),
		hasArtwork: pic != nil && len(pic.Data) > 0,
	}
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func computeMP3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
