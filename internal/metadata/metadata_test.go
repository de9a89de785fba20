package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuildAudioFileWithFallbackMetadata(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path := filepath.Join(sub, "Episode One.wav")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	file, err := BuildAudioFile(path, root)
	if err != nil {
		t.Fatalf("BuildAudioFile: %v", err)
	}

	relative := filepath.ToSlash(filepath.Join("sub", "Episode One.wav"))
	if file.RelativePath != relative {
		t.Fatalf("expected relative path %s, got %s", relative, file.RelativePath)
	}
	if file.ID != IDForPath(relative) {
		t.Fatalf("expected id derived from relative path, got %s", file.ID)
	}
	if file.Title != "Episode One" {
		t.Fatalf("expected title fallback to file stem, got %s", file.Title)
	}
	if file.DurationSeconds != nil || file.BitrateKbps != nil {
		t.Fatalf("expected no duration or bitrate for non-mp3")
	}
	if file.Artist != nil || file.Comment != nil || file.HasArtwork {
		t.Fatalf("expected no tag data for untagged file: %+v", file)
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	expectedTime := stat.ModTime().UTC().Round(time.Second)
	if !file.ModifiedAt.Equal(expectedTime) {
		t.Fatalf("expected modified time %s, got %s", expectedTime, file.ModifiedAt)
	}
}

func TestIDForPathIsStableAndDistinct(t *testing.T) {
	a := IDForPath("shows/ep1.mp3")
	if a != IDForPath("shows/ep1.mp3") {
		t.Fatalf("expected identical ids for identical paths")
	}
	if a == IDForPath("shows/ep2.mp3") {
		t.Fatalf("expected distinct ids for distinct paths")
	}
	if len(a) != 36 {
		t.Fatalf("expected canonical uuid string, got %q", a)
	}
}

func TestBuildAudioFileWithInvalidMP3(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.mp3")
	if err := os.WriteFile(path, []byte("not really an mp3"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	file, err := BuildAudioFile(path, root)
	if err != nil {
		t.Fatalf("BuildAudioFile unexpected error: %v", err)
	}
	if file.DurationSeconds != nil {
		t.Fatalf("expected duration to be nil on decode error")
	}
	if file.BitrateKbps != nil {
		t.Fatalf("expected bitrate to remain nil on decode error")
	}
}

func TestReadTagsAndOptionalString(t *testing.T) {
	tags := readTags("/no/such/file.wav")
	if tags.title != "" || tags.artist != nil || tags.album != nil || tags.comment != nil || tags.hasArtwork {
		t.Fatalf("expected empty metadata on failure")
	}

	if optionalString("   ") != nil {
		t.Fatalf("expected nil for whitespace input")
	}

	value := optionalString(" value ")
	if value == nil || *value != "value" {
		t.Fatalf("expected pointer to trimmed value")
	}
}

func TestReadArtworkMissing(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "plain.wav")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := ReadArtwork(path); !errors.Is(err, ErrNoArtwork) {
		t.Fatalf("expected ErrNoArtwork, got %v", err)
	}
	if _, err := ReadArtwork(filepath.Join(root, "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestComputeMP3DurationMissingFile(t *testing.T) {
	if _, err := computeMP3Duration("/does/not/exist.mp3"); err == nil {
		t.Fatalf("expected error when file is missing")
	}
}

func TestBuildAudioFileNonexistentFile(t *testing.T) {
	root := t.TempDir()
	if _, err := BuildAudioFile(filepath.Join(root, "missing.wav"), root); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestBuildAudioFileFilesizeAndFilename(t *testing.T) {
	root := t.TempDir()
	content := []byte("some audio content here")
	path := filepath.Join(root, "clip.wav")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	file, err := BuildAudioFile(path, root)
	if err != nil {
		t.Fatalf("BuildAudioFile: %v", err)
	}
	if file.FilesizeBytes != int64(len(content)) {
		t.Fatalf("expected filesize %d, got %d", len(content), file.FilesizeBytes)
	}
	if file.Filename != "clip.wav" || file.RelativePath != "clip.wav" {
		t.Fatalf("unexpected names %q %q", file.Filename, file.RelativePath)
	}
}
