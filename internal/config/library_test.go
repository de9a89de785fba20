package config

import (
	"path/filepath"
	"testing"
	"time"
)

func clearLibraryEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PODCASTR_AUDIO_DIR", "PODCASTR_LIBRARY_LISTEN", "PODCASTR_PUBLIC_URL", "PODCASTR_REFRESH_DEBOUNCE_MS"} {
		t.Setenv(key, "")
	}
}

func TestLoadLibraryFromEnvironment(t *testing.T) {
	clearLibraryEnv(t)
	dir := filepath.Join(t.TempDir(), "audio")
	t.Setenv("PODCASTR_AUDIO_DIR", dir)
	t.Setenv("PODCASTR_LIBRARY_LISTEN", "localhost:4000")
	t.Setenv("PODCASTR_PUBLIC_URL", "http://localhost:4000")
	t.Setenv("PODCASTR_REFRESH_DEBOUNCE_MS", "50")

	lib, err := LoadLibrary(nil)
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	assertSamePath(t, lib.AudioRoot, dir)
	if lib.ListenAddr != "localhost:4000" {
		t.Fatalf("unexpected listen address %q", lib.ListenAddr)
	}
	if lib.PublicURL == nil || lib.PublicURL.Host != "localhost:4000" {
		t.Fatalf("unexpected public url %v", lib.PublicURL)
	}
	if lib.Debounce != 50*time.Millisecond {
		t.Fatalf("unexpected debounce %v", lib.Debounce)
	}
	if len(lib.Extensions) == 0 || lib.LogLevel != "info" {
		t.Fatalf("unexpected defaults %+v", lib)
	}
}

func TestLoadLibraryFlagsOverrideEnvironment(t *testing.T) {
	clearLibraryEnv(t)
	t.Setenv("PODCASTR_AUDIO_DIR", filepath.Join(t.TempDir(), "env"))
	t.Setenv("PODCASTR_LIBRARY_LISTEN", "localhost:4000")
	flagDir := filepath.Join(t.TempDir(), "flag")

	lib, err := LoadLibrary([]string{"--audio-dir", flagDir, "--listen", "127.0.0.1:5000", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	assertSamePath(t, lib.AudioRoot, flagDir)
	if lib.ListenAddr != "127.0.0.1:5000" || lib.LogLevel != "debug" {
		t.Fatalf("flags not applied: %+v", lib)
	}
	if lib.PublicURL != nil {
		t.Fatalf("expected no public url, got %v", lib.PublicURL)
	}
}

func TestLoadLibraryRejectsInvalidSettings(t *testing.T) {
	clearLibraryEnv(t)
	t.Setenv("PODCASTR_AUDIO_DIR", t.TempDir())

	if _, err := LoadLibrary([]string{"--listen", "0.0.0.0:3333"}); err == nil {
		t.Fatalf("expected non-localhost listen address to be rejected")
	}
	if _, err := LoadLibrary([]string{"--public-url", "/relative"}); err == nil {
		t.Fatalf("expected relative public url to be rejected")
	}
}
