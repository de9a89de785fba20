package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var allowedExtensions = []string{
	".mp3",
	".m4a",
	".aac",
	".wav",
	".flac",
	".ogg",
}

const (
	defaultLibraryListenAddr = "127.0.0.1:3333"
	defaultRefreshDebounceMS = 500
)

// AllowedExtensions returns the list of supported audio file extensions (lowercase).
func AllowedExtensions() []string {
	result := make([]string, len(allowedExtensions))
	copy(result, allowedExtensions)
	return result
}

// ResolveAudioRoot returns the directory the library serves episodes from.
// The directory is created when it does not yet exist.
func ResolveAudioRoot() (string, error) {
	return audioRoot(os.Getenv("PODCASTR_AUDIO_DIR"))
}

func audioRoot(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(cwd, "audio")
	}

	abs, err := expandPath(dir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", err
	}

	return abs, nil
}

// LibraryListenAddr returns the TCP address the content API should bind to.
func LibraryListenAddr() string {
	return libraryListenAddr(os.Getenv("PODCASTR_LIBRARY_LISTEN"))
}

func libraryListenAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return defaultLibraryListenAddr
	}
	return addr
}

// LibraryPublicURL returns the absolute base URL used for audio and artwork
// links in API records. When unset, links are built from the request host.
func LibraryPublicURL() (*url.URL, error) {
	return publicURL(os.Getenv("PODCASTR_PUBLIC_URL"))
}

func publicURL(value string) (*url.URL, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	u, err := url.Parse(value)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("public url must be absolute")
	}
	return u, nil
}

// RefreshDebounce returns the duration to wait before refreshing the library
// after file-system change events.
func RefreshDebounce() time.Duration {
	value := strings.TrimSpace(os.Getenv("PODCASTR_REFRESH_DEBOUNCE_MS"))
	if value == "" {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}

	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		return time.Duration(defaultRefreshDebounceMS) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// ValidateListenAddr ensures the configured listen address is restricted to localhost.
func ValidateListenAddr(addr string) error {
	addr = strings.TrimSpace(strings.ToLower(addr))
	if strings.HasPrefix(addr, "127.0.0.1:") || strings.HasPrefix(addr, "localhost:") || strings.HasPrefix(addr, "[::1]:") {
		return nil
	}
	return errors.New("listen address must bind to localhost")
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	return filepath.Abs(path)
}
