package config

import (
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Library holds the settings of the local content API.
type Library struct {
	AudioRoot  string
	ListenAddr string
	PublicURL  *url.URL
	Debounce   time.Duration
	Extensions []string
	LogLevel   string
}

// LoadLibrary resolves the content API settings from the environment, with
// command-line flags taking precedence.
func LoadLibrary(args []string) (Library, error) {
	fs := pflag.NewFlagSet("podcastr-library", pflag.ContinueOnError)
	audioDir := fs.String("audio-dir", os.Getenv("PODCASTR_AUDIO_DIR"), "directory to serve")
	listen := fs.String("listen", os.Getenv("PODCASTR_LIBRARY_LISTEN"), "address to serve the API on (localhost only)")
	public := fs.String("public-url", os.Getenv("PODCASTR_PUBLIC_URL"), "absolute base URL for audio and artwork links")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Library{}, err
	}

	root, err := audioRoot(*audioDir)
	if err != nil {
		return Library{}, err
	}
	addr := libraryListenAddr(*listen)
	if err := ValidateListenAddr(addr); err != nil {
		return Library{}, err
	}
	base, err := publicURL(*public)
	if err != nil {
		return Library{}, err
	}

	return Library{
		AudioRoot:  root,
		ListenAddr: addr,
		PublicURL:  base,
		Debounce:   RefreshDebounce(),
		Extensions: AllowedExtensions(),
		LogLevel:   *logLevel,
	}, nil
}
