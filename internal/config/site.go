package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr        = "127.0.0.1:3000"
	defaultAPIBaseURL        = "http://localhost:3333"
	defaultSiteTitle         = "Podcastr"
	defaultHomeRevalidate    = 12 * time.Hour
	defaultEpisodeRevalidate = 24 * time.Hour
	defaultEpisodeLimit      = 12
	defaultHTTPTimeout       = 15 * time.Second
	defaultLogLevel          = "info"
)

// Site holds the front-end settings.
type Site struct {
	ListenAddr        string        `yaml:"listen"`
	APIBaseURL        string        `yaml:"api_base_url"`
	Title             string        `yaml:"site_title"`
	HomeRevalidate    time.Duration `yaml:"home_revalidate"`
	EpisodeRevalidate time.Duration `yaml:"episode_revalidate"`
	EpisodeLimit      int           `yaml:"episode_limit"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	LogLevel          string        `yaml:"log_level"`
}

// DefaultSite returns the settings used when nothing is configured.
func DefaultSite() Site {
	return Site{
		ListenAddr:        defaultListenAddr,
		APIBaseURL:        defaultAPIBaseURL,
		Title:             defaultSiteTitle,
		HomeRevalidate:    defaultHomeRevalidate,
		EpisodeRevalidate: defaultEpisodeRevalidate,
		EpisodeLimit:      defaultEpisodeLimit,
		HTTPTimeout:       defaultHTTPTimeout,
		LogLevel:          defaultLogLevel,
	}
}

// LoadSite resolves the front-end settings from defaults, an optional YAML
// file, PODCASTR_* environment variables and finally command-line flags, each
// layer overriding the previous one.
func LoadSite(args []string) (Site, error) {
	site := DefaultSite()

	fs := pflag.NewFlagSet("podcastr", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML settings file")
	listen := fs.String("listen", site.ListenAddr, "address to serve the site on (localhost only)")
	apiBase := fs.String("api", site.APIBaseURL, "base URL of the content API")
	title := fs.String("title", site.Title, "site title")
	homeRevalidate := fs.Duration("home-revalidate", site.HomeRevalidate, "how long a rendered homepage is served before it is regenerated")
	episodeRevalidate := fs.Duration("episode-revalidate", site.EpisodeRevalidate, "how long a rendered episode page is served before it is regenerated")
	limit := fs.Int("limit", site.EpisodeLimit, "number of episodes listed on the homepage")
	timeout := fs.Duration("http-timeout", site.HTTPTimeout, "content API request timeout")
	logLevel := fs.String("log-level", site.LogLevel, "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return Site{}, err
	}

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PODCASTR_CONFIG"))
	}
	if path != "" {
		if err := site.mergeYAML(path); err != nil {
			return Site{}, err
		}
	}

	if err := site.mergeEnv(); err != nil {
		return Site{}, err
	}

	if fs.Changed("listen") {
		site.ListenAddr = *listen
	}
	if fs.Changed("api") {
		site.APIBaseURL = *apiBase
	}
	if fs.Changed("title") {
		site.Title = *title
	}
	if fs.Changed("home-revalidate") {
		site.HomeRevalidate = *homeRevalidate
	}
	if fs.Changed("episode-revalidate") {
		site.EpisodeRevalidate = *episodeRevalidate
	}
	if fs.Changed("limit") {
		site.EpisodeLimit = *limit
	}
	if fs.Changed("http-timeout") {
		site.HTTPTimeout = *timeout
	}
	if fs.Changed("log-level") {
		site.LogLevel = *logLevel
	}

	if err := site.Validate(); err != nil {
		return Site{}, err
	}
	return site, nil
}

// Validate rejects settings the site cannot run with.
func (s Site) Validate() error {
	if err := ValidateListenAddr(s.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.ListenAddr, err)
	}
	if strings.TrimSpace(s.APIBaseURL) == "" {
		return fmt.Errorf("api base url must not be empty")
	}
	if s.EpisodeLimit <= 0 {
		return fmt.Errorf("episode limit must be positive, got %d", s.EpisodeLimit)
	}
	if s.HomeRevalidate < 0 || s.EpisodeRevalidate < 0 {
		return fmt.Errorf("revalidate windows must not be negative")
	}
	if s.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	return nil
}

func (s *Site) mergeYAML(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("read config %s: %w", resolved, err)
	}

	var file Site
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", resolved, err)
	}

	if value := strings.TrimSpace(file.ListenAddr); value != "" {
		s.ListenAddr = value
	}
	if value := strings.TrimSpace(file.APIBaseURL); value != "" {
		s.APIBaseURL = value
	}
	if value := strings.TrimSpace(file.Title); value != "" {
		s.Title = value
	}
	if file.HomeRevalidate != 0 {
		s.HomeRevalidate = file.HomeRevalidate
	}
	if file.EpisodeRevalidate != 0 {
		s.EpisodeRevalidate = file.EpisodeRevalidate
	}
	if file.EpisodeLimit != 0 {
		s.EpisodeLimit = file.EpisodeLimit
	}
	if file.HTTPTimeout != 0 {
		s.HTTPTimeout = file.HTTPTimeout
	}
	if value := strings.TrimSpace(file.LogLevel); value != "" {
		s.LogLevel = value
	}
	return nil
}

func (s *Site) mergeEnv() error {
	if value := strings.TrimSpace(os.Getenv("PODCASTR_LISTEN_ADDR")); value != "" {
		s.ListenAddr = value
	}
	if value := strings.TrimSpace(os.Getenv("PODCASTR_API_BASE_URL")); value != "" {
		s.APIBaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("PODCASTR_SITE_TITLE")); value != "" {
		s.Title = value
	}
	if value := strings.TrimSpace(os.Getenv("PODCASTR_LOG_LEVEL")); value != "" {
		s.LogLevel = value
	}
	if value := strings.TrimSpace(os.Getenv("PODCASTR_EPISODE_LIMIT")); value != "" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PODCASTR_EPISODE_LIMIT: %w", err)
		}
		s.EpisodeLimit = n
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"PODCASTR_HOME_REVALIDATE", &s.HomeRevalidate},
		{"PODCASTR_EPISODE_REVALIDATE", &s.EpisodeRevalidate},
		{"PODCASTR_HTTP_TIMEOUT", &s.HTTPTimeout},
	}
	for _, d := range durations {
		value := strings.TrimSpace(os.Getenv(d.name))
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = parsed
	}
	return nil
}
