package library

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"podcastr/internal/metadata"
	"podcastr/internal/models"
)

// ErrUnknownEpisode is returned for identifiers that are not in the library.
var ErrUnknownEpisode = errors.New("unknown episode")

// Library monitors an audio directory and keeps the episode metadata the
// content API serves. Tags are only re-read for files whose size or
// modification time changed since the previous scan.
type Library struct {
	root     string
	allowed  map[string]struct{}
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	files   []models.AudioFile
	byID    map[string]int
	scanned map[string]scanEntry

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// scanEntry remembers what a file looked like when its tags were read.
type scanEntry struct {
	size    int64
	modTime time.Time
	file    models.AudioFile
}

// NewLibrary scans root and keeps watching it until Close.
func NewLibrary(root string, allowed []string, debounce time.Duration, logger zerolog.Logger) (*Library, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	lib := &Library{
		root:     root,
		allowed:  make(map[string]struct{}, len(allowed)),
		watcher:  watcher,
		logger:   logger,
		debounce: debounce,
		byID:     make(map[string]int),
		scanned:  make(map[string]scanEntry),
		done:     make(chan struct{}),
	}
	for _, ext := range allowed {
		lib.allowed[strings.ToLower(ext)] = struct{}{}
	}

	lib.watchTree(root)
	if err := lib.refresh(); err != nil {
		watcher.Close()
		return nil, err
	}

	lib.wg.Add(1)
	go lib.run()
	return lib, nil
}

// Close stops watching the directory.
func (l *Library) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.closeErr = l.watcher.Close()
		l.wg.Wait()
	})
	return l.closeErr
}

// Root returns the directory being served.
func (l *Library) Root() string {
	return l.root
}

// ListAudioFiles returns the episodes ordered by relative path.
func (l *Library) ListAudioFiles() []models.AudioFile {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.AudioFile, len(l.files))
	copy(result, l.files)
	return result
}

// AudioFile looks up a single episode by identifier.
func (l *Library) AudioFile(id string) (models.AudioFile, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx, ok := l.byID[id]
	if !ok {
		return models.AudioFile{}, ErrUnknownEpisode
	}
	return l.files[idx], nil
}

// Artwork reads the cover image embedded in the identified file.
func (l *Library) Artwork(id string) (metadata.Artwork, error) {
	file, err := l.AudioFile(id)
	if err != nil {
		return metadata.Artwork{}, err
	}
	if !file.HasArtwork {
		return metadata.Artwork{}, metadata.ErrNoArtwork
	}
	return metadata.ReadArtwork(filepath.Join(l.root, filepath.FromSlash(file.RelativePath)))
}

// run applies watcher events. Bursts of changes are folded into one rescan
// that starts once the directory has been quiet for the debounce interval.
func (l *Library) run() {
	defer l.wg.Done()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if !l.affectsLibrary(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(l.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			if err := l.refresh(); err != nil {
				l.logger.Error().Err(err).Msg("library rescan failed")
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn().Err(err).Msg("watcher error")
		case <-l.done:
			return
		}
	}
}

// affectsLibrary reports whether event can change the episode list. New
// directories are watched as a side effect.
func (l *Library) affectsLibrary(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			l.watchTree(event.Name)
			return true
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return true
	}
	return (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && l.isAllowed(event.Name)
}

func (l *Library) refresh() error {
	l.mu.RLock()
	previous := l.scanned
	l.mu.RUnlock()

	scanned := make(map[string]scanEntry, len(previous))
	var files []models.AudioFile
	reread := 0

	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("walk error")
			return nil
		}
		if d.IsDir() || !l.isAllowed(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("stat error")
			return nil
		}
		if entry, ok := previous[path]; ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
			scanned[path] = entry
			files = append(files, entry.file)
			return nil
		}

		file, err := metadata.BuildAudioFile(path, l.root)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("metadata error")
			return nil
		}
		reread++
		scanned[path] = scanEntry{size: info.Size(), modTime: info.ModTime(), file: file}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return err
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	byID := make(map[string]int, len(files))
	for i, file := range files {
		byID[file.ID] = i
	}

	l.mu.Lock()
	l.files = files
	l.byID = byID
	l.scanned = scanned
	l.mu.Unlock()

	l.logger.Info().Int("episodes", len(files)).Int("reread", reread).Msg("library refreshed")
	return nil
}

func (l *Library) watchTree(path string) {
	filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn().Err(err).Str("path", p).Msg("walk error")
			return nil
		}
		if d.IsDir() {
			if err := l.watcher.Add(p); err != nil {
				l.logger.Warn().Err(err).Str("path", p).Msg("watcher add failure")
			}
		}
		return nil
	})
}

func (l *Library) isAllowed(path string) bool {
	_, ok := l.allowed[strings.ToLower(filepath.Ext(path))]
	return ok
}
