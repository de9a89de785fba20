package player

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"podcastr/internal/format"
	"podcastr/internal/models"
)

// EventKind names a notification coming from the media element.
type EventKind string

const (
	EventTimeUpdate     EventKind = "timeupdate"
	EventSeek           EventKind = "seek"
	EventEnded          EventKind = "ended"
	EventPlay           EventKind = "play"
	EventPause          EventKind = "pause"
	EventLoadedMetadata EventKind = "loadedmetadata"
)

// MediaEvent is a single notification from the media element. Position is in
// seconds and only meaningful for timeupdate and seek. Generation is the
// State.Generation of the episode the element was playing; events stamped
// with an earlier generation are dropped. Zero means unstamped.
type MediaEvent struct {
	Kind       EventKind `json:"type"`
	Position   float64   `json:"position,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
}

// CommandKind names an instruction for the media element.
type CommandKind string

const (
	CommandSeek    CommandKind = "seek"
	CommandRestart CommandKind = "restart"
)

// MediaCommand tells the media element to change its position.
type MediaCommand struct {
	Kind     CommandKind `json:"type"`
	Position int         `json:"position"`
}

const commandBuffer = 16

// View is everything the player widget needs to draw itself.
type View struct {
	State
	Episode        *models.Episode `json:"episode"`
	Progress       int             `json:"progress"`
	ProgressString string          `json:"progress_string"`
	DurationString string          `json:"duration_string"`
	CanShuffle     bool            `json:"can_shuffle"`
	CanPrevious    bool            `json:"can_previous"`
	CanPlay        bool            `json:"can_play"`
	CanNext        bool            `json:"can_next"`
	CanLoop        bool            `json:"can_loop"`
}

// Controller binds the media element to the store. It keeps the elapsed
// seconds counter shown next to the seek bar and decides what happens when an
// episode finishes.
type Controller struct {
	store  *Store
	logger zerolog.Logger

	mu         sync.Mutex
	progress   int
	generation uint64

	commands   chan MediaCommand
	progressed chan int
}

// NewController binds a controller to store. Progress starts at zero.
func NewController(store *Store, logger zerolog.Logger) *Controller {
	return &Controller{
		store:      store,
		logger:     logger,
		generation: store.Snapshot().Generation,
		commands:   make(chan MediaCommand, commandBuffer),
		progressed: make(chan int, 1),
	}
}

// Commands delivers instructions for the media element.
func (c *Controller) Commands() <-chan MediaCommand {
	return c.commands
}

// Progressed delivers the elapsed seconds whenever the counter changes. Slow
// readers only see the latest value.
func (c *Controller) Progressed() <-chan int {
	return c.progressed
}

// Run applies events until ctx is cancelled or events is closed.
func (c *Controller) Run(ctx context.Context, events <-chan MediaEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Handle(ev)
		}
	}
}

// Handle applies a single media event.
func (c *Controller) Handle(ev MediaEvent) {
	if ev.Kind == EventEnded {
		c.handleEnded(ev.Generation)
		return
	}
	if ev.Generation != 0 && ev.Generation != c.store.Snapshot().Generation {
		c.logger.Debug().Str("event", string(ev.Kind)).Uint64("generation", ev.Generation).Msg("dropping event for a previous episode")
		return
	}

	switch ev.Kind {
	case EventTimeUpdate:
		c.mu.Lock()
		c.syncGeneration()
		c.setProgress(seconds(ev.Position))
		c.mu.Unlock()
	case EventSeek:
		c.Seek(seconds(ev.Position))
	case EventLoadedMetadata:
		c.mu.Lock()
		c.syncGeneration()
		c.setProgress(0)
		c.mu.Unlock()
	case EventPlay:
		c.store.SetPlayingState(true)
	case EventPause:
		c.store.SetPlayingState(false)
	default:
		c.logger.Warn().Str("event", string(ev.Kind)).Msg("ignoring unknown media event")
	}
}

// Seek moves the media position and the counter at once. The position is
// clamped to the current episode's duration.
func (c *Controller) Seek(position int) {
	episode, ok := c.store.Current()
	if !ok {
		return
	}
	if position < 0 {
		position = 0
	}
	if episode.Duration > 0 && position > episode.Duration {
		position = episode.Duration
	}

	c.mu.Lock()
	c.syncGeneration()
	c.setProgress(position)
	c.mu.Unlock()

	c.send(MediaCommand{Kind: CommandSeek, Position: position})
}

// Progress returns the elapsed seconds of the current episode.
func (c *Controller) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncGeneration()
	return c.progress
}

// View renders the current state for the player widget.
func (c *Controller) View() View {
	state := c.store.Snapshot()

	c.mu.Lock()
	if state.Generation != c.generation {
		c.generation = state.Generation
		c.progress = 0
	}
	progress := c.progress
	c.mu.Unlock()

	view := View{
		State:          state,
		Progress:       progress,
		ProgressString: format.Duration(progress),
		DurationString: format.Duration(0),
	}
	if episode, ok := state.Current(); ok {
		view.Episode = &episode
		view.DurationString = episode.TimeString
		view.CanShuffle = len(state.Queue) > 1
		view.CanPrevious = state.HasPrevious
		view.CanPlay = true
		view.CanNext = state.HasNext
		view.CanLoop = true
	}
	return view
}

func (c *Controller) handleEnded(generation uint64) {
	action := c.store.Finish(generation)
	if action == EndIgnored {
		return
	}

	c.mu.Lock()
	c.syncGeneration()
	c.setProgress(0)
	c.mu.Unlock()

	if action == EndRestart {
		c.send(MediaCommand{Kind: CommandRestart})
	}
}

// syncGeneration resets the counter when the store selected another episode
// since the last event. Must be called with mu held.
func (c *Controller) syncGeneration() {
	gen := c.store.Snapshot().Generation
	if gen != c.generation {
		c.generation = gen
		c.progress = 0
	}
}

// setProgress must be called with mu held.
func (c *Controller) setProgress(progress int) {
	if progress == c.progress {
		return
	}
	c.progress = progress
	select {
	case <-c.progressed:
	default:
	}
	select {
	case c.progressed <- progress:
	default:
	}
}

func (c *Controller) send(cmd MediaCommand) {
	select {
	case c.commands <- cmd:
	default:
		c.logger.Warn().Str("command", string(cmd.Kind)).Msg("media command dropped, no reader")
	}
}

func seconds(position float64) int {
	if position <= 0 || math.IsNaN(position) || math.IsInf(position, 0) {
		return 0
	}
	return int(math.Floor(position))
}
