// Package player holds the listening queue and playback flags shared by the
// pages, and the controller that reacts to events from the media element.
package player

import (
	"errors"
	"math/rand/v2"
	"sync"

	"podcastr/internal/models"
)

// ErrIndexOutOfRange is returned by PlayList when the start index does not
// address an element of the list.
var ErrIndexOutOfRange = errors.New("player: index out of range")

// State is a point-in-time copy of the store, including the derived flags.
type State struct {
	Queue        []models.Episode `json:"queue"`
	CurrentIndex int              `json:"current_index"`
	IsPlaying    bool             `json:"is_playing"`
	IsLooping    bool             `json:"is_looping"`
	IsShuffling  bool             `json:"is_shuffling"`
	HasNext      bool             `json:"has_next"`
	HasPrevious  bool             `json:"has_previous"`
	// Generation changes every time the selected episode is (re)chosen, even
	// when shuffle lands on the same index again.
	Generation uint64 `json:"generation"`
}

// Current returns the selected episode, if any.
func (s State) Current() (models.Episode, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Queue) {
		return models.Episode{}, false
	}
	return s.Queue[s.CurrentIndex], true
}

// Option customises a Store.
type Option func(*Store)

// WithIntN replaces the random source used by shuffle. intN must return a
// value in [0, n).
func WithIntN(intN func(n int) int) Option {
	return func(s *Store) {
		s.intN = intN
	}
}

// WithObserver registers a callback invoked with the action name after every
// operation that was applied. It runs with the store locked and must not call
// back into the store.
func WithObserver(fn func(action string)) Option {
	return func(s *Store) {
		s.observe = fn
	}
}

// Store is the player state container. The zero value is not usable; create
// one with NewStore and hand it to every component that reads or drives the
// player.
type Store struct {
	mu         sync.Mutex
	queue      []models.Episode
	index      int
	playing    bool
	looping    bool
	shuffling  bool
	generation uint64

	intN    func(n int) int
	observe func(action string)

	subs    map[int]chan State
	nextSub int
}

// NewStore returns an empty store: no queue, nothing playing, loop and
// shuffle off.
func NewStore(opts ...Option) *Store {
	s := &Store{
		intN: rand.IntN,
		subs: make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play replaces the queue with a single episode and starts playback.
func (s *Store) Play(episode models.Episode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = []models.Episode{episode}
	s.index = 0
	s.playing = true
	s.generation++
	s.changed("play")
}

// PlayList replaces the queue with a copy of list and starts playback at index.
func (s *Store) PlayList(list []models.Episode, index int) error {
	if index < 0 || index >= len(list) {
		return ErrIndexOutOfRange
	}

	queue := make([]models.Episode, len(list))
	copy(queue, list)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = queue
	s.index = index
	s.playing = true
	s.generation++
	s.changed("play_list")
	return nil
}

// TogglePlay flips the playing flag. It does nothing while the queue is empty.
func (s *Store) TogglePlay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}
	s.playing = !s.playing
	s.changed("toggle_play")
}

// SetPlayingState mirrors the media element's play/pause state into the store.
// Playing cannot be switched on while the queue is empty.
func (s *Store) SetPlayingState(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playing && len(s.queue) == 0 {
		return
	}
	if s.playing == playing {
		return
	}
	s.playing = playing
	s.changed("set_playing")
}

// ToggleLoop flips the repeat flag. It is kept across clears.
func (s *Store) ToggleLoop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.looping = !s.looping
	s.changed("toggle_loop")
}

// ToggleShuffle flips random selection for PlayNext. It is kept across
// clears.
func (s *Store) ToggleShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shuffling = !s.shuffling
	s.changed("toggle_shuffle")
}

// PlayNext advances the queue. With shuffle on it picks a uniformly random
// index, which may be the current one. Without a next episode it does nothing.
func (s *Store) PlayNext() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.advance() {
		s.changed("play_next")
	}
}

// PlayPrev steps back one episode. At the head of the queue it does nothing.
func (s *Store) PlayPrev() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index-1 < 0 {
		return
	}
	s.index--
	s.generation++
	s.changed("play_prev")
}

// ClearPlayerState empties the queue and stops playback. Loop and shuffle
// preferences are kept.
func (s *Store) ClearPlayerState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.changed("clear")
}

// EndAction is what Finish did when an episode played to its end.
type EndAction int

const (
	// EndIgnored means the queue was empty or another episode had already
	// been selected.
	EndIgnored EndAction = iota
	// EndRestart means looping is on and the same episode plays again.
	EndRestart
	// EndAdvance means the next episode was selected.
	EndAdvance
	// EndClear means the last episode finished and the queue was emptied.
	EndClear
)

// Finish handles the end of the episode selected at generation. Zero stands
// for the current selection. The decision and the resulting change happen
// under one lock, so a concurrent control cannot be applied in between.
func (s *Store) Finish(generation uint64) EndAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case len(s.queue) == 0:
		return EndIgnored
	case generation != 0 && generation != s.generation:
		return EndIgnored
	case s.looping:
		return EndRestart
	case s.advance():
		s.changed("play_next")
		return EndAdvance
	default:
		s.clear()
		s.changed("clear")
		return EndClear
	}
}

// HasNext reports whether PlayNext would select an episode. With shuffle on
// that is any non-empty queue.
func (s *Store) HasNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasNext()
}

// HasPrevious reports whether the current episode is not the first.
func (s *Store) HasPrevious() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPrevious()
}

// Current returns the selected episode, or false when the queue is empty.
func (s *Store) Current() (models.Episode, bool) {
	return s.Snapshot().Current()
}

// Snapshot returns a copy of the state that is safe to keep and share.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe returns a channel that receives the latest state after each
// change. Slow readers only ever see the most recent snapshot. The returned
// function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// advance selects the next episode and reports whether it did. Must be
// called with mu held.
func (s *Store) advance() bool {
	switch {
	case len(s.queue) == 0:
		return false
	case s.shuffling:
		s.index = s.intN(len(s.queue))
	case s.index+1 < len(s.queue):
		s.index++
	default:
		return false
	}
	s.generation++
	return true
}

// clear must be called with mu held.
func (s *Store) clear() {
	s.queue = nil
	s.index = 0
	s.playing = false
	s.generation++
}

func (s *Store) hasNext() bool {
	if len(s.queue) == 0 {
		return false
	}
	return s.shuffling || s.index+1 < len(s.queue)
}

func (s *Store) hasPrevious() bool {
	return s.index-1 >= 0
}

func (s *Store) snapshot() State {
	queue := make([]models.Episode, len(s.queue))
	copy(queue, s.queue)
	return State{
		Queue:        queue,
		CurrentIndex: s.index,
		IsPlaying:    s.playing,
		IsLooping:    s.looping,
		IsShuffling:  s.shuffling,
		HasNext:      s.hasNext(),
		HasPrevious:  s.hasPrevious(),
		Generation:   s.generation,
	}
}

// changed must be called with mu held.
func (s *Store) changed(action string) {
	if s.observe != nil {
		s.observe(action)
	}
	if len(s.subs) == 0 {
		return
	}
	state := s.snapshot()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}
