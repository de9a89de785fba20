package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"podcastr/internal/player"
)

const (
	clientBuffer = 16
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// message is pushed to the connected pages. Audio is set on "role"
// messages and tells a page whether its media element is the one playing.
type message struct {
	Type    string               `json:"type"`
	View    *player.View         `json:"view,omitempty"`
	Command *player.MediaCommand `json:"command,omitempty"`
	Audio   *bool                `json:"audio,omitempty"`
}

func roleMessage(audio bool) message {
	return message{Type: "role", Audio: &audio}
}

type client struct {
	outgoing chan message
}

// hub relays media events from the pages to the controller and fans player
// views back out to every page. Only one page owns the audio: the most
// recently connected one. Media events from other pages are dropped and
// media commands go to the owner alone.
type hub struct {
	controller *player.Controller
	events     chan<- player.MediaEvent
	logger     zerolog.Logger

	states      <-chan player.State
	unsubscribe func()

	mu sync.Mutex
	// clients in connection order; the last one owns the audio.
	clients []*client
}

func newHub(store *player.Store, controller *player.Controller, events chan<- player.MediaEvent, logger zerolog.Logger) *hub {
	states, unsubscribe := store.Subscribe()
	return &hub{
		controller:  controller,
		events:      events,
		logger:      logger,
		states:      states,
		unsubscribe: unsubscribe,
	}
}

// run broadcasts until ctx is done.
func (h *hub) run(ctx context.Context) {
	defer h.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.states:
			h.broadcastView()
		case <-h.controller.Progressed():
			h.broadcastView()
		case cmd := <-h.controller.Commands():
			h.sendOwner(message{Type: "command", Command: &cmd})
		}
	}
}

func (h *hub) broadcastView() {
	view := h.controller.View()
	h.broadcast(message{Type: "state", View: &view})
}

func (h *hub) broadcast(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.deliver(c, msg)
	}
}

func (h *hub) sendOwner(msg message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if owner := h.owner(); owner != nil {
		h.deliver(owner, msg)
	}
}

// deliver must be called with mu held.
func (h *hub) deliver(c *client, msg message) {
	select {
	case c.outgoing <- msg:
	default:
		h.logger.Warn().Str("type", msg.Type).Msg("websocket client too slow, dropping message")
	}
}

// owner must be called with mu held.
func (h *hub) owner() *client {
	if len(h.clients) == 0 {
		return nil
	}
	return h.clients[len(h.clients)-1]
}

func (h *hub) isOwner(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner() == c
}

// register adds a page and hands it the audio.
func (h *hub) register() *client {
	c := &client{outgoing: make(chan message, clientBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if previous := h.owner(); previous != nil {
		h.deliver(previous, roleMessage(false))
	}
	h.clients = append(h.clients, c)
	h.deliver(c, roleMessage(true))
	return c
}

// unregister removes a page. When it owned the audio, the most recently
// connected remaining page takes over.
func (h *hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	wasOwner := h.owner() == c
	for i, other := range h.clients {
		if other == c {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			break
		}
	}
	if next := h.owner(); wasOwner && next != nil {
		h.deliver(next, roleMessage(true))
	}
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer ws.Close()

	c := h.register()
	defer h.unregister(c)
	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("player page connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev player.MediaEvent
			if err := ws.ReadJSON(&ev); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug().Err(err).Msg("websocket read ended")
				}
				return
			}
			if !h.isOwner(c) {
				continue
			}
			select {
			case h.events <- ev:
			case <-r.Context().Done():
				return
			}
		}
	}()

	view := h.controller.View()
	if err := h.write(ws, message{Type: "state", View: &view}); err != nil {
		return
	}
	for {
		select {
		case msg := <-c.outgoing:
			if err := h.write(ws, msg); err != nil {
				h.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-done:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

func (h *hub) write(ws *websocket.Conn, msg message) error {
	if err := ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return ws.WriteJSON(msg)
}
