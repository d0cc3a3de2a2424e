// Package dashboardhub is a read-only WebSocket fan-out of bus events to a
// terminal dashboard collaborator (spec §6: dashboard is an external,
// out-of-scope consumer; this package only serves its egress), grounded on
// the teacher's internal/gateway hub/client write-coalescing broadcaster.
package dashboardhub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
)

// Hub fans out every event published on bus to connected WebSocket clients,
// filtered by each client's mint subscriptions.
type Hub struct {
	bus *eventbus.Bus
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]json.RawMessage
	seq     int64

	onControl func(command string)
}

// New constructs a Hub that will fan out events from bus once Run is
// called.
func New(bus *eventbus.Bus, log *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		log:     log,
		clients: make(map[*Client]bool),
		latest:  make(map[string]json.RawMessage),
	}
}

// SetControlHandler registers the callback invoked when a dashboard client
// sends a runtime command (spec §6: "stop", "resume", "quit"). fn runs on
// the client's own read-pump goroutine; it must not block.
func (h *Hub) SetControlHandler(fn func(command string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onControl = fn
}

// control dispatches a runtime command received from a dashboard client to
// the registered handler, if any.
func (h *Hub) control(command string) {
	h.mu.RLock()
	fn := h.onControl
	h.mu.RUnlock()
	if fn != nil {
		fn(command)
	}
}

// Run subscribes to the bus. Call once during startup.
func (h *Hub) Run() {
	h.bus.Subscribe(eventbus.SinkFunc(h.broadcast))
}

// envelope is the wire shape sent to every dashboard client.
type envelope struct {
	Channel string          `json:"channel"`
	Mint    string          `json:"mint,omitempty"`
	Data    json.RawMessage `json:"data"`
	TS      string          `json:"ts"`
	Seq     int64           `json:"seq"`
}

// RawEvent carries an already-serialized event received over a wire
// transport (dashboardfeed's Redis relay) rather than produced in-process.
// broadcast passes its Payload straight through instead of re-marshaling,
// since re-marshaling an unexported-field struct would lose the data.
type RawEvent struct {
	Channel string
	Mint    string
	Payload []byte
}

func (h *Hub) broadcast(evt any) {
	var channel, mint string
	var payload []byte

	if raw, ok := evt.(RawEvent); ok {
		channel, mint, payload = raw.Channel, raw.Mint, raw.Payload
	} else {
		var err error
		channel, mint = classify(evt)
		payload, err = json.Marshal(evt)
		if err != nil {
			if h.log != nil {
				h.log.Warn("dashboardhub: marshal failed", "error", err)
			}
			return
		}
	}

	now := time.Now().UTC()
	h.mu.Lock()
	h.seq++
	seq := h.seq
	key := channel
	if mint != "" {
		key = channel + ":" + mint
	}
	h.latest[key] = payload
	h.mu.Unlock()

	env := envelope{Channel: channel, Mint: mint, Data: payload, TS: now.Format(time.RFC3339Nano), Seq: seq}
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.matches(mint) {
			continue
		}
		select {
		case client.send <- buf:
		default:
		}
	}
}

// classify derives a channel label and the mint a dashboard client would
// filter on, from the concrete event type.
func classify(evt any) (channel, mint string) {
	switch e := evt.(type) {
	case model.StateChanged:
		return "state_changed", e.Mint
	case model.TokenUnsafe:
		return "token_unsafe", e.Mint
	case model.TokenDead:
		return "token_dead", e.Mint
	case model.TokenAdded:
		return "token_added", e.Mint
	case model.TokenRemoved:
		return "token_removed", e.Mint
	case model.TokenUpdated:
		return "token_updated", e.Snapshot.Identity.Mint
	case model.PositionOpened:
		return "position_opened", e.Mint
	case model.PositionUpdated:
		return "position_updated", e.Position.TokenMint
	case model.PositionClosedEvent:
		return "position_closed", e.Position.TokenMint
	case model.PartialExit:
		return "partial_exit", ""
	case model.RecoveryOpportunity:
		return "recovery_opportunity", e.Mint
	case model.RecoveryWarning:
		return "recovery_warning", e.Mint
	case model.RecoveryStrength:
		return "recovery_strength", e.Mint
	case model.Cross:
		return "cross", e.Mint
	case model.MissedOpportunityRecorded:
		return "missed_opportunity", e.Mint
	case model.ReadyForPosition:
		return "ready_for_position", e.Mint
	default:
		return "unknown", ""
	}
}

// ClientCount returns the number of connected dashboard clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds a connected client to the hub.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	if h.log != nil {
		h.log.Info("dashboardhub: client connected", "total", n)
	}
}

// remove disconnects a client and closes its send channel.
func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
}
