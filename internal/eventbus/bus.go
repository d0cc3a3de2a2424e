// Package eventbus implements the single typed event bus called for in
// spec §9 ("replace the event-emitter hairball... with a single typed event
// bus per coordinator"). It follows the teacher's callback-hook convention
// (internal/marketdata/agg's OnDroppedTick, internal/marketdata/tfbuilder's
// OnTFCandle) generalized to one bus instead of one field per hook.
package eventbus

import (
	"log/slog"
	"sync"
)

// Sink receives every event published on the bus. Implementations type-
// switch on the concrete event (model.StateChanged, model.PositionOpened,
// ...) and ignore what they don't care about.
type Sink interface {
	OnEvent(evt any)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(evt any)

func (f SinkFunc) OnEvent(evt any) { f(evt) }

// Bus fans out published events to every registered sink, synchronously,
// on whichever goroutine calls Publish. It never suspends and never itself
// spawns goroutines, so
// publishing from inside a single-token state transition does not create a
// suspension point.
type Bus struct {
	mu    sync.RWMutex
	sinks []Sink
	log   *slog.Logger
}

// New creates an empty Bus.
func New(log *slog.Logger) *Bus {
	return &Bus{log: log}
}

// Subscribe registers a sink. Returns an unsubscribe function.
func (b *Bus) Subscribe(s Sink) (unsubscribe func()) {
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	idx := len(b.sinks) - 1
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.sinks) {
			b.sinks[idx] = nil
		}
	}
}

// Publish fans evt out to every live sink. A sink that panics is logged and
// skipped rather than taking down the coordinator loop.
func (b *Bus) Publish(evt any) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		if s == nil {
			continue
		}
		b.dispatch(s, evt)
	}
}

func (b *Bus) dispatch(s Sink, evt any) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Error("eventbus sink panicked", "recover", r)
		}
	}()
	s.OnEvent(evt)
}
