// Package sim is a streamsource.Source test double that replays a fixed
// sequence of events on ticks of a configurable pace, for exercising the
// fleet coordinator without a live connection.
package sim

import (
	"context"
	"time"

	"sniper-engine/internal/model"
)

// Event is one scripted ingress event: exactly one of NewToken or Trade
// must be set.
type Event struct {
	NewToken *model.NewTokenEvent
	Trade    *model.TradeEvent
}

// Source replays Script in order, spacing emissions by Pace.
type Source struct {
	Script []Event
	Pace   time.Duration

	newTokens chan model.NewTokenEvent
	trades    chan model.TradeEvent
	sent      []model.ControlCommand
}

// New returns a Source that will replay script.
func New(script []Event, pace time.Duration) *Source {
	if pace <= 0 {
		pace = time.Millisecond
	}
	return &Source{
		Script:    script,
		Pace:      pace,
		newTokens: make(chan model.NewTokenEvent, len(script)+1),
		trades:    make(chan model.TradeEvent, len(script)+1),
	}
}

func (s *Source) NewTokens() <-chan model.NewTokenEvent { return s.newTokens }
func (s *Source) Trades() <-chan model.TradeEvent       { return s.trades }

// Run emits the script in order until exhausted or ctx is cancelled.
func (s *Source) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Pace)
	defer ticker.Stop()

	for _, evt := range s.Script {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		switch {
		case evt.NewToken != nil:
			s.newTokens <- *evt.NewToken
		case evt.Trade != nil:
			s.trades <- *evt.Trade
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

// Send records the control command; sim has no upstream to forward it to.
func (s *Source) Send(cmd model.ControlCommand) error {
	s.sent = append(s.sent, cmd)
	return nil
}

// Sent returns every control command issued so far, for test assertions.
func (s *Source) Sent() []model.ControlCommand { return s.sent }

// Close is a no-op; sim holds no external connection.
func (s *Source) Close() error { return nil }
