// Package streamsource defines the ingress stream contract of spec §6: a
// collaborator that delivers NewToken and Trade events and accepts
// subscribe/unsubscribe control commands. Production traffic flows through
// wsclient (gorilla/websocket against pumpportal.fun); sim provides a test
// double that replays a fixed event sequence.
package streamsource

import (
	"context"

	"sniper-engine/internal/model"
)

// Source is the stream-source contract the fleet coordinator drives.
type Source interface {
	// Run connects and delivers events until ctx is cancelled or the
	// connection is unrecoverably lost. It must auto-reconnect on
	// transient disconnects (spec §7 ExternalUnavailable: "stream
	// auto-reconnects; events during disconnect are lost and not
	// re-synthesized").
	Run(ctx context.Context) error

	// NewTokens returns the channel of create events.
	NewTokens() <-chan model.NewTokenEvent

	// Trades returns the channel of buy/sell events.
	Trades() <-chan model.TradeEvent

	// Send issues a control command (spec §6: subscribeNewToken,
	// subscribeTokenTrade, unsubscribeTokenTrade). Subscribe/unsubscribe
	// must be idempotent (spec §5).
	Send(cmd model.ControlCommand) error

	// Close releases the underlying connection.
	Close() error
}
