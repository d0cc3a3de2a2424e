// Package redisbus publishes the coordinator's event-bus traffic to Redis
// Pub/Sub channels for the external dashboard and log-writer collaborators
// (spec §6 egress contract). It is grounded on the teacher's
// internal/store/redis/writer.go (client setup, per-event-type channel
// naming) and internal/store/redis/circuitbreaker.go (failure isolation —
// spec §7 ExternalUnavailable: "fall back to cached value... events during
// disconnect are lost and not re-synthesized").
package redisbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
)

// Publisher adapts eventbus.Sink to Redis PUBLISH, one channel per event
// type, e.g. "sniper:events:state_changed".
type Publisher struct {
	client *goredis.Client
	cb     *CircuitBreaker
	log    *slog.Logger
}

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New dials Redis and returns a Publisher. The initial ping is bounded by a
// 2-second timeout; if it fails, New returns a nil Publisher and the error.
// After a successful start, publish failures trip the circuit breaker.
func New(cfg Config, log *slog.Logger) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	cb := NewCircuitBreaker(5, 10*time.Second)
	cb.OnStateChange = func(from, to State) {
		if log == nil {
			return
		}
		// spec §7 ExternalUnavailable: "events during disconnect are lost
		// and not re-synthesized" — surface the transition so an operator
		// knows the dashboard/log-writer feed just went dark or recovered.
		log.Warn("redisbus: circuit breaker transition", "from", from.String(), "to", to.String())
	}
	return &Publisher{
		client: client,
		cb:     cb,
		log:    log,
	}, nil
}

// OnEvent implements eventbus.Sink.
func (p *Publisher) OnEvent(evt any) {
	channel := channelFor(evt)
	payload, err := json.Marshal(evt)
	if err != nil {
		if p.log != nil {
			p.log.Warn("redisbus: marshal failed", "error", err)
		}
		return
	}

	err = p.cb.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		return p.client.Publish(ctx, channel, payload).Err()
	})
	if err != nil && p.log != nil {
		p.log.Debug("redisbus: publish dropped", "channel", channel, "error", err)
	}
}

// Close releases the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func channelFor(evt any) string {
	switch evt.(type) {
	case model.StateChanged:
		return "sniper:events:state_changed"
	case model.TokenUnsafe:
		return "sniper:events:token_unsafe"
	case model.TokenDead:
		return "sniper:events:token_dead"
	case model.TokenAdded:
		return "sniper:events:token_added"
	case model.TokenRemoved:
		return "sniper:events:token_removed"
	case model.TokenUpdated:
		return "sniper:events:token_updated"
	case model.PositionOpened:
		return "sniper:events:position_opened"
	case model.PositionUpdated:
		return "sniper:events:position_updated"
	case model.PositionClosedEvent:
		return "sniper:events:position_closed"
	case model.PartialExit:
		return "sniper:events:partial_exit"
	case model.RecoveryOpportunity:
		return "sniper:events:recovery_opportunity"
	case model.RecoveryWarning:
		return "sniper:events:recovery_warning"
	case model.RecoveryStrength:
		return "sniper:events:recovery_strength"
	case model.Cross:
		return "sniper:events:cross"
	case model.MissedOpportunityRecorded:
		return "sniper:events:missed_opportunity"
	case model.ReadyForPosition:
		return "sniper:events:ready_for_position"
	default:
		return "sniper:events:unknown"
	}
}

var _ eventbus.Sink = (*Publisher)(nil)
