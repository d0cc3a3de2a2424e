package fleetcoordinator

import (
	"context"
	"time"

	"sniper-engine/internal/model"
)

// cleanupSweep evicts inactive tokens and sweeps every surviving token's
// holder trade log on the configured interval (spec §8 Scenario F: "a token
// that stops trading for InactivityThreshold is dropped from the registry";
// spec §4.2 "Cleanup sweep: every 5 min, drop trade records older than 30
// min from every holder").
func (c *Coordinator) cleanupSweep(ctx context.Context) {
	interval := c.timers.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(time.Now())
		}
	}
}

func (c *Coordinator) sweep(now time.Time) {
	threshold := c.timers.InactivityThreshold
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}

	c.mu.Lock()
	var stale []string
	for mint, tok := range c.tokens {
		snap := tok.Snapshot()
		if snap.State.Terminal() {
			stale = append(stale, mint)
			continue
		}
		if !snap.LastTradeTime.IsZero() && now.Sub(snap.LastTradeTime) >= threshold {
			stale = append(stale, mint)
			continue
		}
		tok.SweepHolders(now)
	}
	for _, mint := range stale {
		delete(c.tokens, mint)
		delete(c.subscribed, mint)
	}
	c.mu.Unlock()

	if len(stale) == 0 {
		return
	}

	if err := c.source.Send(model.ControlCommand{Method: model.MethodUnsubscribeTokenTrade, Keys: stale}); err != nil && c.log != nil {
		c.log.WarnContext(eventCtx("cleanup_sweep", now), "fleetcoordinator: unsubscribe on cleanup failed", "error", err, "mints", stale)
	}
	for _, mint := range stale {
		c.bus.Publish(model.TokenRemoved{Mint: mint, Reason: "inactivity_sweep", TS: now})
	}
	if c.metrics != nil {
		c.metrics.ActiveTokens.Set(float64(c.tokenCount()))
	}
}
