package fleetcoordinator

import (
	"context"
	"time"

	"sniper-engine/internal/model"
	"sniper-engine/internal/tokenengine"
)

// Thresholds the recovery monitor fires RecoveryOpportunity/RecoveryStrength
// against (spec §4.6). Not part of the YAML strategy tree — these are fixed
// monitor-level signal thresholds, distinct from the per-token transition
// thresholds in config.Thresholds.
const (
	recoveryMinDrawdownDepth  = 0.10
	recoveryMinStrength       = 0.20
	recoveryMinAccumulation   = 0.70
	recoveryMinBuyPressure    = 0.60
)

// recoveryMonitor polls every tracked token on the configured interval and
// emits recovery-signal events for tokens sitting in DRAWDOWN or RECOVERY
// (spec §4.6: "A periodic recovery monitor ... emits RecoveryOpportunity /
// RecoveryWarning / RecoveryStrength").
func (c *Coordinator) recoveryMonitor(ctx context.Context) {
	interval := c.timers.RecoveryMonitorInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.scanRecoveryCandidates(time.Now())
		}
	}
}

func (c *Coordinator) scanRecoveryCandidates(now time.Time) {
	c.mu.Lock()
	toks := make(map[string]*tokenengine.Token, len(c.tokens))
	for mint, tok := range c.tokens {
		toks[mint] = tok
	}
	c.mu.Unlock()

	for mint, tok := range toks {
		m := tok.RecoveryMetrics()
		if !m.Ok {
			continue
		}

		if m.DrawdownDepth < recoveryMinDrawdownDepth {
			c.bus.Publish(model.RecoveryWarning{Mint: mint, Reason: "drawdown_depth_below_minimum", TS: now})
			continue
		}

		if m.RecoveryStrength > 0 {
			c.bus.Publish(model.RecoveryStrength{Mint: mint, Strength: m.RecoveryStrength, TS: now})
		}

		if m.RecoveryStrength > recoveryMinStrength &&
			m.AccumulationScore > recoveryMinAccumulation &&
			m.BuyPressure > recoveryMinBuyPressure &&
			m.BullishStructure {
			c.bus.Publish(model.RecoveryOpportunity{
				Mint:              mint,
				DrawdownDepth:     m.DrawdownDepth,
				RecoveryStrength:  m.RecoveryStrength,
				AccumulationScore: m.AccumulationScore,
				BuyPressure:       m.BuyPressure,
				TS:                now,
			})
		}
	}
}
