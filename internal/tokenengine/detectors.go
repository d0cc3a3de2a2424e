package tokenengine

import (
	"time"

	"sniper-engine/internal/model"
	"sniper-engine/internal/statemachine"
)

// runDetectors evaluates the safety predicate, dead threshold, and
// lifecycle transitions in that priority order (safety and dead checks can
// fire from any non-terminal state, per spec §4.3's transition table), and
// publishes an event for each transition that commits. Caller must hold
// t.mu.
func (t *Token) runDetectors(now time.Time, price float64) {
	if t.sm.State().Terminal() {
		return
	}

	snap := t.snapshotLocked()
	result := t.safety(snap)
	if !result.Safe {
		if tr, ok := t.sm.MarkUnsafe(); ok {
			t.publishTransition(tr, now)
			t.bus.Publish(model.TokenUnsafe{Mint: t.identity.Mint, Reasons: result.Reasons, TS: now})
			return
		}
	}

	if t.marketCapFiat <= t.cfg.Thresholds.DeadFiat {
		if tr, ok := t.sm.MarkDead(); ok {
			t.publishTransition(tr, now)
			t.bus.Publish(model.TokenDead{Mint: t.identity.Mint, Reason: "market_cap_below_dead_threshold", TS: now})
			return
		}
	}

	switch t.sm.State() {
	case model.StateNew:
		t.detectPump(now, price)
	case model.StatePumping:
		t.detectDrawdown(now, price)
	case model.StateDrawdown:
		t.detectRecoveryFromDrawdown(now, result.Safe)
	case model.StateRecovery:
		t.detectRecoveryFromRecovery(now, price, result.Safe)
	}
}

// detectPump implements spec §4.2's pump-detection predicate and fires the
// NEW→PUMPING edge.
func (t *Token) detectPump(now time.Time, price float64) {
	gain := t.priceIncreaseLocked(5 * time.Minute)
	spike := t.volumeSpikeLocked()
	pressure := t.buyPressureLocked()

	if gain < t.cfg.Thresholds.PumpPct || spike <= 0 || pressure <= 0 {
		return
	}

	tr, ok := t.sm.EnterPumping(price)
	if !ok {
		return
	}
	t.pumpCount++
	t.lastPumpTime = now
	if gain > t.highestGainRate {
		t.highestGainRate = gain
	}
	t.publishTransition(tr, now)
}

// detectDrawdown implements spec §4.3's PUMPING→DRAWDOWN edge: drop from
// peak clears DRAWDOWN_PCT.
func (t *Token) detectDrawdown(now time.Time, price float64) {
	peak := t.sm.Peak()
	if peak <= 0 {
		return
	}
	drop := (peak - price) / peak * 100
	if drop < t.cfg.Thresholds.DrawdownPct {
		return
	}
	if tr, ok := t.sm.EnterDrawdown(price); ok {
		t.publishTransition(tr, now)
	}
}

// detectRecoveryFromDrawdown implements spec §4.3's DRAWDOWN→RECOVERY/READY
// edge: rebound from bottom clears RECOVERY_MIN_GAIN_PCT, branching on
// safety.
func (t *Token) detectRecoveryFromDrawdown(now time.Time, safe bool) {
	bottom := t.sm.Bottom()
	if bottom <= 0 {
		return
	}
	cur := t.reserves.Price()
	gain := (cur - bottom) / bottom * 100
	if gain < t.cfg.Thresholds.RecoveryMinGainPct {
		return
	}
	if tr, ok := t.sm.ResolveDrawdown(safe); ok {
		t.publishTransition(tr, now)
		if tr.To == model.StateReady {
			t.publishReadyForPosition(now, model.SizeHintFull)
		}
	}
}

// detectRecoveryFromRecovery implements spec §4.3's RECOVERY→READY edge
// (gain settled within the entry window and safe) and RECOVERY→DRAWDOWN
// edge (a fresh drawdown cycle starts).
func (t *Token) detectRecoveryFromRecovery(now time.Time, price float64, safe bool) {
	bottom := t.sm.Bottom()
	if bottom <= 0 {
		return
	}
	gain := (price - bottom) / bottom * 100

	if gain >= t.cfg.Recovery.Gain.Min && gain <= t.cfg.Recovery.Gain.MaxEntry && safe {
		if tr, ok := t.sm.ResolveRecovery(safe); ok {
			t.publishTransition(tr, now)
			t.publishReadyForPosition(now, model.SizeHintMedium)
			return
		}
	}

	// A fresh drop from the peak while sitting in RECOVERY re-arms the
	// drawdown cycle (spec §4.3 "RECOVERY | new drawdown | DRAWDOWN").
	peak := t.sm.Peak()
	if peak > 0 && (peak-price)/peak*100 >= t.cfg.Thresholds.DrawdownPct {
		if tr, ok := t.sm.ReenterDrawdown(price); ok {
			t.publishTransition(tr, now)
		}
	}
}

// publishTransition emits StateChanged for a committed transition.
func (t *Token) publishTransition(tr statemachine.Transition, now time.Time) {
	t.bus.Publish(model.StateChanged{
		Mint:   t.identity.Mint,
		From:   tr.From,
		To:     tr.To,
		Reason: tr.Reason,
		TS:     now,
	})
}

// publishReadyForPosition emits ReadyForPosition alongside a READY entry
// (spec §8 Scenario B).
func (t *Token) publishReadyForPosition(now time.Time, hint model.SizeHint) {
	t.bus.Publish(model.ReadyForPosition{Mint: t.identity.Mint, SizeHint: hint, TS: now})
}
