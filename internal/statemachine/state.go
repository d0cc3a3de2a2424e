// Package statemachine implements the guarded token lifecycle transition
// table of spec §4.3. It is owned exclusively by the token that holds it
// (design note, spec §9 "cyclic graphs" — cut by making the state machine
// owned by the token and emitting outward-only events), grounded on the
// teacher's internal/marketdata/closedetector/closedetector.go for the
// shape of a small guarded-transition detector with peak/trough tracking.
package statemachine

import (
	"sniper-engine/internal/model"
)

// Machine holds a single token's lifecycle state plus the peak/trough
// trackers the transition guards read.
type Machine struct {
	state            model.State
	peak             float64
	bottom           float64
	firstPumpReached bool
}

// New returns a Machine starting in NEW.
func New() *Machine {
	return &Machine{state: model.StateNew}
}

// State returns the current lifecycle state.
func (m *Machine) State() model.State { return m.state }

// Peak returns the highest price observed since PUMPING entry.
func (m *Machine) Peak() float64 { return m.peak }

// Bottom returns the lowest price observed since DRAWDOWN entry.
func (m *Machine) Bottom() float64 { return m.bottom }

// FirstPumpReached reports whether the token has ever entered PUMPING —
// the guard spec §4.2 Dead uses to avoid marking stillborn tokens dead.
func (m *Machine) FirstPumpReached() bool { return m.firstPumpReached }

// TrackPrice updates the peak or bottom tracker for the current state, per
// spec §4.3's freeze/unfreeze rule: peak updates only while in PUMPING,
// bottom updates only while in DRAWDOWN. Must be called on every price
// observation, before evaluating transitions.
func (m *Machine) TrackPrice(price float64) {
	switch m.state {
	case model.StatePumping:
		if price > m.peak {
			m.peak = price
		}
	case model.StateDrawdown:
		if m.bottom == 0 || price < m.bottom {
			m.bottom = price
		}
	}
}

// Transition is a committed state change, mirroring the StateChanged event
// payload minus the mint (the caller attaches that).
type Transition struct {
	From   model.State
	To     model.State
	Reason string
}

func (m *Machine) commit(to model.State, reason string) Transition {
	t := Transition{From: m.state, To: to, Reason: reason}
	m.state = to
	return t
}

// EnterPumping fires the NEW→PUMPING edge when pump conditions are met.
// Per the literal transition table (spec §4.3) this edge only exists from
// NEW; pump detection is not re-armed from any later state.
func (m *Machine) EnterPumping(price float64) (Transition, bool) {
	if m.state != model.StateNew {
		return Transition{}, false
	}
	m.peak = price
	m.firstPumpReached = true
	return m.commit(model.StatePumping, "pump_detected"), true
}

// EnterDrawdown fires PUMPING→DRAWDOWN when the drop from peak clears the
// configured threshold. The peak value carries over as the frozen
// reference point for the eventual recovery-gain computation.
func (m *Machine) EnterDrawdown(price float64) (Transition, bool) {
	if m.state != model.StatePumping {
		return Transition{}, false
	}
	m.bottom = price
	return m.commit(model.StateDrawdown, "drawdown_trigger"), true
}

// ResolveDrawdown fires DRAWDOWN→RECOVERY or DRAWDOWN→READY once the
// recovery-minimum gain from bottom is reached, branching on the safety
// predicate's current verdict.
func (m *Machine) ResolveDrawdown(safe bool) (Transition, bool) {
	if m.state != model.StateDrawdown {
		return Transition{}, false
	}
	if safe {
		return m.commit(model.StateReady, "recovery_gain_safe"), true
	}
	return m.commit(model.StateRecovery, "recovery_gain_unsafe"), true
}

// ResolveRecovery fires RECOVERY→READY once gain has settled within the
// configured entry window and the safety predicate passes.
func (m *Machine) ResolveRecovery(safe bool) (Transition, bool) {
	if m.state != model.StateRecovery || !safe {
		return Transition{}, false
	}
	return m.commit(model.StateReady, "recovery_entry_window"), true
}

// ReenterDrawdown fires RECOVERY→DRAWDOWN on a new drawdown cycle,
// resetting bottom per spec §4.3 ("a new DRAWDOWN cycle resets bottom").
func (m *Machine) ReenterDrawdown(price float64) (Transition, bool) {
	if m.state != model.StateRecovery {
		return Transition{}, false
	}
	m.bottom = price
	return m.commit(model.StateDrawdown, "drawdown_trigger"), true
}

// OpenPosition fires READY→OPEN; driven externally by the position engine.
func (m *Machine) OpenPosition() (Transition, bool) {
	if m.state != model.StateReady {
		return Transition{}, false
	}
	return m.commit(model.StateOpen, "position_opened"), true
}

// ClosePosition fires OPEN→CLOSED; driven externally by the position
// engine.
func (m *Machine) ClosePosition() (Transition, bool) {
	if m.state != model.StateOpen {
		return Transition{}, false
	}
	return m.commit(model.StateClosed, "position_closed"), true
}

// MarkUnsafe fires any-non-terminal→UNSAFE.
func (m *Machine) MarkUnsafe() (Transition, bool) {
	if m.state.Terminal() {
		return Transition{}, false
	}
	return m.commit(model.StateUnsafe, "safety_check_failed"), true
}

// MarkDead fires any-non-terminal→DEAD, guarded by firstPumpReached per
// spec §4.2 ("prevents marking stillborn tokens dead").
func (m *Machine) MarkDead() (Transition, bool) {
	if m.state.Terminal() || !m.firstPumpReached {
		return Transition{}, false
	}
	return m.commit(model.StateDead, "market_cap_dead"), true
}

