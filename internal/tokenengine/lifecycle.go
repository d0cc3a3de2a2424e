package tokenengine

import "time"

// OpenPosition fires the token's READY→OPEN edge, driven externally by the
// position engine once it has actually opened a position for this mint
// (spec §4.3: "OPEN | position opened"; statemachine.Machine.OpenPosition
// doc: "driven externally by the position engine").
func (t *Token) OpenPosition(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.sm.OpenPosition()
	if !ok {
		return false
	}
	t.publishTransition(tr, now)
	return true
}

// ClosePosition fires the token's OPEN→CLOSED edge, driven externally once
// the position engine has closed the corresponding position.
func (t *Token) ClosePosition(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.sm.ClosePosition()
	if !ok {
		return false
	}
	t.publishTransition(tr, now)
	return true
}
