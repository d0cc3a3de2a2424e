package statemachine

import "testing"

func TestPumpToDrawdownToReady(t *testing.T) {
	m := New()

	m.TrackPrice(1.0)
	tr, ok := m.EnterPumping(1.0)
	if !ok || tr.To != "PUMPING" {
		t.Fatalf("expected NEW->PUMPING, got %v ok=%v", tr, ok)
	}

	m.TrackPrice(1.5)
	if m.Peak() != 1.5 {
		t.Fatalf("peak not tracked: %v", m.Peak())
	}

	tr, ok = m.EnterDrawdown(1.0)
	if !ok || tr.To != "DRAWDOWN" {
		t.Fatalf("expected PUMPING->DRAWDOWN, got %v ok=%v", tr, ok)
	}

	m.TrackPrice(0.8)
	if m.Bottom() != 0.8 {
		t.Fatalf("bottom not tracked: %v", m.Bottom())
	}

	tr, ok = m.ResolveDrawdown(true)
	if !ok || tr.To != "READY" {
		t.Fatalf("expected DRAWDOWN->READY on safe resolve, got %v ok=%v", tr, ok)
	}
}

func TestDrawdownUnsafeGoesToRecovery(t *testing.T) {
	m := New()
	m.EnterPumping(1.0)
	m.EnterDrawdown(0.9)

	tr, ok := m.ResolveDrawdown(false)
	if !ok || tr.To != "RECOVERY" {
		t.Fatalf("expected DRAWDOWN->RECOVERY when unsafe, got %v ok=%v", tr, ok)
	}

	if _, ok := m.ResolveRecovery(false); ok {
		t.Fatal("ResolveRecovery must not fire while unsafe")
	}
	tr, ok = m.ResolveRecovery(true)
	if !ok || tr.To != "READY" {
		t.Fatalf("expected RECOVERY->READY once safe, got %v ok=%v", tr, ok)
	}
}

func TestReentrantDrawdownResetsBottom(t *testing.T) {
	m := New()
	m.EnterPumping(1.0)
	m.EnterDrawdown(0.9)
	m.ResolveDrawdown(false) // -> RECOVERY, bottom preserved at 0.9

	if m.Bottom() != 0.9 {
		t.Fatalf("bottom should be preserved entering RECOVERY, got %v", m.Bottom())
	}

	tr, ok := m.ReenterDrawdown(0.5)
	if !ok || tr.To != "DRAWDOWN" {
		t.Fatalf("expected RECOVERY->DRAWDOWN, got %v ok=%v", tr, ok)
	}
	if m.Bottom() != 0.5 {
		t.Fatalf("new drawdown cycle must reset bottom, got %v", m.Bottom())
	}
}

func TestDeadRequiresFirstPump(t *testing.T) {
	m := New() // still NEW, never pumped
	if _, ok := m.MarkDead(); ok {
		t.Fatal("MarkDead must not fire before first pump (stillborn guard)")
	}

	m.EnterPumping(1.0)
	m.EnterDrawdown(0.9)
	if _, ok := m.MarkDead(); !ok {
		t.Fatal("MarkDead should fire once first pump has been reached")
	}
}

func TestUnsafeIsTerminalAndBlocksFurtherTransitions(t *testing.T) {
	m := New()
	m.EnterPumping(1.0)
	tr, ok := m.MarkUnsafe()
	if !ok || tr.To != "UNSAFE" {
		t.Fatalf("expected PUMPING->UNSAFE, got %v ok=%v", tr, ok)
	}
	if _, ok := m.MarkUnsafe(); ok {
		t.Fatal("MarkUnsafe must not fire twice from a terminal state")
	}
	if _, ok := m.MarkDead(); ok {
		t.Fatal("MarkDead must not fire from a terminal state")
	}
}
