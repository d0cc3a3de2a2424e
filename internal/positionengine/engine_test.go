package positionengine

import (
	"testing"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
)

// TestFeeAccountingScenarioE reproduces spec §8 Scenario E: initial balance
// 1.0, buy-fee 0.02, sell-fee 0.01. Open at 1.0 with size 0.02, close at
// 1.1.
func TestFeeAccountingScenarioE(t *testing.T) {
	cfg := config.DefaultStrategyConfig()
	cfg.TransactionFees = config.TransactionFees{Buy: 0.02, Sell: 0.01}
	cfg.Position.MinPositionSize = 0
	cfg.Position.MaxPositionSize = 1

	wallet := NewWallet(1.0)
	bus := eventbus.New(nil)
	eng := New(cfg, wallet, bus)

	now := time.Now()
	pos, err := eng.Open("mintA", 0.02, 1.0, now)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if got := wallet.Balance(); !almostEqual(got, 0.96) {
		t.Fatalf("expected balance 0.96 after open, got %v", got)
	}

	pos.CurrentPrice = 1.1
	if err := eng.Close("mintA", "manual", 1.0, now.Add(time.Minute)); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := wallet.Balance(); !almostEqual(got, 0.972) {
		t.Fatalf("expected balance 0.972 after close, got %v", got)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestOpenRejectsDuplicateAndPaused(t *testing.T) {
	cfg := config.DefaultStrategyConfig()
	cfg.Position.MinPositionSize = 0
	cfg.Position.MaxPositionSize = 1
	wallet := NewWallet(10)
	bus := eventbus.New(nil)
	eng := New(cfg, wallet, bus)

	now := time.Now()
	if _, err := eng.Open("mintA", 0.1, 1.0, now); err != nil {
		t.Fatalf("first open should succeed: %v", err)
	}
	if _, err := eng.Open("mintA", 0.1, 1.0, now); err != ErrPositionExists {
		t.Fatalf("expected ErrPositionExists, got %v", err)
	}

	eng.Pause()
	if _, err := eng.Open("mintB", 0.1, 1.0, now); err != ErrTradingPaused {
		t.Fatalf("expected ErrTradingPaused, got %v", err)
	}
}

func TestEmergencyCloseAllPausesAndClosesOpenPositions(t *testing.T) {
	cfg := config.DefaultStrategyConfig()
	cfg.Position.MinPositionSize = 0
	cfg.Position.MaxPositionSize = 1
	wallet := NewWallet(10)
	bus := eventbus.New(nil)

	var events []any
	bus.Subscribe(eventbus.SinkFunc(func(evt any) { events = append(events, evt) }))

	eng := New(cfg, wallet, bus)
	now := time.Now()
	eng.Open("mintA", 0.1, 1.0, now)
	eng.Open("mintB", 0.1, 1.0, now)

	eng.EmergencyCloseAll(1.0, now.Add(time.Minute))

	if _, ok := eng.Get("mintA"); ok {
		t.Fatal("mintA should be closed and removed")
	}
	if _, ok := eng.Get("mintB"); ok {
		t.Fatal("mintB should be closed and removed")
	}

	var sawEmergency int
	for _, e := range events {
		if pc, ok := e.(model.PositionClosedEvent); ok && pc.Reason == "emergency" {
			sawEmergency++
		}
	}
	if sawEmergency != 2 {
		t.Fatalf("expected 2 emergency close events, got %d", sawEmergency)
	}

	if _, err := eng.Open("mintC", 0.1, 1.0, now); err != ErrTradingPaused {
		t.Fatal("EmergencyCloseAll must pause trading")
	}
}
