package exitevaluator

import (
	"testing"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// TestTieredTakeProfitScenarioC reproduces spec §8 Scenario C: entry 100,
// size 1, tiers [{60,0.2},{40,0.4},{20,0.4}]; prices 119 (no exit), 120
// (exit 0.4), 140 (exit 0.4), 160 (exit 0.2).
func TestTieredTakeProfitScenarioC(t *testing.T) {
	cfg := config.TieredTakeProfitConfig{
		Enabled: true,
		Tiers: []config.ProfitTier{
			{ProfitPct: 60, Fraction: 0.2},
			{ProfitPct: 40, Fraction: 0.4},
			{ProfitPct: 20, Fraction: 0.4},
		},
	}
	pos := &model.Position{EntryPrice: 100}

	pos.CurrentPrice = 119
	if _, ok := TieredTakeProfit(pos, cfg); ok {
		t.Fatal("119 (19% profit) must not fire any tier")
	}

	pos.CurrentPrice = 120
	sig, ok := TieredTakeProfit(pos, cfg)
	if !ok || sig.Fraction != 0.4 {
		t.Fatalf("expected 20%% tier to fire fraction 0.4, got %+v ok=%v", sig, ok)
	}
	pos.MarkTierTaken(20)

	pos.CurrentPrice = 140
	sig, ok = TieredTakeProfit(pos, cfg)
	if !ok || sig.Fraction != 0.4 {
		t.Fatalf("expected 40%% tier to fire fraction 0.4, got %+v ok=%v", sig, ok)
	}
	pos.MarkTierTaken(40)

	pos.CurrentPrice = 160
	sig, ok = TieredTakeProfit(pos, cfg)
	if !ok || sig.Fraction != 0.2 {
		t.Fatalf("expected 60%% tier to fire fraction 0.2, got %+v ok=%v", sig, ok)
	}
	pos.MarkTierTaken(60)

	if _, ok := TieredTakeProfit(pos, cfg); ok {
		t.Fatal("all tiers taken, evaluator must not refire")
	}
}

func TestStopLossDynamicBounds(t *testing.T) {
	cfg := config.TrailingStopLossConfig{Enabled: true, BasePct: 30, MinPct: 20, MaxPct: 40, VolMultiplier: 1.5}
	pos := &model.Position{
		HighestPrice: 150,
		CurrentPrice: 105, // 30% drop from high
		PriceHistory: []model.PriceSample{
			{Price: 100}, {Price: 110}, {Price: 90}, {Price: 105},
		},
	}
	vol := Volatility(pricesFrom(pos.PriceHistory))
	if vol <= 0 {
		t.Fatalf("expected nonzero volatility, got %v", vol)
	}
	dynamicPct := clamp(cfg.BasePct+vol*cfg.VolMultiplier, cfg.MinPct, cfg.MaxPct)
	if dynamicPct < 20 || dynamicPct > 40 {
		t.Fatalf("dynamic stop-loss out of configured bounds: %v", dynamicPct)
	}

	drop := pos.DropFromHighPercent()
	sig, fired := StopLoss(pos, cfg)
	if fired != (drop >= dynamicPct) {
		t.Fatalf("stop-loss fire decision inconsistent with dynamic threshold: drop=%v dynamicPct=%v fired=%v sig=%+v", drop, dynamicPct, fired, sig)
	}
}

func TestTimeBasedExitExtendsOnProfit(t *testing.T) {
	cfg := config.TimeBasedExitConfig{
		Enabled: true, MaxDurationMs: 1000,
		ProfitExtensionEnabled: true, ProfitExtensionTrigger: 50, ProfitExtensionFactor: 2,
	}
	open := time.Now().Add(-1500 * time.Millisecond)
	pos := &model.Position{EntryPrice: 100, CurrentPrice: 160, OpenTime: open} // 60% profit

	if _, ok := TimeBasedExit(pos, cfg, time.Now()); ok {
		t.Fatal("extension should push the deadline past 1.5s at 60% profit")
	}

	pos.CurrentPrice = 105 // below extension trigger
	if _, ok := TimeBasedExit(pos, cfg, time.Now()); !ok {
		t.Fatal("without extension, 1.5s must clear the 1s max duration")
	}
}
