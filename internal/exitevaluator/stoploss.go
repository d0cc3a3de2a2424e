package exitevaluator

import (
	"sniper-engine/config"
	"sniper-engine/internal/model"
)

func pricesFrom(history []model.PriceSample) []float64 {
	out := make([]float64, len(history))
	for i, s := range history {
		out[i] = s.Price
	}
	return out
}

// StopLoss implements spec §4.5's dynamic trailing stop-loss: drop_pct =
// (highest-current)/highest*100, firing when drop_pct >= a
// volatility-adjusted threshold clamped to [min, max].
func StopLoss(pos *model.Position, cfg config.TrailingStopLossConfig) (Signal, bool) {
	if !cfg.Enabled {
		return Signal{}, false
	}
	vol := Volatility(pricesFrom(pos.PriceHistory))
	threshold := clamp(cfg.BasePct+vol*cfg.VolMultiplier, cfg.MinPct, cfg.MaxPct)

	drop := pos.DropFromHighPercent()
	if drop >= threshold {
		return Signal{Reason: "stop_loss", Fraction: 1.0}, true
	}
	return Signal{}, false
}
