package exitevaluator

import (
	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// TrailingTakeProfit implements spec §4.5's trailing take-profit: fires
// only once profit has cleared the initial trigger, then when the
// drop-from-high clears a volatility-adjusted trail percentage.
func TrailingTakeProfit(pos *model.Position, cfg config.TrailingTakeProfitConfig) (Signal, bool) {
	if !cfg.Enabled {
		return Signal{}, false
	}
	if pos.ProfitPercent() < cfg.InitialTrigger {
		return Signal{}, false
	}

	vol := Volatility(pricesFrom(pos.PriceHistory))
	trail := clamp(cfg.BaseTrailPct+vol*cfg.VolMultiplier, cfg.MinTrailPct, cfg.MaxTrailPct)

	if pos.DropFromHighPercent() >= trail {
		return Signal{Reason: "trailing_take_profit", Fraction: 1.0}, true
	}
	return Signal{}, false
}
