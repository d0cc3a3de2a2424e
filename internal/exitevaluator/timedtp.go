package exitevaluator

import (
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// TimedTakeProfit implements spec §4.5's timed take-profit: picks the
// interval with the largest elapsed_ms <= now-open_time and fires if profit
// clears that interval's threshold.
func TimedTakeProfit(pos *model.Position, cfg config.TimedTakeProfitConfig, now time.Time) (Signal, bool) {
	if !cfg.Enabled || len(cfg.Intervals) == 0 {
		return Signal{}, false
	}

	elapsedMs := now.Sub(pos.OpenTime).Milliseconds()

	var best *config.TimedProfitInterval
	for i := range cfg.Intervals {
		iv := cfg.Intervals[i]
		if iv.ElapsedMs <= elapsedMs && (best == nil || iv.ElapsedMs > best.ElapsedMs) {
			best = &cfg.Intervals[i]
		}
	}
	if best == nil {
		return Signal{}, false
	}
	if pos.ProfitPercent() >= best.ProfitPct {
		return Signal{Reason: "timed_take_profit", Fraction: 1.0}, true
	}
	return Signal{}, false
}
