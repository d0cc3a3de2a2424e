package exitevaluator

import (
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// TimeBasedExit implements spec §4.5's time-based exit: fires once
// now-open_time clears max_duration, extended once by a factor if profit
// clears the extension trigger.
func TimeBasedExit(pos *model.Position, cfg config.TimeBasedExitConfig, now time.Time) (Signal, bool) {
	if !cfg.Enabled {
		return Signal{}, false
	}

	maxDuration := time.Duration(cfg.MaxDurationMs) * time.Millisecond
	if cfg.ProfitExtensionEnabled && pos.ProfitPercent() >= cfg.ProfitExtensionTrigger {
		maxDuration = time.Duration(float64(maxDuration) * cfg.ProfitExtensionFactor)
	}

	if now.Sub(pos.OpenTime) >= maxDuration {
		return Signal{Reason: "time_based_exit", Fraction: 1.0}, true
	}
	return Signal{}, false
}
