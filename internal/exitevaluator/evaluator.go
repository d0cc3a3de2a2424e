package exitevaluator

import (
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// Signal is the result of a fired evaluator: exit Fraction of the position
// at Reason. TierKey is non-zero only for tiered take-profit and tells the
// caller which tier to mark taken via Position.MarkTierTaken — the
// evaluator itself never mutates the position (spec §5: "exit-evaluator
// functions read position snapshots passed by value... must not mutate").
type Signal struct {
	Reason  string
	Fraction float64
	tierKey float64
}

// TierKey returns the tiered take-profit tier this signal corresponds to,
// or 0 if the signal did not come from the tiered evaluator.
func (s Signal) TierKey() float64 { return s.tierKey }

// Evaluate implements spec §4.5: evaluators are tried in cfg.Exits.Priority
// order; the first to fire wins.
func Evaluate(pos *model.Position, cfg config.StrategyConfig, now time.Time) (Signal, bool) {
	for _, name := range cfg.Exits.Priority {
		switch name {
		case "stop_loss", "trailing_stop_loss":
			if s, ok := StopLoss(pos, cfg.Exits.TrailingStopLoss); ok {
				return s, true
			}
		case "trailing_take_profit":
			if s, ok := TrailingTakeProfit(pos, cfg.Exits.TrailingTakeProfit); ok {
				return s, true
			}
		case "tiered_take_profit":
			if s, ok := TieredTakeProfit(pos, cfg.Exits.TieredTakeProfit); ok {
				return s, true
			}
		case "time_based_exit":
			if s, ok := TimeBasedExit(pos, cfg.Exits.TimeBasedExit, now); ok {
				return s, true
			}
		case "timed_take_profit":
			if s, ok := TimedTakeProfit(pos, cfg.Exits.TimedTakeProfit, now); ok {
				return s, true
			}
		case "volume_based_exit":
			if s, ok := VolumeBasedExit(pos, cfg.Exits.VolumeBasedExit); ok {
				return s, true
			}
		case "price_action":
			if s, ok := PriceAction(pos, cfg.Exits.PriceAction); ok {
				return s, true
			}
		}
	}
	return Signal{}, false
}
