package exitevaluator

import (
	"sort"

	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// TieredTakeProfit implements spec §4.5's tiered take-profit: given tiers
// sorted descending by profit threshold, finds the highest tier whose
// threshold is reached and whose fraction hasn't been taken yet.
func TieredTakeProfit(pos *model.Position, cfg config.TieredTakeProfitConfig) (Signal, bool) {
	if !cfg.Enabled || len(cfg.Tiers) == 0 {
		return Signal{}, false
	}

	tiers := append([]config.ProfitTier(nil), cfg.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].ProfitPct > tiers[j].ProfitPct })

	profit := pos.ProfitPercent()
	for _, tier := range tiers {
		if profit >= tier.ProfitPct && !pos.TakenTierFraction(tier.ProfitPct) {
			return Signal{Reason: "tiered_take_profit", Fraction: tier.Fraction, tierKey: tier.ProfitPct}, true
		}
	}
	return Signal{}, false
}
