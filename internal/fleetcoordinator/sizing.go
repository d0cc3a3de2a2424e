package fleetcoordinator

import (
	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// sizeForHint derives the entry size from a token snapshot and the
// position-size hint carried on ReadyForPosition (spec §6 POSITION config
// tree: RISK_PER_TRADE, POSITION_SIZE_MARKET_CAP_RATIO, FIRST_PUMP_SIZE_RATIO).
func sizeForHint(cfg config.PositionConfig, snap model.TokenSnapshot, hint model.SizeHint) float64 {
	ratio := cfg.PositionSizeMarketCapRatio
	if snap.PumpCount <= 1 {
		ratio = cfg.FirstPumpSizeRatio
	}

	size := snap.MarketCapFiat * ratio * cfg.RiskPerTrade
	if hint == model.SizeHintMedium {
		size *= 0.5
	}

	if size < cfg.MinPositionSize {
		size = cfg.MinPositionSize
	}
	if size > cfg.MaxPositionSize {
		size = cfg.MaxPositionSize
	}
	return size
}
