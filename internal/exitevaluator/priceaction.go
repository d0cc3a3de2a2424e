package exitevaluator

import (
	"sniper-engine/config"
	"sniper-engine/internal/model"
)

// PriceAction implements spec §4.5's price-action exit: wick rejection on
// the latest candle, or strictly-decreasing momentum over the last K
// candles.
func PriceAction(pos *model.Position, cfg config.PriceActionConfig) (Signal, bool) {
	if !cfg.Enabled || len(pos.CandleHistory) == 0 {
		return Signal{}, false
	}

	if sig, ok := wickRejection(pos.CandleHistory[len(pos.CandleHistory)-1], cfg); ok {
		return sig, true
	}
	if sig, ok := momentumLoss(pos.CandleHistory, cfg); ok {
		return sig, true
	}
	return Signal{}, false
}

func wickRejection(c model.Candle, cfg config.PriceActionConfig) (Signal, bool) {
	open, high, low, cl := c.Open.Fiat, c.High.Fiat, c.Low.Fiat, c.Close.Fiat
	rng := high - low
	if rng <= 0 || open == 0 {
		return Signal{}, false
	}

	bodySize := absFloatEE(cl - open)
	bodyPct := bodySize / open * 100

	upperWick := high - maxF(open, cl)
	lowerWick := minF(open, cl) - low
	upperWickPct := upperWick / rng * 100
	lowerWickPct := lowerWick / rng * 100

	maxWickPct := upperWickPct
	if lowerWickPct > maxWickPct {
		maxWickPct = lowerWickPct
	}

	if bodyPct >= cfg.MinCandleSizePct && maxWickPct >= cfg.WickRejectThreshold {
		return Signal{Reason: "price_action_wick_rejection", Fraction: 1.0}, true
	}
	return Signal{}, false
}

func momentumLoss(candles []model.Candle, cfg config.PriceActionConfig) (Signal, bool) {
	k := cfg.MomentumLossLookback
	if k <= 1 || len(candles) < k {
		return Signal{}, false
	}
	tail := candles[len(candles)-k:]

	prevBody := -1.0
	for _, c := range tail {
		if c.Open.Fiat == 0 {
			return Signal{}, false
		}
		body := absFloatEE(c.Close.Fiat-c.Open.Fiat) / c.Open.Fiat * 100
		if body < cfg.MomentumLossMinSizePct {
			return Signal{}, false
		}
		if prevBody >= 0 && body >= prevBody {
			return Signal{}, false
		}
		prevBody = body
	}
	return Signal{Reason: "price_action_momentum_loss", Fraction: 1.0}, true
}

func absFloatEE(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
