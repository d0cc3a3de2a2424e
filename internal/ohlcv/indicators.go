package ohlcv

import (
	"sniper-engine/internal/model"
)

// CrossType identifies which indicator pair produced a Cross event.
type CrossType string

const (
	CrossEMA9_21  CrossType = "ema_9_21"
	CrossEMA21_55 CrossType = "ema_21_55"
	CrossVWAP24   CrossType = "vwap_24"
)

// SMA returns the simple moving average of close-fiat over the last n
// candles in series. Returns 0 if series has fewer than n candles.
func SMA(series []model.Candle, n int) float64 {
	if n <= 0 || len(series) < n {
		return 0
	}
	window := series[len(series)-n:]
	var sum float64
	for _, c := range window {
		sum += c.Close.Fiat
	}
	return sum / float64(n)
}

// EMA returns the exponential moving average of close-fiat over series,
// seeded with the first candle's close and multiplier 2/(n+1) (spec §4.1
// indicator contract). Returns 0 on an empty series.
func EMA(series []model.Candle, n int) float64 {
	if len(series) == 0 || n <= 0 {
		return 0
	}
	mult := 2.0 / (float64(n) + 1.0)
	ema := series[0].Close.Fiat
	for _, c := range series[1:] {
		ema = (c.Close.Fiat-ema)*mult + ema
	}
	return ema
}

// EMASeries returns the running EMA value after each candle in series, same
// length as series. Used by cross detection to compare the previous and
// current candle's EMA without recomputing the whole series twice.
func EMASeries(series []model.Candle, n int) []float64 {
	out := make([]float64, len(series))
	if len(series) == 0 || n <= 0 {
		return out
	}
	mult := 2.0 / (float64(n) + 1.0)
	ema := series[0].Close.Fiat
	out[0] = ema
	for i := 1; i < len(series); i++ {
		ema = (series[i].Close.Fiat-ema)*mult + ema
		out[i] = ema
	}
	return out
}

// VWAP returns the volume-fiat-weighted average of typical price
// ((high+low+close)/3) over the last n candles. Returns 0 if the volume sum
// is 0 (spec §4.1 indicator contract).
func VWAP(series []model.Candle, n int) float64 {
	if n <= 0 || len(series) == 0 {
		return 0
	}
	start := 0
	if len(series) > n {
		start = len(series) - n
	}
	window := series[start:]

	var numerator, volSum float64
	for _, c := range window {
		typical := (c.High.Fiat + c.Low.Fiat + c.Close.Fiat) / 3
		numerator += c.Volume.Fiat * typical
		volSum += c.Volume.Fiat
	}
	if volSum == 0 {
		return 0
	}
	return numerator / volSum
}

// DetectCrosses compares the previous and current candle's indicator
// relationships and emits a Cross for every pair whose sign flips (spec
// §4.1: EMA 9/21, EMA 21/55, close vs VWAP(24); equality at either endpoint
// is "no cross", never a tie-break toward either direction).
func DetectCrosses(mint string, tf model.Timeframe, series []model.Candle) []model.Cross {
	if len(series) < 2 {
		return nil
	}

	ema9 := EMASeries(series, 9)
	ema21 := EMASeries(series, 21)
	ema55 := EMASeries(series, 55)

	var out []model.Cross
	cur := series[len(series)-1]

	if c, ok := crossFrom(ema9[len(ema9)-2]-ema21[len(ema21)-2], ema9[len(ema9)-1]-ema21[len(ema21)-1]); ok {
		out = append(out, model.Cross{
			Mint: mint, Type: string(CrossEMA9_21), Direction: c, TF: tf,
			Timestamp: cur.TS, Price: cur.Close.Fiat, CrossValue: ema9[len(ema9)-1] - ema21[len(ema21)-1],
		})
	}
	if c, ok := crossFrom(ema21[len(ema21)-2]-ema55[len(ema55)-2], ema21[len(ema21)-1]-ema55[len(ema55)-1]); ok {
		out = append(out, model.Cross{
			Mint: mint, Type: string(CrossEMA21_55), Direction: c, TF: tf,
			Timestamp: cur.TS, Price: cur.Close.Fiat, CrossValue: ema21[len(ema21)-1] - ema55[len(ema55)-1],
		})
	}

	vwapPrev := VWAP(series[:len(series)-1], 24)
	vwapCur := VWAP(series, 24)
	if c, ok := crossFrom(series[len(series)-2].Close.Fiat-vwapPrev, cur.Close.Fiat-vwapCur); ok {
		out = append(out, model.Cross{
			Mint: mint, Type: string(CrossVWAP24), Direction: c, TF: tf,
			Timestamp: cur.TS, Price: cur.Close.Fiat, CrossValue: cur.Close.Fiat - vwapCur,
		})
	}
	return out
}

// crossFrom reports whether the sign of prevDiff flipped to curDiff, and in
// which direction. Equality at either endpoint is treated as no cross.
func crossFrom(prevDiff, curDiff float64) (model.CrossDirection, bool) {
	if prevDiff == 0 || curDiff == 0 {
		return "", false
	}
	if prevDiff < 0 && curDiff > 0 {
		return model.CrossUp, true
	}
	if prevDiff > 0 && curDiff < 0 {
		return model.CrossDown, true
	}
	return "", false
}
