package ohlcv

import (
	"testing"
	"time"

	"sniper-engine/internal/model"
)

func closeCandle(ts time.Time, high, low, close_, volumeFiat float64) model.Candle {
	return model.Candle{
		TF:     model.TF1s,
		TS:     ts,
		High:   model.Denominated{Fiat: high},
		Low:    model.Denominated{Fiat: low},
		Close:  model.Denominated{Fiat: close_},
		Volume: model.Denominated{Fiat: volumeFiat},
		Trades: 1,
	}
}

// TestSMAOfOneEqualsLastClose is spec §8's algebraic property: "SMA(1) over
// any candle range equals the close of the last candle."
func TestSMAOfOneEqualsLastClose(t *testing.T) {
	base := time.Unix(0, 0)
	series := []model.Candle{
		closeCandle(base, 10, 9, 10, 1),
		closeCandle(base.Add(time.Second), 12, 10, 11, 1),
		closeCandle(base.Add(2*time.Second), 13, 11, 12.5, 1),
	}
	if got := SMA(series, 1); got != 12.5 {
		t.Fatalf("SMA(1) = %v, want 12.5 (last close)", got)
	}
}

// TestEMAConvergesToConstantPrice is spec §8: "EMA(n) with constant-price
// input converges to that price."
func TestEMAConvergesToConstantPrice(t *testing.T) {
	base := time.Unix(0, 0)
	var series []model.Candle
	for i := 0; i < 50; i++ {
		series = append(series, closeCandle(base.Add(time.Duration(i)*time.Second), 100, 100, 100, 1))
	}
	if got := EMA(series, 9); absDiff(got, 100) > 1e-9 {
		t.Fatalf("EMA(9) on constant 100 price = %v, want 100", got)
	}
}

// TestVWAPSingleCandleEqualsTypicalPrice is spec §8: "VWAP with a single
// candle equals (high+low+close)/3."
func TestVWAPSingleCandleEqualsTypicalPrice(t *testing.T) {
	series := []model.Candle{closeCandle(time.Unix(0, 0), 12, 8, 10, 5)}
	want := (12.0 + 8.0 + 10.0) / 3
	if got := VWAP(series, 24); absDiff(got, want) > 1e-9 {
		t.Fatalf("VWAP(single candle) = %v, want %v", got, want)
	}
}

// TestVWAPZeroVolumeReturnsZero covers the spec §4.1 divide-by-zero
// short-circuit: "returns 0 if volume sum is 0."
func TestVWAPZeroVolumeReturnsZero(t *testing.T) {
	series := []model.Candle{closeCandle(time.Unix(0, 0), 12, 8, 10, 0)}
	if got := VWAP(series, 24); got != 0 {
		t.Fatalf("VWAP with zero volume = %v, want 0", got)
	}
}

// TestDetectCrossesFiresOnSignFlip exercises the EMA9/21 cross in spec
// §4.1: "Emit Cross ... when the sign of (fast - slow) ... flips between
// the previous and current candle."
func TestDetectCrossesFiresOnSignFlip(t *testing.T) {
	base := time.Unix(0, 0)
	var series []model.Candle
	// A steady decline from 50 to 11 keeps the fast EMA below the slow one
	// (negative diff), then a sharp jump pulls the fast EMA above it.
	for i := 0; i < 40; i++ {
		p := float64(50 - i)
		series = append(series, closeCandle(base.Add(time.Duration(i)*time.Second), p, p, p, 1))
	}
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(40+i) * time.Second)
		series = append(series, closeCandle(ts, 50, 50, 50, 1))
	}

	var sawUpCross bool
	for i := 2; i <= len(series); i++ {
		crosses := DetectCrosses("mintA", model.TF1s, series[:i])
		for _, c := range crosses {
			if c.Type == string(CrossEMA9_21) && c.Direction == model.CrossUp {
				sawUpCross = true
			}
			if c.Mint != "mintA" {
				t.Fatalf("cross mint = %q, want mintA", c.Mint)
			}
		}
	}
	if !sawUpCross {
		t.Fatal("expected an EMA 9/21 upward cross somewhere in the jump")
	}
}

// TestDetectCrossesTieIsNoCross covers spec §4.1: "Tie case (equality at
// either endpoint): treat as no cross."
func TestDetectCrossesTieIsNoCross(t *testing.T) {
	base := time.Unix(0, 0)
	series := []model.Candle{
		closeCandle(base, 10, 10, 10, 1),
		closeCandle(base.Add(time.Second), 10, 10, 10, 1),
	}
	if crosses := DetectCrosses("mintA", model.TF1s, series); len(crosses) != 0 {
		t.Fatalf("expected no crosses on a flat series, got %d", len(crosses))
	}
}

// TestAggregatorOnTradeFoldsIntoBucket covers spec §4.1 step 2: updating an
// existing 1s bucket in place vs. creating one on the first trade.
func TestAggregatorOnTradeFoldsIntoBucket(t *testing.T) {
	agg := New(10)
	ts := time.Unix(1000, 0)

	agg.OnTrade(Trade{Mint: "mintA", Price: 10, TokenVolume: 100, QuoteVolume: 10, FiatRate: 1, TS: ts})
	agg.OnTrade(Trade{Mint: "mintA", Price: 12, TokenVolume: 50, QuoteVolume: 5, FiatRate: 1, TS: ts.Add(200 * time.Millisecond)})

	series := agg.Series("mintA")
	if len(series) != 1 {
		t.Fatalf("expected both trades to fold into one 1s bucket, got %d candles", len(series))
	}
	c := series[0]
	if c.Open.Fiat != 10 || c.High.Fiat != 12 || c.Low.Fiat != 10 || c.Close.Fiat != 12 {
		t.Fatalf("candle OHLC = %+v, want open=10 high=12 low=10 close=12", c)
	}
	if c.Trades != 2 {
		t.Fatalf("candle trades = %d, want 2", c.Trades)
	}
}

// TestRollUpAggregatesAcrossWiderWindow covers spec §4.1 step 4.
func TestRollUpAggregatesAcrossWiderWindow(t *testing.T) {
	agg := New(10)
	base := time.Unix(0, 0)

	agg.OnTrade(Trade{Mint: "mintA", Price: 10, TokenVolume: 1, QuoteVolume: 1, FiatRate: 1, TS: base})
	agg.OnTrade(Trade{Mint: "mintA", Price: 20, TokenVolume: 1, QuoteVolume: 1, FiatRate: 1, TS: base.Add(time.Second)})
	agg.OnTrade(Trade{Mint: "mintA", Price: 5, TokenVolume: 1, QuoteVolume: 1, FiatRate: 1, TS: base.Add(2 * time.Second)})

	rolled := agg.RollUp("mintA", model.TF5s, base)
	if rolled == nil {
		t.Fatal("expected a rolled-up candle covering the 5s window")
	}
	if rolled.Open.Fiat != 10 || rolled.Close.Fiat != 5 || rolled.High.Fiat != 20 || rolled.Low.Fiat != 5 {
		t.Fatalf("rolled candle = %+v, want open=10 close=5 high=20 low=5", rolled)
	}
	if rolled.Trades != 3 {
		t.Fatalf("rolled trades = %d, want 3", rolled.Trades)
	}
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d
}
