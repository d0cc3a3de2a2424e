// Package ohlcv maintains per-mint, per-timeframe candle state and the pure
// indicator functions that read it. It is grounded on the teacher's
// internal/marketdata/agg/aggregator.go (bucket-on-trade, roll-up-to-higher-
// timeframe design) and internal/marketdata/tfbuilder/tfbuilder.go
// (timeframe fan-out), retargeted from tick/instrument to mint/Denominated
// per spec §4.1.
package ohlcv

import (
	"sort"
	"sync"
	"time"

	"sniper-engine/internal/model"
)

// Trade is one observed trade on the bonding curve, the unit of work the
// aggregator folds into candles (spec §4.1 step 1 input).
type Trade struct {
	Mint           string
	Price          float64
	TokenVolume    int64
	QuoteVolume    int64
	MarketCapQuote int64
	FiatRate       float64 // quote->fiat conversion captured at observation time
	TS             time.Time
}

// Aggregator holds live candle state for every mint it has seen, keyed by
// timeframe then bucket-start. Only TF1s buckets are mutated directly; every
// other timeframe is rolled up from the 1s series on demand (spec §4.1 step
// 4), matching the teacher's aggregator/tfbuilder split.
type Aggregator struct {
	mu      sync.RWMutex
	base    map[string]map[int64]*model.Candle // mint -> bucket-start-unix -> TF1s candle
	order   map[string][]int64                 // mint -> bucket-start-unix, insertion order, for eviction
	maxKept int                                // number of 1s buckets retained per mint
}

// New returns an Aggregator that keeps maxKept seconds of 1s history per
// mint (3600, one hour, when maxKept <= 0). Older buckets are evicted, so a
// RollUp over a wider timeframe covers only the retained seconds.
func New(maxKept int) *Aggregator {
	if maxKept <= 0 {
		maxKept = 3600
	}
	return &Aggregator{
		base:    make(map[string]map[int64]*model.Candle),
		order:   make(map[string][]int64),
		maxKept: maxKept,
	}
}

// OnTrade folds a trade observation into the mint's TF1s candle series,
// implementing spec §4.1 steps 1-2.
func (a *Aggregator) OnTrade(t Trade) *model.Candle {
	bucketTS := model.BucketStart(t.TS, model.TF1s)
	bucketKey := bucketTS.Unix()

	fiatPrice := t.Price * t.FiatRate
	fiatVol := float64(t.QuoteVolume) * t.FiatRate
	fiatMC := float64(t.MarketCapQuote) * t.FiatRate

	a.mu.Lock()
	defer a.mu.Unlock()

	mints, ok := a.base[t.Mint]
	if !ok {
		mints = make(map[int64]*model.Candle)
		a.base[t.Mint] = mints
	}

	c, exists := mints[bucketKey]
	if !exists {
		c = &model.Candle{
			Mint: t.Mint,
			TF:   model.TF1s,
			TS:   bucketTS,
			Open: model.Denominated{Native: t.TokenVolume, Quote: t.QuoteVolume, Fiat: fiatPrice},
			High: model.Denominated{Fiat: fiatPrice},
			Low:  model.Denominated{Fiat: fiatPrice},
			Close: model.Denominated{Fiat: fiatPrice},
			Volume: model.Denominated{
				Native: t.TokenVolume,
				Quote:  t.QuoteVolume,
				Fiat:   fiatVol,
			},
			Trades:    1,
			MarketCap: model.Denominated{Quote: t.MarketCapQuote, Fiat: fiatMC},
		}
		c.High.Fiat, c.Low.Fiat = fiatPrice, fiatPrice
		mints[bucketKey] = c
		a.order[t.Mint] = append(a.order[t.Mint], bucketKey)
		a.evictLocked(t.Mint)
		return c
	}

	if fiatPrice > c.High.Fiat {
		c.High.Fiat = fiatPrice
	}
	if fiatPrice < c.Low.Fiat || c.Low.Fiat == 0 {
		c.Low.Fiat = fiatPrice
	}
	c.Close.Fiat = fiatPrice
	c.Volume.Native += t.TokenVolume
	c.Volume.Quote += t.QuoteVolume
	c.Volume.Fiat += fiatVol
	c.Trades++
	c.MarketCap = model.Denominated{Quote: t.MarketCapQuote, Fiat: fiatMC}
	return c
}

// evictLocked drops the oldest 1s bucket for mint once more than maxKept are
// retained. Caller must hold a.mu.
func (a *Aggregator) evictLocked(mint string) {
	keys := a.order[mint]
	if len(keys) <= a.maxKept {
		return
	}
	drop := keys[0]
	a.order[mint] = keys[1:]
	delete(a.base[mint], drop)
}

// RollUp computes the candle for timeframe tf covering the bucket starting
// at periodStart, by folding every retained 1s candle whose timestamp falls
// in [periodStart, periodStart+duration) — spec §4.1 step 4. Returns nil if
// no 1s candles fall in the window.
func (a *Aggregator) RollUp(mint string, tf model.Timeframe, periodStart time.Time) *model.Candle {
	width := time.Duration(tf) * time.Second
	end := periodStart.Add(width)

	a.mu.RLock()
	defer a.mu.RUnlock()

	mints, ok := a.base[mint]
	if !ok {
		return nil
	}
	keys := append([]int64(nil), a.order[mint]...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var parts []*model.Candle
	for _, k := range keys {
		ts := time.Unix(k, 0).UTC()
		if !ts.Before(periodStart) && ts.Before(end) {
			parts = append(parts, mints[k])
		}
	}
	if len(parts) == 0 {
		return nil
	}

	out := &model.Candle{
		Mint: mint,
		TF:   tf,
		TS:   periodStart,
		Open: parts[0].Open,
	}
	out.High.Fiat, out.Low.Fiat = parts[0].High.Fiat, parts[0].Low.Fiat
	for _, p := range parts {
		if p.High.Fiat > out.High.Fiat {
			out.High.Fiat = p.High.Fiat
		}
		if p.Low.Fiat < out.Low.Fiat {
			out.Low.Fiat = p.Low.Fiat
		}
		out.Volume.Native += p.Volume.Native
		out.Volume.Quote += p.Volume.Quote
		out.Volume.Fiat += p.Volume.Fiat
		out.Trades += p.Trades
	}
	last := parts[len(parts)-1]
	out.Close = last.Close
	out.MarketCap = last.MarketCap
	return out
}

// Series returns every retained 1s candle for mint, oldest first. Used by
// RollUp's callers (analytics timeframes) and by the indicator functions
// below, which operate on a caller-supplied candle slice rather than
// reaching back into the aggregator directly.
func (a *Aggregator) Series(mint string) []model.Candle {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := append([]int64(nil), a.order[mint]...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]model.Candle, 0, len(keys))
	mints := a.base[mint]
	for _, k := range keys {
		out = append(out, *mints[k])
	}
	return out
}

// Drop removes all retained state for mint (spec §4.6 cleanup sweep).
func (a *Aggregator) Drop(mint string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.base, mint)
	delete(a.order, mint)
}
