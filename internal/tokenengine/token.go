// Package tokenengine implements Token Engine C1: the live, mutable
// aggregate that owns one mint's reserves, holder ledger, OHLCV series, and
// lifecycle state machine (spec §4.2, §3 "Ownership": "Tokens exclusively
// own their candles, holders, and state machine"). Grounded on the
// teacher's internal/indicator/engine.go for the on-trade recompute-and-
// notify shape, generalized from a single-instrument indicator cache to a
// per-mint aggregate with its own state machine.
package tokenengine

import (
	"log/slog"
	"sync"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
	"sniper-engine/internal/ohlcv"
	"sniper-engine/internal/ringbuf"
	"sniper-engine/internal/statemachine"
)

const priceBufferCapacity = 30

// SafetyFunc is the opaque safety predicate of spec §6: "treated as opaque;
// the core surfaces reasons in state transitions."
type SafetyFunc func(model.TokenSnapshot) model.SafetyResult

// Token is the live aggregate for one mint.
type Token struct {
	mu sync.RWMutex

	log    *slog.Logger
	bus    *eventbus.Bus
	cfg    config.StrategyConfig
	safety SafetyFunc

	identity model.Identity
	reserves model.Reserves

	sm  *statemachine.Machine
	agg *ohlcv.Aggregator

	holders map[string]*model.Holder

	priceBuf     *ringbuf.Ring
	volumeSpikes []model.VolumeSpike

	highestMarketCap   float64
	marketCapFiat      float64
	lastMarketCapQuote float64 // last-reported trade.MarketCapQuote, rescaled by oracleRate on every refresh
	oracleRate         float64 // quote(lamports of SOL) -> fiat(USD)

	pumpCount       int
	lastPumpTime    time.Time
	highestGainRate float64
	lastTradeTime   time.Time

	seenSignatures map[string]struct{}
}

// New constructs a Token in state NEW.
func New(identity model.Identity, cfg config.StrategyConfig, bus *eventbus.Bus, safety SafetyFunc, log *slog.Logger) *Token {
	return &Token{
		log:            log,
		bus:            bus,
		cfg:            cfg,
		safety:         safety,
		identity:       identity,
		sm:             statemachine.New(),
		agg:            ohlcv.New(3600),
		holders:        make(map[string]*model.Holder),
		priceBuf:       ringbuf.New(priceBufferCapacity),
		oracleRate:     1,
		seenSignatures: make(map[string]struct{}),
	}
}

// Mint returns the token's identity mint address.
func (t *Token) Mint() string { return t.identity.Mint }

// PriceBufOverflow returns the cumulative count of price samples evicted
// from the circular price buffer by overwrite.
func (t *Token) PriceBufOverflow() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.priceBuf.Overflow()
}

// State returns the current lifecycle state.
func (t *Token) State() model.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sm.State()
}

// OnTrade implements spec §4.2 on_trade: updates reserves, current-price,
// holder state, volume windows, price buffer, OHLCV, then runs state
// detectors and publishes events for any transition that fires.
func (t *Token) OnTrade(trade model.TradeEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Idempotence (spec §8 property 3): a trade signature is unique per
	// trade; replaying one is a no-op.
	if trade.Signature != "" {
		if _, dup := t.seenSignatures[trade.Signature]; dup {
			return
		}
		t.seenSignatures[trade.Signature] = struct{}{}
	}

	t.reserves = model.Reserves{Token: trade.TokensInCurve, Quote: trade.QuoteInCurve}
	price := t.reserves.Price()
	t.lastMarketCapQuote = trade.MarketCapQuote
	t.marketCapFiat = t.lastMarketCapQuote * t.oracleRate

	t.pushPrice(price, trade.Timestamp)
	t.lastTradeTime = trade.Timestamp

	volumeFiat := float64(trade.TokenAmount) * price * t.oracleRate
	priceChange := t.lastPriceChange()
	t.recordHolderTrade(trade.TraderPublicKey, trade.NewTokenBalance, trade.TokenAmount, volumeFiat, priceChange, trade.Timestamp)

	t.agg.OnTrade(ohlcv.Trade{
		Mint:           trade.Mint,
		Price:          price,
		TokenVolume:    trade.TokenAmount,
		QuoteVolume:    trade.QuoteInCurve,
		MarketCapQuote: int64(trade.MarketCapQuote),
		FiatRate:       t.oracleRate,
		TS:             trade.Timestamp,
	})
	t.detectCrosses(trade.Mint)

	if t.marketCapFiat > t.highestMarketCap && !t.inDrawdownOrLater() {
		t.highestMarketCap = t.marketCapFiat
	}

	t.recordVolumeSpike(trade.Timestamp)
	t.sm.TrackPrice(price)
	t.runDetectors(trade.Timestamp, price)
}

// recordVolumeSpike appends the current volume-spike magnitude and drops
// entries older than 5 minutes (spec §3: "volume-spike history (5-minute
// retention)").
func (t *Token) recordVolumeSpike(now time.Time) {
	mag := t.volumeSpikeLocked()
	t.volumeSpikes = append(t.volumeSpikes, model.VolumeSpike{TS: now, Magnitude: mag})

	cutoff := now.Add(-5 * time.Minute)
	kept := t.volumeSpikes[:0]
	for _, s := range t.volumeSpikes {
		if s.TS.After(cutoff) {
			kept = append(kept, s)
		}
	}
	t.volumeSpikes = kept
}

// detectCrosses reads back the 1s candle series the aggregator just folded
// the latest trade into and publishes a Cross event for every EMA/VWAP
// relationship that flipped sign (spec §4.1 "Cross detection on each new
// candle"). Caller must hold t.mu.
func (t *Token) detectCrosses(mint string) {
	series := t.agg.Series(mint)
	for _, cr := range ohlcv.DetectCrosses(mint, model.TF1s, series) {
		t.bus.Publish(cr)
	}
}

// inDrawdownOrLater reports whether highest-market-cap tracking should
// freeze, per spec §3: "highest-market-cap is monotone non-decreasing while
// in pre-drawdown states."
func (t *Token) inDrawdownOrLater() bool {
	switch t.sm.State() {
	case model.StateDrawdown, model.StateRecovery, model.StateReady, model.StateOpen, model.StateClosed, model.StateDead, model.StateUnsafe:
		return true
	default:
		return false
	}
}

// OnOracleUpdate implements spec §4.2 on_oracle_update: refreshes
// fiat-denominated market-cap and, if the change clears the configured
// price-impact threshold, re-runs the detectors against the refreshed
// figures. Market cap is rescaled from the last reported trade.MarketCapQuote
// (the same basis OnTrade uses), not the raw curve reserve, so an oracle
// refresh never jumps the fiat figure onto a different basis than the trade
// path computed it on.
func (t *Token) OnOracleUpdate(newRate, oldRate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.oracleRate = newRate
	t.marketCapFiat = t.lastMarketCapQuote * newRate

	changePct := 0.0
	if oldRate != 0 {
		changePct = (newRate - oldRate) / oldRate * 100
	}
	if absFloat(changePct) >= t.cfg.Safety.PriceImpactThreshold {
		t.runDetectors(t.lastTradeTime, t.reserves.Price())
	}
}

// LatestCandle returns the most recently folded 1s candle for this token, or
// the zero Candle if no trade has been observed yet. Used by the fleet
// coordinator to feed positionengine.Update a real OHLC candle instead of a
// synthetic one, so the price-action exit evaluator (wick rejection, momentum
// loss) sees actual open/high/low data (spec §4.5).
func (t *Token) LatestCandle() model.Candle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	series := t.agg.Series(t.identity.Mint)
	if len(series) == 0 {
		return model.Candle{}
	}
	return series[len(series)-1]
}

// Snapshot returns the read-only aggregate of spec §4.2 snapshot().
func (t *Token) Snapshot() model.TokenSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Token) snapshotLocked() model.TokenSnapshot {
	price := t.reserves.Price()
	return model.TokenSnapshot{
		Identity:          t.identity,
		Reserves:          t.reserves,
		CurrentPrice:      price,
		State:             t.sm.State(),
		HighestMarketCap:  t.highestMarketCap,
		DrawdownLow:       t.sm.Bottom(),
		MarketCapFiat:     t.marketCapFiat,
		Volume5s:          t.recentVolumeLocked(5 * time.Second),
		Volume10s:         t.recentVolumeLocked(10 * time.Second),
		Volume30s:         t.recentVolumeLocked(30 * time.Second),
		Volume1m:          t.recentVolumeLocked(time.Minute),
		Volume5m:          t.recentVolumeLocked(5 * time.Minute),
		PumpCount:         t.pumpCount,
		LastPumpTime:      t.lastPumpTime,
		HighestGainRate:   t.highestGainRate,
		PriceAcceleration: t.priceAccelerationLocked(),
		HolderCount:       len(t.holders),
		TopHolderPct:      t.topHolderConcentrationLocked(10),
		CreatorSellPct:    t.creatorSellPercentageLocked(),
		LastTradeTime:     t.lastTradeTime,
		FirstPumpReached:  t.sm.FirstPumpReached(),
	}
}

func (t *Token) pushPrice(price float64, ts time.Time) {
	t.priceBuf.Push(model.PriceSample{Price: price, TS: ts})
}

func (t *Token) lastPriceChange() float64 {
	snap := t.priceBuf.Snapshot()
	n := len(snap)
	if n < 2 {
		return 0
	}
	prev := snap[n-2].Price
	cur := snap[n-1].Price
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

// priceIncrease returns percentage change from the oldest sample within
// window to the current price (spec §4.2 price_increase).
func (t *Token) priceIncreaseLocked(window time.Duration) float64 {
	snap := t.priceBuf.Snapshot()
	if len(snap) == 0 {
		return 0
	}
	now := snap[len(snap)-1].TS
	cur := snap[len(snap)-1].Price
	cutoff := now.Add(-window)

	oldest := snap[len(snap)-1]
	for _, s := range snap {
		if !s.TS.Before(cutoff) {
			oldest = s
			break
		}
	}
	if oldest.Price == 0 {
		return 0
	}
	return (cur - oldest.Price) / oldest.Price * 100
}

// priceAccelerationLocked computes the second finite difference of the last
// three price-buffer samples, normalized by interval span (spec §4.2).
func (t *Token) priceAccelerationLocked() float64 {
	snap := t.priceBuf.Snapshot()
	n := len(snap)
	if n < 3 {
		return 0
	}
	s0, s1, s2 := snap[n-3], snap[n-2], snap[n-1]

	dt1 := s1.TS.Sub(s0.TS).Seconds()
	dt2 := s2.TS.Sub(s1.TS).Seconds()
	if dt1 == 0 || dt2 == 0 {
		return 0
	}
	v1 := (s1.Price - s0.Price) / dt1
	v2 := (s2.Price - s1.Price) / dt2
	span := (dt1 + dt2) / 2
	if span == 0 {
		return 0
	}
	return (v2 - v1) / span
}
