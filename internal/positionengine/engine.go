package positionengine

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/exitevaluator"
	"sniper-engine/internal/model"
)

// ErrPositionExists is returned by Open when a position is already tracked
// for the mint (spec §4.4: "Fails if position already exists for mint").
var ErrPositionExists = errors.New("positionengine: position already exists for mint")

// ErrTradingPaused is returned by Open while the global trading gate is
// paused.
var ErrTradingPaused = errors.New("positionengine: trading is paused")

// ErrSizeOutOfRange is returned by Open when size falls outside the
// configured [MinPositionSize, MaxPositionSize] range.
var ErrSizeOutOfRange = errors.New("positionengine: size out of configured range")

const (
	priceHistoryCapacity  = 60
	volumeHistoryCapacity = 30
	candleHistoryCapacity = 30
)

// Engine owns every live Position, keyed by the mint it targets (spec §3
// "Ownership": "position lifetime is bounded by the position engine").
type Engine struct {
	mu        sync.Mutex
	cfg       config.StrategyConfig
	wallet    *Wallet
	bus       *eventbus.Bus
	positions map[string]*model.Position
	paused    bool
}

// New constructs an Engine.
func New(cfg config.StrategyConfig, wallet *Wallet, bus *eventbus.Bus) *Engine {
	return &Engine{
		cfg:       cfg,
		wallet:    wallet,
		bus:       bus,
		positions: make(map[string]*model.Position),
	}
}

// Get returns the live position for mint, if any.
func (e *Engine) Get(mint string) (*model.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[mint]
	return p, ok
}

// Open implements spec §4.4 open(token, size): pending→open at the current
// price, debiting the wallet by size·entry_price + fee_buy.
func (e *Engine) Open(mint string, size, entryPrice float64, now time.Time) (*model.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused {
		return nil, ErrTradingPaused
	}
	if _, exists := e.positions[mint]; exists {
		return nil, ErrPositionExists
	}
	if size < e.cfg.Position.MinPositionSize || size > e.cfg.Position.MaxPositionSize {
		return nil, ErrSizeOutOfRange
	}

	cost := size*entryPrice + e.cfg.TransactionFees.Buy
	if err := e.wallet.Debit(cost); err != nil {
		return nil, err
	}

	pos := &model.Position{
		ID:                uuid.New().String(),
		TokenMint:         mint,
		State:             model.PositionOpen,
		Size:              size,
		EntryPrice:        entryPrice,
		CurrentPrice:      entryPrice,
		HighestPrice:      entryPrice,
		LowestPrice:       entryPrice,
		RemainingFraction: 1.0,
		OpenTime:          now,
		Trades: []model.PositionTrade{
			{Kind: model.TradeEntry, Price: entryPrice, Fraction: 1.0, TS: now},
		},
	}
	e.positions[mint] = pos

	e.bus.Publish(model.PositionOpened{Position: *pos, Mint: mint, TS: now})
	return pos, nil
}

// Update implements spec §4.4 update(token): refreshes current price,
// highest/lowest, unrealized P&L, ROI, appends to the rolling history
// buffers, then runs the exit evaluator. A fraction=1.0 signal closes the
// position; 0<fraction<1 records a partial exit.
func (e *Engine) Update(mint string, price float64, volumeFiat float64, candle model.Candle, fiatRate float64, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[mint]
	if !ok || pos.State != model.PositionOpen {
		return nil
	}

	pos.CurrentPrice = price
	if price > pos.HighestPrice {
		pos.HighestPrice = price
	}
	if price < pos.LowestPrice || pos.LowestPrice == 0 {
		pos.LowestPrice = price
	}

	unrealizedNative := (price - pos.EntryPrice) * pos.Size * pos.RemainingFraction
	pos.UnrealizedPnL = model.PnL{Native: unrealizedNative, Fiat: unrealizedNative * fiatRate}
	if pos.ROIPercent() > pos.HighestUnrealizedPnL {
		pos.HighestUnrealizedPnL = pos.ROIPercent()
	}

	pos.PriceHistory = appendCapped(pos.PriceHistory, model.PriceSample{Price: price, TS: now}, priceHistoryCapacity)
	pos.VolumeHistory = appendCappedFloat(pos.VolumeHistory, volumeFiat, volumeHistoryCapacity)
	pos.CandleHistory = appendCappedCandle(pos.CandleHistory, candle, candleHistoryCapacity)

	sig, fired := exitevaluator.Evaluate(pos, e.cfg, now)
	if !fired {
		e.bus.Publish(model.PositionUpdated{Position: *pos, TS: now})
		return nil
	}

	if sig.TierKey() != 0 {
		pos.MarkTierTaken(sig.TierKey())
	}

	if sig.Fraction >= pos.RemainingFraction {
		e.closeLocked(pos, sig.Reason, now, fiatRate)
		return nil
	}

	pos.RemainingFraction -= sig.Fraction
	pos.Trades = append(pos.Trades, model.PositionTrade{
		Kind: model.TradeExit, Price: price, Fraction: sig.Fraction, Reason: sig.Reason, TS: now,
	})
	e.bus.Publish(model.PartialExit{PositionID: pos.ID, Fraction: sig.Fraction, Reason: sig.Reason, TS: now})
	return nil
}

// Close implements spec §4.4 close(reason): open→closed, settling realized
// P&L and crediting the wallet by size·exit_price − fee_sell.
func (e *Engine) Close(mint, reason string, fiatRate float64, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.positions[mint]
	if !ok || pos.State != model.PositionOpen {
		return nil
	}
	e.closeLocked(pos, reason, now, fiatRate)
	return nil
}

// closeLocked settles and closes pos. Caller must hold e.mu.
func (e *Engine) closeLocked(pos *model.Position, reason string, now time.Time, fiatRate float64) {
	exitSize := pos.Size * pos.RemainingFraction
	proceeds := exitSize*pos.CurrentPrice - e.cfg.TransactionFees.Sell
	e.wallet.Credit(proceeds)

	realizedNative := (pos.CurrentPrice - pos.EntryPrice) * exitSize
	pos.RealizedPnL = model.PnL{Native: realizedNative, Fiat: realizedNative * fiatRate}

	totalFees := e.cfg.TransactionFees.Buy + e.cfg.TransactionFees.Sell
	realizedWithFees := realizedNative - totalFees
	pos.RealizedPnLWithFees = model.PnL{Native: realizedWithFees, Fiat: realizedWithFees * fiatRate}

	pos.Trades = append(pos.Trades, model.PositionTrade{
		Kind: model.TradeExit, Price: pos.CurrentPrice, Fraction: pos.RemainingFraction, Reason: reason, TS: now,
	})
	pos.RemainingFraction = 0
	pos.State = model.PositionClosed
	pos.CloseTime = now
	pos.CloseReason = reason

	delete(e.positions, pos.TokenMint)
	e.bus.Publish(model.PositionClosedEvent{Position: *pos, Reason: reason, TS: now})
}

// Pause stops Open from accepting new positions (spec §4.4 global trading
// gate).
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume re-enables Open.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// EmergencyCloseAll closes every open position with reason="emergency" and
// pauses trading (spec §4.4).
func (e *Engine) EmergencyCloseAll(fiatRate float64, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.paused = true
	for _, pos := range e.positions {
		if pos.State == model.PositionOpen {
			e.closeLocked(pos, "emergency", now, fiatRate)
		}
	}
}

func appendCapped(s []model.PriceSample, v model.PriceSample, cap int) []model.PriceSample {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

func appendCappedFloat(s []float64, v float64, cap int) []float64 {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

func appendCappedCandle(s []model.Candle, v model.Candle, cap int) []model.Candle {
	s = append(s, v)
	if len(s) > cap {
		s = s[len(s)-cap:]
	}
	return s
}

