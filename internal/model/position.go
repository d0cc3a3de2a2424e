package model

import "time"

// PositionState is the lifecycle state of a Position (spec §3).
type PositionState string

const (
	PositionPending PositionState = "pending"
	PositionOpen    PositionState = "open"
	PositionClosed  PositionState = "closed"
)

// TradeKind distinguishes the entry trade from exit trades in a position's
// trade log.
type TradeKind string

const (
	TradeEntry TradeKind = "entry"
	TradeExit  TradeKind = "exit"
)

// PositionTrade is one fill recorded against a position — the entry, or one
// of potentially several partial/full exits.
type PositionTrade struct {
	Kind     TradeKind `json:"kind"`
	Price    float64   `json:"price"`
	Fraction float64   `json:"fraction"` // fraction of original size for this fill
	Reason   string    `json:"reason,omitempty"`
	TS       time.Time `json:"ts"`
}

// PnL carries a profit-or-loss figure in both the quote asset (fractional
// SOL, unlike Denominated.Native's integer token-native units) and fiat.
type PnL struct {
	Native float64 `json:"native"`
	Fiat   float64 `json:"fiat"`
}

// Position tracks one simulated trading position (spec §3/§4.4).
// TokenMint is a weak reference by identifier — Position does not own the
// Token's lifetime.
type Position struct {
	ID       string
	TokenMint string
	State    PositionState

	Size       float64 // original size, token-native units
	EntryPrice float64
	CurrentPrice float64
	HighestPrice float64
	LowestPrice  float64

	HighestUnrealizedPnL float64

	RealizedPnL         PnL
	RealizedPnLWithFees PnL
	UnrealizedPnL       PnL

	Trades []PositionTrade

	OpenTime   time.Time
	CloseTime  time.Time
	CloseReason string

	RemainingFraction float64 // ∈ [0,1], strictly non-increasing

	PriceHistory  []PriceSample   // last 60 samples
	VolumeHistory []float64       // last 30 samples
	CandleHistory []Candle        // last 30 samples

	takenTiers map[float64]bool // internal: tiered take-profit bookkeeping
}

// ROIPercent returns unrealized return on entry price as a percentage.
func (p *Position) ROIPercent() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// ProfitPercent is an alias used throughout the exit evaluators — profit
// relative to entry price, expressed as a percentage.
func (p *Position) ProfitPercent() float64 {
	return p.ROIPercent()
}

// DropFromHighPercent returns the percentage decline from the highest
// observed price to the current price — the trailing drawdown the
// stop-loss/take-profit evaluators trail against (spec §9 Open Question iii:
// the spec standardizes on highest-price, i.e. trailing semantics).
func (p *Position) DropFromHighPercent() float64 {
	if p.HighestPrice == 0 {
		return 0
	}
	return (p.HighestPrice - p.CurrentPrice) / p.HighestPrice * 100
}

// TakenTierFraction reports whether a tiered take-profit tier identified by
// its profit threshold has already fired.
func (p *Position) TakenTierFraction(profitPct float64) bool {
	if p.takenTiers == nil {
		return false
	}
	return p.takenTiers[profitPct]
}

// MarkTierTaken records that a tiered take-profit tier has fired.
func (p *Position) MarkTierTaken(profitPct float64) {
	if p.takenTiers == nil {
		p.takenTiers = make(map[float64]bool)
	}
	p.takenTiers[profitPct] = true
}

// SumExitFractions returns the sum of all recorded exit fractions —
// invariant 6/property 6 requires this never exceed 1.
func (p *Position) SumExitFractions() float64 {
	var sum float64
	for _, t := range p.Trades {
		if t.Kind == TradeExit {
			sum += t.Fraction
		}
	}
	return sum
}
