package model

import "time"

// TradeKindIngress distinguishes a buy from a sell on the ingress wire
// (spec §6), separate from PositionTrade's TradeKind.
type TradeKindIngress string

const (
	IngressBuy  TradeKindIngress = "buy"
	IngressSell TradeKindIngress = "sell"
)

// NewTokenEvent mirrors the `create` ingress message from spec §6.
type NewTokenEvent struct {
	Mint               string
	Name               string
	Symbol             string
	URI                string
	TraderPublicKey    string
	InitialBuy         int64
	TokensInCurve      int64
	QuoteInCurve       int64
	MarketCapQuote     float64
	BondingCurveKey    string
	Signature          string
	Timestamp          time.Time
}

// TradeEvent mirrors the `buy`/`sell` ingress messages from spec §6 and §3.
type TradeEvent struct {
	Mint              string
	TraderPublicKey   string
	Kind              TradeKindIngress
	TokenAmount       int64
	NewTokenBalance   int64
	TokensInCurve     int64
	QuoteInCurve      int64
	MarketCapQuote    float64
	Signature         string
	Timestamp         time.Time
}

// PriceUpdate is the oracle push event from spec §6.
type PriceUpdate struct {
	NewPrice      float64
	OldPrice      float64
	PercentChange float64
}

// SafetyResult is the opaque safety predicate's result (spec §6).
type SafetyResult struct {
	Safe    bool
	Reasons []string
}

// ControlCommand mirrors the control commands sent to the stream source
// (spec §6).
type ControlCommand struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys,omitempty"`
}

const (
	MethodSubscribeNewToken      = "subscribeNewToken"
	MethodSubscribeTokenTrade    = "subscribeTokenTrade"
	MethodUnsubscribeTokenTrade  = "unsubscribeTokenTrade"
)

// RuntimeCommand is a recognized runtime command from the dashboard (spec
// §6 CLI surface: "stop (pause trading), resume (resume trading), quit").
// The dashboard's keyboard bindings that produce these are out of scope;
// only the command names and their effect are part of the contract.
type RuntimeCommand struct {
	Command string `json:"command"`
}

const (
	RuntimeCommandStop   = "stop"
	RuntimeCommandResume = "resume"
	RuntimeCommandQuit   = "quit"
)
