package wsclient

import (
	"time"

	"sniper-engine/internal/model"
)

// wireNewToken mirrors pump.fun's `create` message shape.
type wireNewToken struct {
	Mint                string  `json:"mint"`
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	URI                 string  `json:"uri"`
	TraderPublicKey     string  `json:"traderPublicKey"`
	InitialBuy          int64   `json:"initialBuy"`
	VTokensInCurve      int64   `json:"vTokensInBondingCurve"`
	VSolInCurve         int64   `json:"vSolInBondingCurve"`
	MarketCapSol        float64 `json:"marketCapSol"`
	BondingCurveKey     string  `json:"bondingCurveKey"`
	Signature           string  `json:"signature"`
}

func (w wireNewToken) toModel() model.NewTokenEvent {
	return model.NewTokenEvent{
		Mint:            w.Mint,
		Name:            w.Name,
		Symbol:          w.Symbol,
		URI:             w.URI,
		TraderPublicKey: w.TraderPublicKey,
		InitialBuy:      w.InitialBuy,
		TokensInCurve:   w.VTokensInCurve,
		QuoteInCurve:    w.VSolInCurve,
		MarketCapQuote:  w.MarketCapSol,
		BondingCurveKey: w.BondingCurveKey,
		Signature:       w.Signature,
		Timestamp:       time.Now(),
	}
}

// wireTrade mirrors pump.fun's `buy`/`sell` message shape.
type wireTrade struct {
	TxType           string  `json:"txType"`
	Mint             string  `json:"mint"`
	TraderPublicKey  string  `json:"traderPublicKey"`
	TokenAmount      int64   `json:"tokenAmount"`
	NewTokenBalance  int64   `json:"newTokenBalance"`
	VTokensInCurve   int64   `json:"vTokensInBondingCurve"`
	VSolInCurve      int64   `json:"vSolInBondingCurve"`
	MarketCapSol     float64 `json:"marketCapSol"`
	Signature        string  `json:"signature"`
}

func (w wireTrade) toModel() model.TradeEvent {
	kind := model.IngressBuy
	if w.TxType == "sell" {
		kind = model.IngressSell
	}
	return model.TradeEvent{
		Mint:            w.Mint,
		TraderPublicKey: w.TraderPublicKey,
		Kind:            kind,
		TokenAmount:     w.TokenAmount,
		NewTokenBalance: w.NewTokenBalance,
		TokensInCurve:   w.VTokensInCurve,
		QuoteInCurve:    w.VSolInCurve,
		MarketCapQuote:  w.MarketCapSol,
		Signature:       w.Signature,
		Timestamp:       time.Now(),
	}
}
