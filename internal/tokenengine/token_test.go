package tokenengine

import (
	"testing"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
)

func alwaysSafe(model.TokenSnapshot) model.SafetyResult {
	return model.SafetyResult{Safe: true}
}

func testConfig() config.StrategyConfig {
	cfg := config.DefaultStrategyConfig()
	cfg.Thresholds.PumpPct = 20
	cfg.Thresholds.DrawdownPct = 15
	cfg.Thresholds.RecoveryMinGainPct = 10
	cfg.Thresholds.DeadFiat = 1
	cfg.Recovery.Gain.Min = 0
	cfg.Recovery.Gain.MaxEntry = 100
	return cfg
}

func newTestToken(t *testing.T) (*Token, *eventbus.Bus, *[]any) {
	t.Helper()
	bus := eventbus.New(nil)
	var received []any
	bus.Subscribe(eventbus.SinkFunc(func(evt any) {
		received = append(received, evt)
	}))

	tok := New(model.Identity{Mint: "mintA", CreatedAt: time.Now()}, testConfig(), bus, alwaysSafe, nil)
	return tok, bus, &received
}

func trade(mint string, trader string, tokensInCurve, quoteInCurve int64, mcap float64, ts time.Time) model.TradeEvent {
	return model.TradeEvent{
		Mint:            mint,
		TraderPublicKey: trader,
		Kind:            model.IngressBuy,
		TokenAmount:     1000,
		NewTokenBalance: 1000,
		TokensInCurve:   tokensInCurve,
		QuoteInCurve:    quoteInCurve,
		MarketCapQuote:  mcap,
		Timestamp:       ts,
	}
}

// TestOnTradeIdempotentBySignature reproduces spec §8 property 3: replaying
// a trade with a signature already seen is a no-op.
func TestOnTradeIdempotentBySignature(t *testing.T) {
	tok, _, _ := newTestToken(t)
	base := time.Now()

	tr := trade("mintA", "trader1", 1_000_000_000, 1_000_000, 1_000_000, base)
	tr.Signature = "sig-1"
	tok.OnTrade(tr)

	before := tok.Snapshot()

	tok.OnTrade(tr)
	after := tok.Snapshot()

	if before.Reserves != after.Reserves {
		t.Fatalf("replaying a seen signature mutated reserves: before=%+v after=%+v", before.Reserves, after.Reserves)
	}
	if before.HolderCount != after.HolderCount {
		t.Fatalf("replaying a seen signature changed holder count: before=%d after=%d", before.HolderCount, after.HolderCount)
	}
}

// TestPumpThenDrawdown reproduces spec §8 Scenario A: ten consecutive buys
// each multiplying reserves by 1.2 over 10 seconds drive NEW->PUMPING, then
// five consecutive sells each multiplying by 0.7 drive PUMPING->DRAWDOWN.
func TestPumpThenDrawdown(t *testing.T) {
	tok, _, received := newTestToken(t)

	base := time.Now()
	quote := int64(1_000_000)
	tokens := int64(1_000_000_000)

	for i := 0; i < 10; i++ {
		quote = int64(float64(quote) * 1.2)
		ts := base.Add(time.Duration(i) * time.Second)
		tok.OnTrade(trade("mintA", "trader1", tokens, quote, float64(quote), ts))
	}

	if tok.State() != model.StatePumping {
		t.Fatalf("expected PUMPING after pump sequence, got %s", tok.State())
	}

	for i := 0; i < 5; i++ {
		quote = int64(float64(quote) * 0.7)
		ts := base.Add(time.Duration(10+i) * time.Second)
		tok.OnTrade(trade("mintA", "trader1", tokens, quote, float64(quote), ts))
	}

	if tok.State() != model.StateDrawdown {
		t.Fatalf("expected DRAWDOWN after sell sequence, got %s", tok.State())
	}

	var sawStateChanged bool
	for _, evt := range *received {
		if _, ok := evt.(model.StateChanged); ok {
			sawStateChanged = true
		}
	}
	if !sawStateChanged {
		t.Fatal("expected at least one StateChanged event to be published")
	}
}

// TestDeadRequiresPriorFirstPump verifies the "stillborn" guard: a token
// that never pumped must not be marked dead purely on low market cap.
func TestDeadRequiresPriorFirstPump(t *testing.T) {
	tok, _, _ := newTestToken(t)
	base := time.Now()

	tok.OnTrade(trade("mintA", "trader1", 1_000_000_000, 1, 1, base))
	if tok.State() == model.StateDead {
		t.Fatal("token must not be marked dead before its first pump")
	}
}

func TestTopHolderConcentration(t *testing.T) {
	tok, _, _ := newTestToken(t)
	base := time.Now()

	tok.OnTrade(trade("mintA", "whale", 1_000_000_000, 1_000_000, 1_000_000, base))
	snap := tok.Snapshot()
	if snap.TopHolderPct <= 0 {
		t.Fatalf("expected nonzero top-holder concentration, got %v", snap.TopHolderPct)
	}
}
