package fleetcoordinator

import (
	"context"
	"testing"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/missedopportunity"
	"sniper-engine/internal/model"
	"sniper-engine/internal/positionengine"
)

type fakeSource struct {
	newTokens chan model.NewTokenEvent
	trades    chan model.TradeEvent
	sent      []model.ControlCommand
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		newTokens: make(chan model.NewTokenEvent, 4),
		trades:    make(chan model.TradeEvent, 4),
	}
}

func (f *fakeSource) Run(ctx context.Context) error             { <-ctx.Done(); return ctx.Err() }
func (f *fakeSource) NewTokens() <-chan model.NewTokenEvent      { return f.newTokens }
func (f *fakeSource) Trades() <-chan model.TradeEvent            { return f.trades }
func (f *fakeSource) Send(cmd model.ControlCommand) error {
	f.sent = append(f.sent, cmd)
	return nil
}
func (f *fakeSource) Close() error { return nil }

type fakeOracle struct{ rate float64 }

func (o *fakeOracle) Rate() (float64, error) { return o.rate, nil }

func alwaysSafe(model.TokenSnapshot) model.SafetyResult { return model.SafetyResult{Safe: true} }

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeSource) {
	t.Helper()
	cfg := config.DefaultStrategyConfig()
	bus := eventbus.New(nil)
	source := newFakeSource()
	oracle := &fakeOracle{rate: 200}
	wallet := positionengine.NewWallet(10)
	positions := positionengine.New(cfg, wallet, bus)
	missed, err := missedopportunity.New(t.TempDir())
	if err != nil {
		t.Fatalf("missedopportunity.New: %v", err)
	}
	c := New(cfg, config.Config{}, bus, source, oracle, alwaysSafe, positions, missed, nil, nil)
	return c, source
}

// TestOnPriceUpdateFansOutToEveryTrackedToken exercises spec §2/§4.2: the
// oracle's PriceUpdate must retrigger every tracked token's
// on_oracle_update, refreshing its fiat market cap.
func TestOnPriceUpdateFansOutToEveryTrackedToken(t *testing.T) {
	c, _ := newTestCoordinator(t)
	now := time.Now()

	c.handleNewToken(model.NewTokenEvent{Mint: "mintA", Symbol: "A", TraderPublicKey: "creatorA", Timestamp: now})
	c.handleTrade(model.TradeEvent{
		Mint: "mintA", TraderPublicKey: "traderA", TokenAmount: 100, NewTokenBalance: 100,
		TokensInCurve: 1000, QuoteInCurve: 10, MarketCapQuote: 10, Signature: "sig1", Timestamp: now,
	})

	before := c.tokens["mintA"].Snapshot().MarketCapFiat

	c.onEvent(model.PriceUpdate{NewPrice: 400, OldPrice: 200, PercentChange: 100})

	after := c.tokens["mintA"].Snapshot().MarketCapFiat
	if after <= before {
		t.Fatalf("expected market cap fiat to increase after oracle rate doubled, before=%v after=%v", before, after)
	}
}

func TestHandleNewTokenSubscribesAndIgnoresDuplicates(t *testing.T) {
	c, source := newTestCoordinator(t)
	now := time.Now()

	c.handleNewToken(model.NewTokenEvent{Mint: "mintA", Timestamp: now})
	c.handleNewToken(model.NewTokenEvent{Mint: "mintA", Timestamp: now})

	if len(c.tokens) != 1 {
		t.Fatalf("expected exactly one tracked token, got %d", len(c.tokens))
	}
	if len(source.sent) != 1 {
		t.Fatalf("expected exactly one subscribe command, got %d", len(source.sent))
	}
}

func TestHandleTradeDropsUnknownMint(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.handleTrade(model.TradeEvent{Mint: "unknown", Timestamp: time.Now()})
	if len(c.tokens) != 0 {
		t.Fatalf("expected no tokens created from a trade on an unknown mint")
	}
}
