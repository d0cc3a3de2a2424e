// Package fleetcoordinator implements Fleet Coordinator C3 (spec §4.6): the
// orchestrator binding the stream source, price oracle, safety gate, token
// registry, and position engine. Grounded on the teacher's cmd/api_gateway
// and internal/execution wiring style. Run drains new tokens and trades on
// two separate goroutines and runs the recovery monitor and cleanup sweep
// on goroutines of their own; the token registry is guarded by a mutex.
// Events from different goroutines are not applied in one serial order.
package fleetcoordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/logger"
	"sniper-engine/internal/metrics"
	"sniper-engine/internal/missedopportunity"
	"sniper-engine/internal/model"
	"sniper-engine/internal/positionengine"
	"sniper-engine/internal/streamsource"
	"sniper-engine/internal/tokenengine"
)

// eventCtx derives a context carrying a trace ID scoped to one mint/timestamp
// pair, so every log line emitted while handling that event can be
// correlated back to it (spec §10 ambient trace-ID propagation).
func eventCtx(mint string, ts time.Time) context.Context {
	return logger.WithTraceID(context.Background(), logger.GenerateTraceID(mint, ts))
}

// Oracle is the subset of internal/oracle.Oracle the coordinator depends
// on, kept narrow so tests can substitute a fake.
type Oracle interface {
	Rate() (float64, error)
}

// Coordinator owns the token registry exclusively (spec §3 "Ownership") and
// wires every other collaborator.
type Coordinator struct {
	log       *slog.Logger
	cfg       config.StrategyConfig
	timers    config.Config
	bus       *eventbus.Bus
	source    streamsource.Source
	oracle    Oracle
	safety    tokenengine.SafetyFunc
	positions *positionengine.Engine
	missed    *missedopportunity.Tracker
	metrics   *metrics.Metrics

	mu         sync.Mutex
	tokens     map[string]*tokenengine.Token
	subscribed map[string]bool
}

// New constructs a Coordinator. cfg is the strategy config tree; timers
// carries the infra-level timer durations (recovery monitor, cleanup,
// inactivity threshold).
func New(
	cfg config.StrategyConfig,
	timers config.Config,
	bus *eventbus.Bus,
	source streamsource.Source,
	oracle Oracle,
	safety tokenengine.SafetyFunc,
	positions *positionengine.Engine,
	missed *missedopportunity.Tracker,
	m *metrics.Metrics,
	log *slog.Logger,
) *Coordinator {
	return &Coordinator{
		log:        log,
		cfg:        cfg,
		timers:     timers,
		bus:        bus,
		source:     source,
		oracle:     oracle,
		safety:     safety,
		positions:  positions,
		missed:     missed,
		metrics:    m,
		tokens:     make(map[string]*tokenengine.Token),
		subscribed: make(map[string]bool),
	}
}

// Run drains the stream source and bus until ctx is cancelled, then tears
// down every owned resource (spec §4.6 "On shutdown: clears timers, drops
// all tokens, unsubscribes from all streams.").
func (c *Coordinator) Run(ctx context.Context) error {
	c.bus.Subscribe(eventbus.SinkFunc(c.onEvent))

	var wg sync.WaitGroup
	wg.Add(4)

	go func() { defer wg.Done(); c.source.Run(ctx) }()
	go func() { defer wg.Done(); c.drainNewTokens(ctx) }()
	go func() { defer wg.Done(); c.drainTrades(ctx) }()
	go func() { defer wg.Done(); c.recoveryMonitor(ctx) }()

	go c.cleanupSweep(ctx)

	<-ctx.Done()
	c.shutdown()
	wg.Wait()
	return ctx.Err()
}

func (c *Coordinator) drainNewTokens(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.source.NewTokens():
			if !ok {
				return
			}
			c.handleNewToken(evt)
		}
	}
}

func (c *Coordinator) drainTrades(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-c.source.Trades():
			if !ok {
				return
			}
			c.handleTrade(trade)
		}
	}
}

// handleNewToken implements spec §4.6: "On NewToken with previously unseen
// mint, create a Token and subscribe the stream source to per-token
// trades."
func (c *Coordinator) handleNewToken(evt model.NewTokenEvent) {
	c.mu.Lock()
	if _, exists := c.tokens[evt.Mint]; exists {
		c.mu.Unlock()
		return
	}
	tok := tokenengine.New(model.Identity{
		Mint:      evt.Mint,
		Symbol:    evt.Symbol,
		Name:      evt.Name,
		Creator:   evt.TraderPublicKey,
		CreatedAt: evt.Timestamp,
	}, c.cfg, c.bus, c.safety, c.log)
	c.tokens[evt.Mint] = tok
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.NewTokensTotal.Inc()
		c.metrics.ActiveTokens.Set(float64(c.tokenCount()))
	}

	if err := c.source.Send(model.ControlCommand{Method: model.MethodSubscribeTokenTrade, Keys: []string{evt.Mint}}); err != nil && c.log != nil {
		c.log.WarnContext(eventCtx(evt.Mint, evt.Timestamp), "fleetcoordinator: subscribe trade failed", "mint", evt.Mint, "error", err)
	}
	c.mu.Lock()
	c.subscribed[evt.Mint] = true
	c.mu.Unlock()

	c.bus.Publish(model.TokenAdded{Mint: evt.Mint, TS: evt.Timestamp})
}

// handleTrade dispatches to the owning token's OnTrade (spec §4.6: "On
// Trade, dispatch to the owning token's on_trade."). Trades for unknown
// mints are dropped without error (spec §8 Scenario F continuation).
func (c *Coordinator) handleTrade(trade model.TradeEvent) {
	c.mu.Lock()
	tok, ok := c.tokens[trade.Mint]
	c.mu.Unlock()
	if !ok {
		if c.metrics != nil {
			c.metrics.DroppedTrades.Inc()
		}
		return
	}

	overflowBefore := tok.PriceBufOverflow()
	tok.OnTrade(trade)

	if c.metrics != nil {
		c.metrics.TradesTotal.Inc()
		if delta := tok.PriceBufOverflow() - overflowBefore; delta > 0 {
			c.metrics.RingBufOverflow.Add(float64(delta))
		}
	}

	if _, found := c.positions.Get(trade.Mint); found {
		snap := tok.Snapshot()
		rate, _ := c.oracle.Rate()
		price := snap.CurrentPrice
		candle := tok.LatestCandle()
		c.positions.Update(trade.Mint, price, snap.Volume5s, candle, rate, trade.Timestamp)
	}
}

func (c *Coordinator) tokenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

// onEvent is the bus sink the coordinator subscribes for cross-cutting
// reactions to token state changes (spec §4.6).
func (c *Coordinator) onEvent(evt any) {
	switch e := evt.(type) {
	case model.StateChanged:
		c.onStateChanged(e)
	case model.ReadyForPosition:
		c.onReadyForPosition(e)
	case model.PriceUpdate:
		c.onPriceUpdate(e)
	}
}

// onPriceUpdate implements spec §2's "the oracle independently pushes
// PriceUpdates, which retrigger USD-denominated threshold checks" by
// fanning the refreshed rate out to every tracked token's on_oracle_update
// (spec §4.2).
func (c *Coordinator) onPriceUpdate(e model.PriceUpdate) {
	c.mu.Lock()
	toks := make([]*tokenengine.Token, 0, len(c.tokens))
	for _, tok := range c.tokens {
		toks = append(toks, tok)
	}
	c.mu.Unlock()

	for _, tok := range toks {
		tok.OnOracleUpdate(e.NewPrice, e.OldPrice)
	}
}

// onStateChanged implements spec §4.6: "On DRAWDOWN or unsafe/dead →
// evaluate exit or force-exit of any existing position."
func (c *Coordinator) onStateChanged(e model.StateChanged) {
	if c.metrics != nil {
		c.metrics.StateTransitionsTotal.WithLabelValues(string(e.From), string(e.To)).Inc()
	}

	switch e.To {
	case model.StateDrawdown, model.StateUnsafe, model.StateDead:
		if _, found := c.positions.Get(e.Mint); found {
			rate, _ := c.oracle.Rate()
			reason := "drawdown"
			if e.To == model.StateUnsafe {
				reason = "unsafe"
				if c.metrics != nil {
					c.metrics.TokensUnsafeTotal.Inc()
				}
			}
			if e.To == model.StateDead {
				reason = "dead"
				if c.metrics != nil {
					c.metrics.TokensDeadTotal.Inc()
				}
			}
			if err := c.positions.Close(e.Mint, reason, rate, e.TS); err == nil {
				c.closeTokenPosition(e.Mint, e.TS)
			}
		}
	}
}

// onReadyForPosition implements the entry half of spec §4.6 — opening a
// position once a token signals readiness with a sizing hint.
func (c *Coordinator) onReadyForPosition(e model.ReadyForPosition) {
	c.mu.Lock()
	tok, ok := c.tokens[e.Mint]
	c.mu.Unlock()
	if !ok {
		return
	}

	snap := tok.Snapshot()
	if snap.MarketCapFiat < c.cfg.MCap.Min || snap.MarketCapFiat > c.cfg.MCap.MaxEntry {
		c.recordMissedOpportunity(snap, []string{"market_cap_out_of_entry_range"})
		return
	}

	size := sizeForHint(c.cfg.Position, snap, e.SizeHint)
	if _, err := c.positions.Open(e.Mint, size, snap.CurrentPrice, e.TS); err != nil {
		c.recordMissedOpportunity(snap, []string{err.Error()})
		return
	}

	tok.OpenPosition(e.TS)
	if c.metrics != nil {
		c.metrics.PositionsOpenedTotal.WithLabelValues(string(e.SizeHint)).Inc()
		c.metrics.ActivePositions.Inc()
	}
}

// closeTokenPosition fires the owning token's OPEN→CLOSED edge after the
// position engine has settled the close.
func (c *Coordinator) closeTokenPosition(mint string, now time.Time) {
	c.mu.Lock()
	tok, ok := c.tokens[mint]
	c.mu.Unlock()
	if !ok {
		return
	}
	tok.ClosePosition(now)
	if c.metrics != nil {
		c.metrics.ActivePositions.Dec()
	}
}

func (c *Coordinator) recordMissedOpportunity(snap model.TokenSnapshot, failedChecks []string) {
	if c.missed == nil {
		return
	}
	rec := missedopportunity.Record{
		Timestamp: time.Now(),
		Token: missedopportunity.Token{
			Mint:             snap.Identity.Mint,
			InitialPrice:     snap.CurrentPrice,
			InitialMarketCap: snap.MarketCapFiat,
			FailedAt:         string(snap.State),
			FailedChecks:     failedChecks,
		},
	}
	if err := c.missed.Record(rec); err != nil && c.log != nil {
		c.log.WarnContext(eventCtx(snap.Identity.Mint, rec.Timestamp), "fleetcoordinator: missed-opportunity record failed", "error", err)
		return
	}
	c.bus.Publish(model.MissedOpportunityRecorded{Mint: snap.Identity.Mint, TS: rec.Timestamp})
	if c.metrics != nil {
		c.metrics.MissedOpportunitiesTotal.Inc()
	}
}

// shutdown drops every owned token and unsubscribes every stream
// subscription (spec §4.6 shutdown responsibilities).
func (c *Coordinator) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mints []string
	for mint := range c.subscribed {
		mints = append(mints, mint)
	}
	if len(mints) > 0 {
		c.source.Send(model.ControlCommand{Method: model.MethodUnsubscribeTokenTrade, Keys: mints})
	}
	c.source.Close()

	for mint := range c.tokens {
		delete(c.tokens, mint)
		c.bus.Publish(model.TokenRemoved{Mint: mint, Reason: "shutdown", TS: time.Now()})
	}
	c.subscribed = make(map[string]bool)
}
