// Package oracle converts between SOL and USD, pushing model.PriceUpdate
// events through the bus and falling back to the last-known rate when the
// upstream price feed is unavailable (spec §7 ExternalUnavailable), in the
// style of the teacher's polling monitors under backend/internal/execution.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/model"
)

// ErrNoRate is returned by SolToUSD/USDToSol before the first successful
// fetch has populated a rate.
var ErrNoRate = errors.New("oracle: no SOL/USD rate available yet")

// Fetcher retrieves the current SOL/USD rate from an external source.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

// Oracle tracks the SOL/USD conversion rate on a poll loop, publishing
// model.PriceUpdate on every change and serving the last-known rate when
// the fetcher errors (cached-fallback, spec §7).
type Oracle struct {
	mu   sync.RWMutex
	rate float64
	have bool

	fetcher  Fetcher
	interval time.Duration
	bus      *eventbus.Bus
	log      *slog.Logger
}

// New constructs an Oracle. interval governs the poll cadence. defaultRate
// seeds the cached rate so lookups before the first successful fetch (or
// after every fetch has failed) fall back to a configured value instead of
// erroring (spec §5: "oracle lookups fall back to a configured default rate
// on failure"), rather than the teacher's own health-check fallback, which
// has no such seed and simply serves the last value.
func New(fetcher Fetcher, interval time.Duration, defaultRate float64, bus *eventbus.Bus, log *slog.Logger) *Oracle {
	o := &Oracle{fetcher: fetcher, interval: interval, bus: bus, log: log}
	if defaultRate > 0 {
		o.rate = defaultRate
		o.have = true
	}
	return o
}

// Run polls until ctx is cancelled. A fetch failure is logged and the
// last-known rate is retained (spec §7: "oracle keeps serving the last
// known rate; callers are not blocked").
func (o *Oracle) Run(ctx context.Context) error {
	o.poll(ctx)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

func (o *Oracle) poll(ctx context.Context) {
	newRate, err := o.fetcher.Fetch(ctx)
	if err != nil {
		if o.log != nil {
			o.log.Warn("oracle: fetch failed, serving cached rate", "error", err)
		}
		return
	}

	o.mu.Lock()
	oldRate := o.rate
	hadRate := o.have
	o.rate = newRate
	o.have = true
	o.mu.Unlock()

	if !hadRate || oldRate == newRate {
		return
	}
	pct := (newRate - oldRate) / oldRate * 100
	o.bus.Publish(model.PriceUpdate{NewPrice: newRate, OldPrice: oldRate, PercentChange: pct})
}

// Rate returns the last-known SOL/USD rate.
func (o *Oracle) Rate() (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.have {
		return 0, ErrNoRate
	}
	return o.rate, nil
}

// SolToUSD converts a SOL-denominated amount to USD using the cached rate.
func (o *Oracle) SolToUSD(sol float64) (float64, error) {
	rate, err := o.Rate()
	if err != nil {
		return 0, err
	}
	return sol * rate, nil
}

// USDToSol converts a USD-denominated amount to SOL using the cached rate.
func (o *Oracle) USDToSol(usd float64) (float64, error) {
	rate, err := o.Rate()
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, ErrNoRate
	}
	return usd / rate, nil
}

// HTTPFetcher fetches the SOL/USD rate from a JSON endpoint of the shape
// {"solana":{"usd":123.45}} (CoinGecko's simple price API).
type HTTPFetcher struct {
	URL    string
	Client *http.Client
}

// NewHTTPFetcher returns a Fetcher hitting url with the given timeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{URL: url, Client: &http.Client{Timeout: timeout}}
}
