// Package metrics registers the Prometheus metrics surface and a
// liveness/health endpoint, adapted from the teacher's
// internal/metrics/metrics.go.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus metric the engine exposes.
type Metrics struct {
	TradesTotal       prometheus.Counter
	NewTokensTotal    prometheus.Counter
	WSReconnects      prometheus.Counter
	DroppedTrades     prometheus.Counter
	RedisPublishDur   prometheus.Histogram
	JournalCommitDur  prometheus.Histogram

	StateTransitionsTotal *prometheus.CounterVec // labels: from, to
	TokensUnsafeTotal     prometheus.Counter
	TokensDeadTotal       prometheus.Counter

	PositionsOpenedTotal *prometheus.CounterVec // labels: size_hint (entry trigger)
	PositionsClosedTotal *prometheus.CounterVec // labels: reason (exit evaluator)
	PartialExitsTotal    prometheus.Counter
	RealizedPnLNative    prometheus.Counter
	WalletBalance        prometheus.Gauge

	RingBufOverflow prometheus.Counter

	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter

	ActiveTokens    prometheus.Gauge
	ActivePositions prometheus.Gauge

	MissedOpportunitiesTotal prometheus.Counter
}

// New registers and returns every metric.
func New() *Metrics {
	m := &Metrics{
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_trades_total",
			Help: "Total ingress trade events processed",
		}),
		NewTokensTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_new_tokens_total",
			Help: "Total create events processed",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_ws_reconnects_total",
			Help: "Total stream-source reconnection attempts",
		}),
		DroppedTrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_dropped_trades_total",
			Help: "Trade events dropped for an unknown mint",
		}),
		RedisPublishDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_redis_publish_duration_seconds",
			Help:    "Redis event-egress publish latency",
			Buckets: prometheus.DefBuckets,
		}),
		JournalCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sniper_journal_commit_duration_seconds",
			Help:    "SQLite trade-journal commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		StateTransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_state_transitions_total",
			Help: "Token state machine transitions",
		}, []string{"from", "to"}),
		TokensUnsafeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_tokens_unsafe_total",
			Help: "Tokens marked unsafe",
		}),
		TokensDeadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_tokens_dead_total",
			Help: "Tokens marked dead",
		}),

		PositionsOpenedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_positions_opened_total",
			Help: "Positions opened, labeled by the size hint that triggered entry",
		}, []string{"size_hint"}),
		PositionsClosedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sniper_positions_closed_total",
			Help: "Positions closed, labeled by close reason",
		}, []string{"reason"}),
		PartialExitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_partial_exits_total",
			Help: "Partial exits executed across all positions",
		}),
		RealizedPnLNative: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_realized_pnl_native_total",
			Help: "Cumulative realized P&L in quote-asset native units (monotonic counter of absolute magnitude; sign tracked via wallet balance)",
		}),
		WalletBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_wallet_balance",
			Help: "Current simulated wallet balance, quote-asset native units",
		}),

		RingBufOverflow: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_ringbuf_overflow_total",
			Help: "Price ring-buffer push overflows",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_redis_circuit_breaker_state",
			Help: "Redis publisher circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_redis_circuit_breaker_trips_total",
			Help: "Times the Redis publisher circuit breaker tripped open",
		}),

		ActiveTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_active_tokens",
			Help: "Tokens currently held in the registry, including terminal ones not yet swept",
		}),
		ActivePositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sniper_active_positions",
			Help: "Positions currently open",
		}),

		MissedOpportunitiesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sniper_missed_opportunities_total",
			Help: "Tokens recorded to the missed-opportunity shadow log",
		}),
	}

	prometheus.MustRegister(
		m.TradesTotal,
		m.NewTokensTotal,
		m.WSReconnects,
		m.DroppedTrades,
		m.RedisPublishDur,
		m.JournalCommitDur,
		m.StateTransitionsTotal,
		m.TokensUnsafeTotal,
		m.TokensDeadTotal,
		m.PositionsOpenedTotal,
		m.PositionsClosedTotal,
		m.PartialExitsTotal,
		m.RealizedPnLNative,
		m.WalletBalance,
		m.RingBufOverflow,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.ActiveTokens,
		m.ActivePositions,
		m.MissedOpportunitiesTotal,
	)

	return m
}

// HealthStatus tracks liveness of the stream source and its dependencies.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastTradeTime   time.Time `json:"last_trade_time"`
	RedisConnected  bool      `json:"redis_connected"`
	JournalOK       bool      `json:"journal_ok"`

	RedisLatencyMs   float64   `json:"redis_latency_ms"`
	JournalLatencyMs float64   `json:"journal_latency_ms"`
	LastCheckAt      time.Time `json:"last_check_at"`
	StartedAt        time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status stamped with the current
// start time.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastTradeTime(t time.Time) {
	h.mu.Lock()
	h.LastTradeTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckJournal runs a trivial query against the trade journal and records
// latency + health.
func (h *HealthStatus) CheckJournal(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.JournalOK = err == nil
	h.JournalLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks until ctx is
// cancelled.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, journalDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if journalDB != nil {
					h.CheckJournal(probeCtx, journalDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	if !h.StreamConnected || !h.RedisConnected {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.StreamConnected && !h.RedisConnected {
		overallStatus = "unhealthy"
	}

	tradeAge := ""
	if !h.LastTradeTime.IsZero() {
		tradeAge = time.Since(h.LastTradeTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status           string  `json:"status"`
		Uptime           string  `json:"uptime"`
		StreamConnected  bool    `json:"stream_connected"`
		LastTradeTime    string  `json:"last_trade_time"`
		TradeAge         string  `json:"trade_age"`
		RedisConnected   bool    `json:"redis_connected"`
		RedisLatencyMs   float64 `json:"redis_latency_ms"`
		JournalOK        bool    `json:"journal_ok"`
		JournalLatencyMs float64 `json:"journal_latency_ms"`
		LastCheckAt      string  `json:"last_check_at"`
	}{
		Status:           overallStatus,
		Uptime:           time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected:  h.StreamConnected,
		LastTradeTime:    h.LastTradeTime.Format(time.RFC3339),
		TradeAge:         tradeAge,
		RedisConnected:   h.RedisConnected,
		RedisLatencyMs:   h.RedisLatencyMs,
		JournalOK:        h.JournalOK,
		JournalLatencyMs: h.JournalLatencyMs,
		LastCheckAt:      h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
