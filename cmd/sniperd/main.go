// Command sniperd runs the fleet coordinator: it wires the ingress stream,
// oracle, safety gate, token/position engines, trade journal, missed-
// opportunity shadow log, Redis event egress, and Prometheus metrics, then
// blocks until SIGINT/SIGTERM (grounded on the teacher's cmd/mdengine
// main.go lifecycle shape: load config, construct collaborators, run,
// graceful shutdown on signal).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sniper-engine/config"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/eventbus/redisbus"
	"sniper-engine/internal/fleetcoordinator"
	"sniper-engine/internal/journal"
	"sniper-engine/internal/logger"
	"sniper-engine/internal/metrics"
	"sniper-engine/internal/missedopportunity"
	"sniper-engine/internal/model"
	"sniper-engine/internal/oracle"
	"sniper-engine/internal/positionengine"
	"sniper-engine/internal/safety"
	"sniper-engine/internal/streamsource/wsclient"
)

const (
	initialWalletBalance = 10.0 // SOL
	oraclePollInterval   = 30 * time.Second
	oracleURL            = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"
)

func main() {
	log := logger.Init("sniperd", slog.LevelInfo)
	cfg := config.Load()
	strategy, err := config.LoadStrategyConfig(cfg.StrategyConfigPath)
	if err != nil {
		log.Error("failed to load strategy config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventbus.New(log)

	m := metrics.New()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer metricsSrv.Stop(context.Background())

	jrnl, err := journal.New(cfg.SQLitePath, log)
	if err != nil {
		log.Error("failed to open trade journal", "error", err)
		os.Exit(1)
	}
	defer jrnl.Close()

	missed, err := missedopportunity.New(cfg.MissedOpportunityDir)
	if err != nil {
		log.Error("failed to open missed-opportunity log", "error", err)
		os.Exit(1)
	}

	var redisPublisher *redisbus.Publisher
	if pub, err := redisbus.New(redisbus.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, log); err != nil {
		log.Warn("redis event egress unavailable, continuing without it", "error", err)
	} else {
		redisPublisher = pub
		bus.Subscribe(redisPublisher)
		defer redisPublisher.Close()
	}

	oc := oracle.New(oracle.NewHTTPFetcher(oracleURL, 5*time.Second), oraclePollInterval, cfg.DefaultSolUSDRate, bus, log)
	go oc.Run(ctx)

	wallet := positionengine.NewWallet(initialWalletBalance)
	positions := positionengine.New(strategy, wallet, bus)

	go redisbus.SubscribeControl(ctx, cfg.RedisAddr, cfg.RedisPassword, log, func(command string) {
		switch command {
		case model.RuntimeCommandStop:
			positions.Pause()
			log.Info("sniperd: trading paused via dashboard control command")
		case model.RuntimeCommandResume:
			positions.Resume()
			log.Info("sniperd: trading resumed via dashboard control command")
		case model.RuntimeCommandQuit:
			log.Info("sniperd: quit requested via dashboard control command")
			cancel()
		}
	})

	safetyChecker := safety.New(strategy.Safety)

	bus.Subscribe(eventbus.SinkFunc(journalSink(jrnl, log)))
	bus.Subscribe(eventbus.SinkFunc(metricsSink(m, wallet)))

	source := wsclient.New(cfg.StreamSourceURL, log)

	coord := fleetcoordinator.New(strategy, *cfg, bus, source, oc, safetyChecker.Check, positions, missed, m, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("sniperd: shutdown signal received")
		cancel()
	}()

	health.SetStreamConnected(true)
	log.Info("sniperd: starting fleet coordinator")
	if err := coord.Run(ctx); err != nil && err != context.Canceled {
		log.Error("fleet coordinator exited with error, emergency-closing open positions", "error", err)
		rate, _ := oc.Rate()
		positions.EmergencyCloseAll(rate, time.Now())
		log.Info("sniperd: shutdown complete")
		os.Exit(1)
	}
	log.Info("sniperd: shutdown complete")
}

// journalSink persists every closed position to the trade journal.
func journalSink(j *journal.Journal, log *slog.Logger) func(evt any) {
	return func(evt any) {
		closed, ok := evt.(model.PositionClosedEvent)
		if !ok {
			return
		}
		if err := j.RecordClose(closed.Position); err != nil && log != nil {
			log.Warn("sniperd: journal record-close failed", "mint", closed.Position.TokenMint, "error", err)
		}
	}
}

// metricsSink updates the Prometheus gauges/counters that aren't owned by a
// single collaborator's own instrumentation.
func metricsSink(m *metrics.Metrics, wallet *positionengine.Wallet) func(evt any) {
	return func(evt any) {
		switch e := evt.(type) {
		case model.PositionClosedEvent:
			m.PositionsClosedTotal.WithLabelValues(e.Reason).Inc()
			m.WalletBalance.Set(wallet.Balance())
		case model.PartialExit:
			m.PartialExitsTotal.Inc()
		}
	}
}
