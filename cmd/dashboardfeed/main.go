// Command dashboardfeed serves the read-only dashboard WebSocket egress
// described in spec §6 (dashboard is an external consumer out of scope for
// this system's core, but still needs a transport). It subscribes to the
// same Redis Pub/Sub channels sniperd publishes to and republishes them over
// a local WebSocket hub — kept as a separate process so a dashboard
// consumer never shares a goroutine with the coordinator's own event loop.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goredis "github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"sniper-engine/config"
	"sniper-engine/internal/dashboardhub"
	"sniper-engine/internal/eventbus"
	"sniper-engine/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// controlChannel carries runtime commands (spec §6: "stop", "resume",
// "quit") from a dashboard client back to sniperd.
const controlChannel = "sniper:control"

func main() {
	log := logger.Init("dashboardfeed", slog.LevelInfo)
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("dashboardfeed: redis connection failed", "error", err)
		os.Exit(1)
	}

	bus := eventbus.New(log)
	hub := dashboardhub.New(bus, log)
	hub.Run()
	hub.SetControlHandler(func(command string) {
		if err := rdb.Publish(ctx, controlChannel, command).Err(); err != nil {
			log.Warn("dashboardfeed: control publish failed", "command", command, "error", err)
		}
	})

	go relayRedisToBus(ctx, rdb, bus, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("dashboardfeed: ws upgrade failed", "error", err)
			return
		}
		hub.HandleWS(conn)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"clients": hub.ClientCount()})
	})

	srv := &http.Server{Addr: cfg.DashboardWSAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("dashboardfeed: serving", "addr", cfg.DashboardWSAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Error("dashboardfeed: server error", "error", err)
		}
	}()

	<-sigCh
	log.Info("dashboardfeed: shutting down")
	cancel()
	srv.Shutdown(context.Background())
}

// relayRedisToBus republishes every sniper:events:* Redis Pub/Sub message
// onto the local bus as a dashboardhub.RawEvent, so WebSocket clients get
// the original payload without a relay-side unmarshal/remarshal round trip.
func relayRedisToBus(ctx context.Context, rdb *goredis.Client, bus *eventbus.Bus, log *slog.Logger) {
	pubsub := rdb.PSubscribe(ctx, "sniper:events:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			payload := []byte(msg.Payload)
			bus.Publish(dashboardhub.RawEvent{
				Channel: strings.TrimPrefix(msg.Channel, "sniper:events:"),
				Mint:    mintFromPayload(payload),
				Payload: payload,
			})
		}
	}
}

// mintFromPayload extracts the "mint" field carried by nearly every egress
// event payload (spec §6), so dashboard clients can still filter a relayed
// event by mint without this process knowing the event's concrete type.
func mintFromPayload(payload []byte) string {
	var probe struct {
		Mint string `json:"Mint"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.Mint
}
