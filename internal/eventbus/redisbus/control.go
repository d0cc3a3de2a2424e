package redisbus

import (
	"context"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"
)

// SubscribeControl listens on the sniper:control channel for runtime
// commands from the dashboard (spec §6: "stop", "resume", "quit",
// published by dashboardfeed's control handler) and invokes handle for
// each one received, until ctx is cancelled.
func SubscribeControl(ctx context.Context, addr, password string, log *slog.Logger, handle func(command string)) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	defer client.Close()

	pubsub := client.Subscribe(ctx, "sniper:control")
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
			if log != nil {
				log.Info("redisbus: control command received", "command", msg.Payload)
			}
			handle(msg.Payload)
		}
	}
}
