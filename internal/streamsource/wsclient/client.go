// Package wsclient is the production streamsource.Source implementation: a
// gorilla/websocket connection to the pump.fun-style ingress feed (spec §6
// ingress schema), adapted from the teacher's internal/gateway/client.go
// read/write pump pattern, pointed inbound instead of outbound.
package wsclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sniper-engine/internal/model"
)

const (
	reconnectDelay = 2 * time.Second
	writeTimeout   = 5 * time.Second
)

// Client connects to url and translates its discriminated `txType` JSON
// messages into model.NewTokenEvent / model.TradeEvent.
type Client struct {
	url string
	log *slog.Logger

	newTokens chan model.NewTokenEvent
	trades    chan model.TradeEvent

	connMu sync.Mutex
	conn   *websocket.Conn
}

// New returns a Client for url. Call Run to connect.
func New(url string, log *slog.Logger) *Client {
	return &Client{
		url:       url,
		log:       log,
		newTokens: make(chan model.NewTokenEvent, 256),
		trades:    make(chan model.TradeEvent, 4096),
	}
}

func (c *Client) NewTokens() <-chan model.NewTokenEvent { return c.newTokens }
func (c *Client) Trades() <-chan model.TradeEvent       { return c.trades }

// Run connects and reconnects until ctx is cancelled (spec §7
// ExternalUnavailable: "stream auto-reconnects; events during disconnect
// are lost and not re-synthesized").
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.runOnce(ctx); err != nil && c.log != nil {
			c.log.Warn("wsclient: connection lost, reconnecting", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer conn.Close()

	c.Send(model.ControlCommand{Method: model.MethodSubscribeNewToken})

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var disc struct {
		TxType string `json:"txType"`
	}
	if err := json.Unmarshal(raw, &disc); err != nil {
		if c.log != nil {
			c.log.Warn("wsclient: malformed ingress message", "error", err)
		}
		return
	}

	switch disc.TxType {
	case "create":
		var wire wireNewToken
		if err := json.Unmarshal(raw, &wire); err != nil {
			if c.log != nil {
				c.log.Warn("wsclient: malformed create event", "error", err)
			}
			return
		}
		select {
		case c.newTokens <- wire.toModel():
		default:
		}
	case "buy", "sell":
		var wire wireTrade
		if err := json.Unmarshal(raw, &wire); err != nil {
			if c.log != nil {
				c.log.Warn("wsclient: malformed trade event", "error", err)
			}
			return
		}
		select {
		case c.trades <- wire.toModel():
		default:
		}
	}
}

// Send marshals and writes a control command to the open connection.
func (c *Client) Send(cmd model.ControlCommand) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
