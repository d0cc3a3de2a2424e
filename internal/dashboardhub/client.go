package dashboardhub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 4096
)

// Client is a single connected dashboard WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *slog.Logger

	subMu sync.RWMutex
	mints map[string]bool // empty set == subscribed to everything
}

// HandleWS upgrades conn into a registered dashboard client and starts its
// read/write pumps. Call from an http.Handler after websocket.Upgrader.Upgrade.
func (h *Hub) HandleWS(conn *websocket.Conn) {
	c := &Client{
		conn:  conn,
		send:  make(chan []byte, 256),
		hub:   h,
		log:   h.log,
		mints: make(map[string]bool),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

func (c *Client) matches(mint string) bool {
	if mint == "" {
		return true // non-mint-scoped events (e.g. PartialExit) always deliver
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.mints) == 0 {
		return true
	}
	return c.mints[mint]
}

// writePump drains c.send, coalescing queued messages into a single
// WebSocket frame separated by newlines (teacher's write-coalescing
// pattern), and pings on idle.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subscribeMsg is the client->server message that narrows a dashboard
// client's subscription to a set of mints, or issues a runtime command
// (spec §6 CLI surface: "stop", "resume", "quit").
type subscribeMsg struct {
	Type    string   `json:"type"` // "subscribe" | "unsubscribe" | "control"
	Mints   []string `json:"mints"`
	Command string   `json:"command"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		if c.log != nil {
			c.log.Info("dashboardhub: client disconnected")
		}
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg subscribeMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "subscribe":
			c.subMu.Lock()
			for _, m := range msg.Mints {
				c.mints[m] = true
			}
			c.subMu.Unlock()
		case "unsubscribe":
			c.subMu.Lock()
			for _, m := range msg.Mints {
				delete(c.mints, m)
			}
			c.subMu.Unlock()
		case "control":
			c.hub.control(msg.Command)
		}
	}
}
