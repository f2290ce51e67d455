// Package feed streams intraday trades over WebSocket and keeps the latest
// quote per instrument fresh in the snapshot store, so data collection can
// fold them into daily bars.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"StockPulse/internal/domain/models"
	applogger "StockPulse/pkg/logger"
)

// QuoteSink receives each streamed quote. The snapshot store implements it.
type QuoteSink interface {
	SaveQuote(ctx context.Context, q *models.Quote) error
}

// Client is a WebSocket quote stream for the configured symbols.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	sink           QuoteSink
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, sink QuoteSink, l *applogger.Logger) *Client {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		sink:           sink,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.l.Info("feed connected", applogger.Int("symbols", len(c.symbols)))
	return nil
}

// Subscribe subscribes to the configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	for _, s := range c.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Run connects, subscribes and pumps quotes into the sink until the context
// is canceled, reconnecting after read failures.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.Connect(ctx); err != nil {
			c.l.Error("feed connect failed", applogger.Error(err))
		} else if err := c.Subscribe(ctx); err != nil {
			c.l.Error("feed subscribe failed", applogger.Error(err))
			_ = c.Close()
		} else if err := c.pump(ctx); err != nil {
			c.l.Error("feed stream broke", applogger.Error(err))
			_ = c.Close()
		}

		select {
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) pump(ctx context.Context) error {
	pingCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, b, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed read: %w", err)
		}
		var m wsMessage
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore non-trade frames
			continue
		}
		if m.Type != "trade" {
			continue
		}
		for _, d := range m.Data {
			quote := &models.Quote{
				Instrument: d.S,
				Price:      d.P,
				Volume:     d.V,
				At:         time.UnixMilli(d.T),
			}
			if err := c.sink.SaveQuote(ctx, quote); err != nil {
				c.l.Warn("quote save failed",
					applogger.String("instrument", d.S),
					applogger.Error(err),
				)
			}
		}
	}
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates the stream status.
func (c *Client) IsConnected() bool { return c.connected }
