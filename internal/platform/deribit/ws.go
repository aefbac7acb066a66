package deribit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

// WSConfig holds connection parameters for one websocket session.
type WSConfig struct {
	URL              string
	ClientID         string
	ClientSecret     string
	HeartbeatSec     int
	HeartbeatTimeout time.Duration
	HandshakeTimeout time.Duration
}

// WSClient is a single-connection JSON-RPC 2.0 websocket client. It is not
// safe for concurrent calls; the owning feed drives it from one goroutine
// and creates a fresh client per connection attempt.
type WSClient struct {
	cfg    WSConfig
	conn   *websocket.Conn
	nextID atomic.Int64
	logger *slog.Logger
}

func NewWSClient(cfg WSConfig, logger *slog.Logger) *WSClient {
	return &WSClient{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "deribit_ws")),
	}
}

func (c *WSClient) handshakeTimeout() time.Duration {
	if c.cfg.HandshakeTimeout > 0 {
		return c.cfg.HandshakeTimeout
	}
	return defaultHandshakeTimeout
}

// Connect dials the websocket endpoint.
func (c *WSClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout()}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("deribit: dial %s: %w", c.cfg.URL, err)
	}
	c.conn = conn
	c.logger.Info("websocket connected", slog.String("url", c.cfg.URL))
	return nil
}

// Authenticate performs public/auth with client credentials. A client
// without credentials skips authentication; public channels do not need it.
func (c *WSClient) Authenticate(ctx context.Context) error {
	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return nil
	}
	params := map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	}
	if _, err := c.call(ctx, "public/auth", params); err != nil {
		return fmt.Errorf("deribit: auth: %w", err)
	}
	c.logger.Info("authenticated")
	return nil
}

// Subscribe subscribes to the given channels and waits for the ack.
func (c *WSClient) Subscribe(ctx context.Context, channels []string) error {
	result, err := c.call(ctx, "public/subscribe", map[string]any{"channels": channels})
	if err != nil {
		return fmt.Errorf("deribit: subscribe: %w", err)
	}
	var acked []string
	if err := json.Unmarshal(result, &acked); err != nil {
		return fmt.Errorf("deribit: subscribe ack: %w", err)
	}
	if len(acked) != len(channels) {
		return fmt.Errorf("deribit: subscribe: acked %d of %d channels", len(acked), len(channels))
	}
	c.logger.Info("subscribed", slog.Any("channels", acked))
	return nil
}

// EnableHeartbeat asks the venue to send heartbeat messages. The read loop
// answers test_request heartbeats with public/test.
func (c *WSClient) EnableHeartbeat(ctx context.Context) error {
	if c.cfg.HeartbeatSec <= 0 {
		return nil
	}
	params := map[string]any{"interval": c.cfg.HeartbeatSec}
	if _, err := c.call(ctx, "public/set_heartbeat", params); err != nil {
		return fmt.Errorf("deribit: set_heartbeat: %w", err)
	}
	return nil
}

// call sends one request and reads until its response arrives. Notifications
// received while waiting are discarded; call is only used during session
// setup, before Listen starts consuming the stream.
func (c *WSClient) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}

	deadline := time.Now().Add(c.handshakeTimeout())
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	for {
		_ = c.conn.SetReadDeadline(deadline)
		var msg rpcMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("read %s response: %w", method, err)
		}
		if msg.ID == nil || *msg.ID != id {
			continue
		}
		if msg.Error != nil {
			return nil, fmt.Errorf("%s: venue error %d: %s", method, msg.Error.Code, msg.Error.Message)
		}
		return msg.Result, nil
	}
}

// Listen reads the stream until the context is cancelled or the connection
// fails. Trade batches are handed to onTrades in arrival order. When the
// connection is silent past the heartbeat timeout, one public/test probe is
// sent; a second silent interval is treated as a dead connection.
func (c *WSClient) Listen(ctx context.Context, onTrades func(trades []TradeMessage)) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()

	probed := false
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.HeartbeatTimeout))
		var msg rpcMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() && !probed {
				c.logger.Warn("no messages within heartbeat timeout, probing connection")
				if perr := c.writeRequest("public/test", nil); perr != nil {
					return fmt.Errorf("deribit: probe: %w", perr)
				}
				probed = true
				continue
			}
			return fmt.Errorf("deribit: read: %w", err)
		}
		probed = false

		switch msg.Method {
		case "heartbeat":
			var hb heartbeatParams
			if err := json.Unmarshal(msg.Params, &hb); err != nil {
				c.logger.Warn("malformed heartbeat", slog.Any("error", err))
				continue
			}
			if hb.Type == "test_request" {
				if err := c.writeRequest("public/test", nil); err != nil {
					return fmt.Errorf("deribit: heartbeat reply: %w", err)
				}
			}
		case "subscription":
			var sub subscriptionParams
			if err := json.Unmarshal(msg.Params, &sub); err != nil {
				c.logger.Warn("malformed subscription payload", slog.Any("error", err))
				continue
			}
			var trades []TradeMessage
			if err := json.Unmarshal(sub.Data, &trades); err != nil {
				c.logger.Warn("malformed trade batch",
					slog.String("channel", sub.Channel),
					slog.Any("error", err))
				continue
			}
			onTrades(trades)
		default:
			// response to public/test probe or other late ack, ignore
		}
	}
}

func (c *WSClient) writeRequest(method string, params any) error {
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.handshakeTimeout()))
	return c.conn.WriteJSON(req)
}

// Close closes the underlying connection.
func (c *WSClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
