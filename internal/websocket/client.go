package websocket

import (
	"context"
	"fmt"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one browser connection. The connection only carries change
// notifications; incoming data frames close it.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
}

func NewClient(hub *Hub, conn *ws.Conn, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

// Run serves the connection until the peer leaves, a write fails or ctx is
// done, and reports which of those ended it.
func (c *Client) Run(ctx context.Context) error {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	// CloseRead answers control frames and cancels ctx once the peer goes
	// away.
	ctx = c.conn.CloseRead(ctx)
	err := c.writeLoop(ctx)
	c.conn.Close(ws.StatusNormalClosure, "")
	return err
}

func (c *Client) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(wctx, ws.MessageText, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
