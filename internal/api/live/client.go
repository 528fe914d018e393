// internal/api/live/client.go
package live

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/polydash/internal/cache"
	"github.com/newthinker/polydash/internal/dashboard"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one browser connection with its own page view
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	page string
	view dashboard.View

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	send   chan Message
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, view dashboard.View) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    h,
		conn:   conn,
		page:   view.Name(),
		view:   view,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan Message, sendBuffer),
	}
}

// startView pushes the page model after every commit of the client's view.
func (c *Client) startView() {
	ctrl := c.view.Controller()
	ctrl.OnCommit(func(resource string, err error) {
		msg := Message{Type: TypeUpdate, Page: c.page, Resource: resource, At: time.Now().UTC(), Model: c.view.Model()}
		if err != nil {
			msg.Error = err.Error()
		}
		c.enqueue(msg)
	})
	if err := ctrl.Start(c.ctx); err != nil {
		c.hub.logger.Warn("starting live view", zap.String("page", c.page), zap.Error(err))
		return
	}
	c.hub.rec.ViewStarted(c.page)
}

// enqueue reports false when the client is gone or its buffer is full.
func (c *Client) enqueue(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the view and ends the write pump. Only the hub calls it.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.cancel()
	if c.view.Controller().Running() {
		c.hub.rec.ViewStopped(c.page)
	}
	c.view.Controller().Stop()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Info("websocket closed", zap.String("page", c.page), zap.Error(err))
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.enqueue(Message{Type: TypeError, Page: c.page, At: time.Now().UTC(), Error: "malformed command"})
		return
	}

	switch cmd.Command {
	case "refresh":
		// An explicit refresh bypasses the shared read cache
		if p, ok := c.hub.deps.Source.(cache.Purger); ok {
			p.Purge()
		}
		go c.view.Controller().RefreshNow(c.ctx)
	case "query":
		q, ok := c.view.(dashboard.Querier)
		if !ok {
			return
		}
		values := url.Values{}
		for k, v := range cmd.Params {
			values.Set(k, v)
		}
		// The refetch commits through the view hook
		go func() {
			if err := q.SetQuery(c.ctx, values); err != nil && c.ctx.Err() == nil {
				c.hub.logger.Warn("live query failed", zap.String("page", c.page), zap.Error(err))
			}
			c.enqueue(Message{Type: TypeUpdate, Page: c.page, At: time.Now().UTC(), Model: c.view.Model()})
		}()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.hub.logger.Debug("websocket write failed", zap.Error(err))
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
