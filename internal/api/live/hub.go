// internal/api/live/hub.go

// Package live pushes page updates to browsers over websockets.
package live

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/polydash/internal/dashboard"
	"go.uber.org/zap"
)

// Message types
const (
	TypeUpdate = "update"
	TypeCommit = "commit"
	TypeError  = "error"
)

// Message is one frame sent to a browser
type Message struct {
	Type     string    `json:"type"`
	Page     string    `json:"page,omitempty"`
	Resource string    `json:"resource,omitempty"`
	At       time.Time `json:"at"`
	Error    string    `json:"error,omitempty"`
	Model    any       `json:"model,omitempty"`
}

// Command is a frame received from a browser, e.g.
// {"command":"query","params":{"direction":"UP","page":"1"}}
type Command struct {
	Command string            `json:"command"`
	Params  map[string]string `json:"params"`
}

// Recorder tracks connected clients and their running views
type Recorder interface {
	LiveClientsInc()
	LiveClientsDec()
	ViewStarted(view string)
	ViewStopped(view string)
}

type nopRecorder struct{}

func (nopRecorder) LiveClientsInc()    {}
func (nopRecorder) LiveClientsDec()    {}
func (nopRecorder) ViewStarted(string) {}
func (nopRecorder) ViewStopped(string) {}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub tracks connected clients. Every client runs its own page view; the
// hub fans shared events such as monitor commits out to all of them.
type Hub struct {
	deps   dashboard.Deps
	logger *zap.Logger
	rec    Recorder

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	clients    map[*Client]struct{}
	count      atomic.Int64
	done       chan struct{}
}

// NewHub creates a hub whose clients build their views from deps.
func NewHub(deps dashboard.Deps, logger *zap.Logger, rec Recorder) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Hub{
		deps:       deps,
		logger:     logger.Named("live"),
		rec:        rec,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		clients:    make(map[*Client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.rec.LiveClientsInc()

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.enqueue(msg) {
					// Slow consumer: disconnect rather than block the hub
					h.logger.Warn("dropping slow live client", zap.String("page", c.page))
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	h.count.Add(-1)
	h.rec.LiveClientsDec()
	c.close()
}

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("live broadcast queue full, dropping message", zap.String("resource", msg.Resource))
	}
}

// Commit is a poller.CommitFunc announcing a monitor commit to every client.
func (h *Hub) Commit(resource string, err error) {
	msg := Message{Type: TypeCommit, Resource: resource}
	if err != nil {
		msg.Error = err.Error()
	}
	h.Broadcast(msg)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and starts a view for ?page= with the
// remaining query parameters.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := q.Get("page")
	if page == "" {
		page = dashboard.PageOverview
	}
	view, err := dashboard.New(page, h.deps, q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn, view)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
	c.startView()
}
