package sse

import (
	"path/filepath"
	"sync"

	"github.com/kbukum/jobflow/logger"
)

const clientBuffer = 64

// Client is one connected stream.
type Client struct {
	id     string
	events chan Event
	log    *logger.Logger
}

func NewClient(id string) *Client {
	return &Client{id: id, events: make(chan Event, clientBuffer), log: logger.Nop()}
}

func (c *Client) ID() string { return c.id }

// Events is closed when the hub drops the client.
func (c *Client) Events() <-chan Event { return c.events }

// Send queues ev; it returns false and drops ev when the client is too slow.
func (c *Client) Send(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		c.log.Warn("client buffer full, dropping event", logger.Fields("client_id", c.id, "event", ev.Type))
		return false
	}
}

type message struct {
	pattern string
	event   Event
}

// Hub owns the connected clients. Registration and broadcasts are
// serialized through Run.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case c := <-h.register:
			c.log = h.log
			h.mu.Lock()
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", c.id, "clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.events)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", c.id, "clients", n))

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop closes every client and ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds c. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues ev for every client whose id matches the glob pattern.
// It never blocks; when the queue is full the event is dropped.
func (h *Hub) Broadcast(pattern string, ev Event) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- message{pattern: pattern, event: ev}:
		return true
	default:
		h.log.Warn("broadcast queue full, dropping event", logger.Fields("pattern", pattern, "event", ev.Type))
		return false
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for id, c := range h.clients {
		matched, err := filepath.Match(msg.pattern, id)
		if err != nil {
			h.log.Error("bad broadcast pattern", logger.Fields("pattern", msg.pattern, logger.FieldError, err.Error()))
			return
		}
		if matched && c.Send(msg.event) {
			sent++
		}
	}
	h.log.Debug("broadcast delivered", logger.Fields("pattern", msg.pattern, "event", msg.event.Type, "clients", sent))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		close(c.events)
		delete(h.clients, id)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
