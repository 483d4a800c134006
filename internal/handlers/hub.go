// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/pokdeng/internal/game"
	"github.com/sirupsen/logrus"
)

const (
	sendBufferSize = 64
	writeTimeout   = 5 * time.Second
)

var (
	ErrServerFull      = errors.New("server is full, please try again later")
	ErrTooManyFromAddr = errors.New("too many connections from your address")
)

// client is one live WebSocket. Writes go through send so that every
// connection receives its frames in the order they were produced.
type client struct {
	id     string
	addr   string
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newClient(id, addr string, conn *websocket.Conn) *client {
	return &client{
		id:     id,
		addr:   addr,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.closed) })
}

// writePump drains send until the client is closed.
func (c *client) writePump(logger logrus.FieldLogger) {
	for {
		select {
		case <-c.closed:
			return
		case data := <-c.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.WithError(err).WithField("conn", c.id).Warn("Failed to write WebSocket message")
				c.close()
				return
			}
		}
	}
}

// Hub tracks live connections and fans envelopes out to them. Session
// membership is read from the registry at delivery time, so the hub keeps no
// roster of its own.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	perAddr  map[string]int
	maxConns int
	maxPerIP int

	registry *game.SessionRegistry
	log      logrus.FieldLogger
}

// NewHub builds a hub. Non-positive limits disable the corresponding cap.
func NewHub(registry *game.SessionRegistry, maxConns, maxPerIP int, logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:  make(map[string]*client),
		perAddr:  make(map[string]int),
		maxConns: maxConns,
		maxPerIP: maxPerIP,
		registry: registry,
		log:      logger,
	}
}

// admit registers c unless a connection cap would be exceeded.
func (h *Hub) admit(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		return ErrServerFull
	}
	if h.maxPerIP > 0 && h.perAddr[c.addr] >= h.maxPerIP {
		return ErrTooManyFromAddr
	}
	h.clients[c.id] = c
	h.perAddr[c.addr]++
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	if h.perAddr[c.addr]--; h.perAddr[c.addr] <= 0 {
		delete(h.perAddr, c.addr)
	}
	c.close()
}

// Count is the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver routes each envelope to its target connections. It must be called
// without any session lock held.
func (h *Hub) Deliver(envs []game.Envelope) {
	for _, env := range envs {
		data, err := json.Marshal(env.Event)
		if err != nil {
			h.log.WithError(err).WithField("type", env.Event.Type).Error("Failed to marshal event")
			continue
		}
		switch env.Target {
		case game.TargetPlayer:
			h.sendTo(env.PlayerID, data)
		case game.TargetSession:
			s, ok := h.registry.GetSession(env.SessionID)
			if !ok {
				continue
			}
			for _, id := range s.PlayerIDs() {
				if id != env.Exclude {
					h.sendTo(id, data)
				}
			}
		}
	}
}

// SendTo marshals v and queues it for one connection.
func (h *Hub) SendTo(connID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal message")
		return
	}
	h.sendTo(connID, data)
}

func (h *Hub) sendTo(connID string, data []byte) {
	h.mu.RLock()
	c, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case c.send <- data:
	case <-c.closed:
	default:
		h.log.WithField("conn", connID).Warn("Send buffer full, dropping message")
	}
}
