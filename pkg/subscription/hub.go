package subscription

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"solsettle/pkg/clmm"
	"solsettle/pkg/engine"
)

const (
	methodAccountSubscribe      = "accountSubscribe"
	methodAccountUnsubscribe    = "accountUnsubscribe"
	methodSettlementSubscribe   = "settlementSubscribe"
	methodSettlementUnsubscribe = "settlementUnsubscribe"
)

// firehose marks a subscription over every pool.
const firehose = "*"

// Hub tracks websocket clients and routes committed engine events to the
// subscriptions that match. It implements engine.Publisher.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP lets the hub be mounted directly on a route.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleWS(w, r)
}

// HandleWS upgrades an HTTP request and serves it until the peer leaves.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
		subs: make(map[uint64]string),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))
	go c.writePump()
	go c.readPump()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.shutdown()
}

// Publish routes one committed event. It never blocks: clients that cannot
// keep up are disconnected.
func (h *Hub) Publish(ev engine.Event) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.deliver(ev)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	subs    map[uint64]string // subscription ID -> pool address or firehose
	nextSub uint64
}

func (c *client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) readPump() {
	defer c.hub.drop(c)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleRequest(message)
	}
}

func (c *client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) handleRequest(data []byte) {
	var req RPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.respondError(0, -32700, "parse error")
		return
	}

	switch req.Method {
	case methodAccountSubscribe:
		var account string
		if len(req.Params) < 1 || json.Unmarshal(req.Params[0], &account) != nil || account == "" {
			c.respondError(req.ID, -32602, "account address required")
			return
		}
		c.respond(req.ID, c.subscribe(account))

	case methodSettlementSubscribe:
		c.respond(req.ID, c.subscribe(firehose))

	case methodAccountUnsubscribe, methodSettlementUnsubscribe:
		var subID uint64
		if len(req.Params) < 1 || json.Unmarshal(req.Params[0], &subID) != nil {
			c.respondError(req.ID, -32602, "subscription id required")
			return
		}
		c.respond(req.ID, c.unsubscribe(subID))

	default:
		c.respondError(req.ID, -32601, "method not found")
	}
}

func (c *client) subscribe(target string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	c.subs[c.nextSub] = target
	return c.nextSub
}

func (c *client) unsubscribe(subID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[subID]
	delete(c.subs, subID)
	return ok
}

func (c *client) respond(id uint64, result interface{}) {
	c.enqueue(RPCResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (c *client) respondError(id uint64, code int, msg string) {
	c.enqueue(RPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}})
}

// deliver fans one event into this client's matching subscriptions.
func (c *client) deliver(ev engine.Event) {
	c.mu.Lock()
	type match struct {
		subID    uint64
		firehose bool
	}
	var matches []match
	for subID, target := range c.subs {
		switch target {
		case ev.Pool:
			matches = append(matches, match{subID, false})
		case firehose:
			matches = append(matches, match{subID, true})
		}
	}
	c.mu.Unlock()

	for _, m := range matches {
		if m.firehose {
			c.enqueue(NotificationMessage{
				JSONRPC: "2.0",
				Method:  "settlementNotification",
				Params:  NotificationParams{Result: ev, Subscription: m.subID},
			})
			continue
		}
		c.enqueue(NotificationMessage{
			JSONRPC: "2.0",
			Method:  "accountNotification",
			Params: NotificationParams{
				Subscription: m.subID,
				Result: AccountNotification{
					Context: NotificationContext{Sequence: ev.Sequence},
					Value: AccountValue{
						Data:  [2]string{ev.AccountData, "base58"},
						Owner: clmm.SETTLEMENT_PROGRAM_ID,
					},
				},
			},
		})
	}
}

func (c *client) enqueue(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		// Buffer full: the peer is too slow to keep a consistent stream.
		go c.hub.drop(c)
	}
}
