package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"readinglab-backend/internal/database"
	"readinglab-backend/internal/models"
)

const (
	activityChannel = "activity_events"
	outboxSize      = 256
	writeWait       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenParser turns the ?token= query value into the connecting user.
type TokenParser func(token string) (models.User, error)

type client struct {
	conn   *websocket.Conn
	userID string
	role   models.Role
}

// wants reports whether c may see ev. Admins see everything.
func (c *client) wants(ev models.Event) bool {
	return c.role == models.RoleAdmin || c.userID == ev.UserID
}

// Hub streams appended activity events to connected dashboards. With Redis
// the events travel through a pub/sub channel so every instance sees every
// event; without it they are delivered in-process.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	relay      *database.RedisClients
	parseToken TokenParser
	outbox     chan models.Event
	dropped    int
}

// NewHub builds a hub. relay may be nil.
func NewHub(relay *database.RedisClients, parseToken TokenParser) *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		relay:      relay,
		parseToken: parseToken,
		outbox:     make(chan models.Event, outboxSize),
	}
}

// Observe is registered on the event log. It only queues the newest event;
// delivery happens on the Run goroutine.
func (h *Hub) Observe(snapshot []models.Event) {
	if len(snapshot) == 0 {
		return
	}
	select {
	case h.outbox <- snapshot[0]:
	default:
		h.mu.Lock()
		h.dropped++
		n := h.dropped
		h.mu.Unlock()
		log.Printf("websocket: outbox full, dropped event %s (total dropped: %d)", snapshot[0].ID, n)
	}
}

// Run pumps queued events until ctx is cancelled, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	if h.relay != nil {
		go h.subscribeToPubSub(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.outbox:
			if h.relay != nil {
				h.publish(ctx, ev)
			} else {
				h.deliver(ev)
			}
		}
	}
}

func (h *Hub) publish(ctx context.Context, ev models.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := h.relay.Publisher.Publish(ctx, activityChannel, data).Err(); err != nil {
		log.Printf("websocket: publish event %s: %v", ev.ID, err)
	}
}

func (h *Hub) subscribeToPubSub(ctx context.Context) {
	pubsub := h.relay.PubSub.Subscribe(ctx, activityChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("websocket: bad relayed event: %v", err)
				continue
			}
			h.deliver(ev)
		}
	}
}

func (h *Hub) deliver(ev models.Event) {
	data, err := json.Marshal(models.WSMessage{Type: "activity", Payload: ev})
	if err != nil {
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(ev) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.unregister(c)
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.parseToken(tokenStr)
	if err != nil || user.ID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, userID: user.ID, role: user.Role}
	h.register(c)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregister(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	log.Printf("WebSocket connected: user %s (%s), total: %d", c.userID, c.role, total)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		log.Printf("WebSocket disconnected: user %s", c.userID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.conn.Close()
	}
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
