package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Client struct {
	id    string
	group string
	ch    chan string
	done  chan struct{}
}

// Hub fans events out to clients subscribed to a group. Slow clients
// lose events rather than block publishers.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	groups   map[string]map[string]bool // group -> clientID set
	interval time.Duration
	retryMs  int
	logger   *zap.Logger
}

func NewHub(interval time.Duration, logger *zap.Logger) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[string]*Client),
		groups:   make(map[string]map[string]bool),
		interval: interval,
		retryMs:  5000,
		logger:   logger,
	}
}

func (h *Hub) addClient(id, group string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &Client{id: id, group: group, ch: make(chan string, 64), done: make(chan struct{})}
	h.clients[id] = c
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]bool)
	}
	h.groups[group][id] = true
	return c
}

func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.done)
	delete(h.groups[c.group], id)
	if len(h.groups[c.group]) == 0 {
		delete(h.groups, c.group)
	}
	delete(h.clients, id)
}

// CloseGroup disconnects every client of group.
func (h *Hub) CloseGroup(group string) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.RemoveClient(id)
	}
}

// Clients returns how many clients listen on group.
func (h *Hub) Clients(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Publish sends v as a JSON event to every client in group.
func (h *Hub) Publish(group, event string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("sse marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	msg := formatEvent(event, string(b))
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[group] {
		if c := h.clients[id]; c != nil {
			select {
			case c.ch <- msg:
			default:
				h.logger.Debug("sse client lagging, event dropped", zap.String("client", id))
			}
		}
	}
}

func formatEvent(event, data string) string {
	if event == "" {
		return fmt.Sprintf("data: %s\n\n", data)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// Serve streams group's events to the request until the client leaves
// or the group is closed.
func (h *Hub) Serve(c *gin.Context, clientID, group string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	client := h.addClient(clientID, group)
	defer h.RemoveClient(clientID)

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			_, _ = c.Writer.Write([]byte(msg))
			flusher.Flush()
		}
	}
}
