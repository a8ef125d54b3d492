package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"blurcam/internal/logger"
	"blurcam/internal/model"
	"blurcam/internal/service/notify"
)

const (
	writeTimeout = 2 * time.Second
	backlog      = 64
)

// Event types pushed to control clients.
const (
	EventStatus   = "status"
	EventSettings = "settings"
	EventError    = "error"
)

// Event is one message pushed to control clients.
type Event struct {
	Type     string      `json:"type"`
	Text     string      `json:"text,omitempty"`
	Settings interface{} `json:"settings,omitempty"`
}

// HubService fans status and settings events out to connected control
// clients. It never carries video.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  *notify.Mailbox[[]byte]
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.RWMutex
	writeMu    sync.Mutex
	logger     *logger.Logger
}

// NewHubService returns a hub; call Run to start delivering.
func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  notify.NewMailbox[[]byte](backlog),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Run delivers queued events until ctx is done, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Control client connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Control client disconnected. Total: %d", count)

		case message := <-h.broadcast.C():
			for client := range h.GetClients() {
				if err := h.Send(client, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					h.mutex.Lock()
					delete(h.clients, client)
					h.mutex.Unlock()
					client.Close()
				}
			}
		}
	}
}

// Register adds a client. It blocks until Run accepts it or ctx is done.
func (h *HubService) Register(ctx context.Context, client *websocket.Conn) error {
	select {
	case h.register <- client:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister removes and closes a client.
func (h *HubService) Unregister(ctx context.Context, client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-ctx.Done():
		client.Close()
	}
}

// Send writes one message to a single client.
func (h *HubService) Send(client *websocket.Conn, message []byte) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := client.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrap(err, "set write deadline")
	}
	return client.WriteMessage(websocket.TextMessage, message)
}

// SendEvent encodes and writes ev to a single client.
func (h *HubService) SendEvent(client *websocket.Conn, ev Event) error {
	message, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	return h.Send(client, message)
}

// Publish queues ev for every client. Old events are dropped if clients
// cannot keep up.
func (h *HubService) Publish(ev Event) {
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode %s event: %v", ev.Type, err)
		return
	}
	if h.broadcast.Put(message) {
		h.logger.Debug("Event backlog full, dropped oldest")
	}
}

// OnStatus implements model.EventSink.
func (h *HubService) OnStatus(text string) {
	h.Publish(Event{Type: EventStatus, Text: text})
}

// OnPreviewFrame implements model.EventSink. Preview video is not sent to
// control clients.
func (h *HubService) OnPreviewFrame(model.PreviewFrame) {}

// GetClients returns a snapshot of connected clients.
func (h *HubService) GetClients() map[*websocket.Conn]bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make(map[*websocket.Conn]bool, len(h.clients))
	for k, v := range h.clients {
		clients[k] = v
	}
	return clients
}

// GetClientCount returns the number of connected clients.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

var _ model.EventSink = (*HubService)(nil)
