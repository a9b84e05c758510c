package api

import (
	"bufio"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"threadview/models"
	"threadview/utils"
)

// Event is a real-time thread event pushed to connected clients.
type Event struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"` // "message_sent", "thread_updated"
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Time    time.Time              `json:"time"`
}

// EventHandler fans thread events out to SSE and WebSocket
// subscribers.
type EventHandler struct {
	subscribers map[string]chan Event
	mu          sync.RWMutex
}

// NewEventHandler creates an event handler.
func NewEventHandler() *EventHandler {
	return &EventHandler{
		subscribers: make(map[string]chan Event),
	}
}

// HandleSSE streams events over Server-Sent Events.
func (h *EventHandler) HandleSSE(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	subscriberID := uuid.New().String()
	events := make(chan Event, 10)

	h.mu.Lock()
	h.subscribers[subscriberID] = events
	h.mu.Unlock()

	utils.Log.Info("SSE subscriber connected: %s", subscriberID)

	ctx := c.Context()
	ctx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			h.mu.Lock()
			delete(h.subscribers, subscriberID)
			close(events)
			h.mu.Unlock()
			utils.Log.Info("SSE subscriber disconnected: %s", subscriberID)
		}()

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case event := <-events:
				data, _ := json.Marshal(event)
				w.WriteString("data: " + string(data) + "\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ticker.C:
				w.WriteString(": keepalive\n\n")
				if err := w.Flush(); err != nil {
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}))

	return nil
}

// HandleWebSocket streams events over a WebSocket connection.
func (h *EventHandler) HandleWebSocket(c *websocket.Conn) {
	subscriberID := uuid.New().String()
	events := make(chan Event, 10)

	h.mu.Lock()
	h.subscribers[subscriberID] = events
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, subscriberID)
		close(events)
		h.mu.Unlock()

		c.Close()
		utils.Log.Info("WebSocket subscriber disconnected: %s", subscriberID)
	}()

	utils.Log.Info("WebSocket subscriber connected: %s", subscriberID)

	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			utils.Log.Error("Failed to send WebSocket event: %v", err)
			break
		}
	}
}

// Broadcast sends an event to all subscribers. Slow subscribers are
// skipped rather than blocking the sender.
func (h *EventHandler) Broadcast(event Event) {
	event.ID = uuid.New().String()
	event.Time = time.Now()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			utils.Log.Warn("Event channel full for subscriber %s", subscriberID)
		}
	}
}

// NotifyMessageSent announces the optimistic thread entry created by a
// successful send.
func (h *EventHandler) NotifyMessageSent(msg models.Message) {
	h.Broadcast(Event{
		Type:    "message_sent",
		Message: "Message sent",
		Data: map[string]interface{}{
			"message_id": msg.ID,
			"thread_id":  msg.ThreadID,
			"to":         msg.To,
		},
	})
}

// NotifyThreadUpdated announces that a thread was reloaded from the
// authoritative source.
func (h *EventHandler) NotifyThreadUpdated(threadID string) {
	h.Broadcast(Event{
		Type:    "thread_updated",
		Message: "Thread updated",
		Data: map[string]interface{}{
			"thread_id": threadID,
		},
	})
}
