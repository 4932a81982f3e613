package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

type SSEEvent string

const (
	SSEEventVideoStatusChanged SSEEvent = "VideoStatusChanged"
	SSEEventSourceSetUpdated   SSEEvent = "SourceSetUpdated"
	SSEEventScriptScenePatched SSEEvent = "ScriptScenePatched"
	SSEEventRenderJobUpdated   SSEEvent = "RenderJobUpdated"
	SSEEventDispatchDeadLetter SSEEvent = "DispatchDeadLettered"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// VideoChannel is the channel every pipeline event about a video is published on.
func VideoChannel(videoID uuid.UUID) string { return "video:" + videoID.String() }

const (
	clientBuffer      = 16
	heartbeatInterval = 15 * time.Second
	reconnectHintMS   = 3000
)

// SSEHub fans messages out to the streams subscribed to a channel on this replica.
// Cross-replica delivery is the event bus's job.
type SSEHub struct {
	log  *logger.Logger
	seq  atomic.Uint64
	mu   sync.RWMutex
	subs map[string]map[*SSEClient]struct{}
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:  log.With("component", "SSEHub"),
		subs: map[string]map[*SSEClient]struct{}{},
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	id := uuid.New()
	return &SSEClient{
		ID:       id,
		UserID:   userID,
		Channels: map[string]bool{},
		Outbound: make(chan SSEMessage, clientBuffer),
		Logger:   hub.log.With("client_id", id.String()),
		done:     make(chan struct{}),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	set := hub.subs[channel]
	if set == nil {
		set = map[*SSEClient]struct{}{}
		hub.subs[channel] = set
	}
	set[client] = struct{}{}
	client.Channels[channel] = true
}

func (hub *SSEHub) RemoveClient(client *SSEClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for ch := range client.Channels {
		if set := hub.subs[ch]; set != nil {
			delete(set, client)
			if len(set) == 0 {
				delete(hub.subs, ch)
			}
		}
	}
	client.Channels = map[string]bool{}
}

// Subscribers reports how many streams on this replica listen to channel.
func (hub *SSEHub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs[channel])
}

// Broadcast never blocks; a client whose buffer is full misses the message.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.subs[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("dropping SSE message; client buffer full", "client_id", c.ID, "event", msg.Event)
		}
	}
}

// ServeHTTP streams client messages until the request ends or the client is closed.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	fmt.Fprintf(w, "retry: %d\n\n", reconnectHintMS)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case msg, open := <-client.Outbound:
			if !open {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				client.Logger.Warn("SSE message not encodable", "event", msg.Event, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", hub.seq.Add(1), msg.Event, payload)
		}
		flusher.Flush()
	}
}

// CloseClient unsubscribes client and ends its stream. Safe to call twice.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	client.closeOnce.Do(func() {
		hub.RemoveClient(client)
		close(client.done)
		close(client.Outbound)
	})
}
