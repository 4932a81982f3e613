package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubResilienceReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := VideoChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventSourceSetUpdated, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventScriptScenePatched, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventSourceSetUpdated {
		t.Fatalf("first event: want=%s got=%s", SSEEventSourceSetUpdated, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventScriptScenePatched {
		t.Fatalf("second event: want=%s got=%s", SSEEventScriptScenePatched, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventVideoStatusChanged, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventVideoStatusChanged {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventVideoStatusChanged, gotReconnect.Event)
	}
}

func TestSSEHubDeliversRepeatedPatchEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := VideoChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventScriptScenePatched, Data: map[string]any{"scene_index": 2}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventScriptScenePatched || gotTwo.Event != SSEEventScriptScenePatched {
		t.Fatalf("expected repeated patch events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}

func TestSSEHubIgnoresOtherChannels(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, VideoChannel(uuid.New()))

	hub.Broadcast(SSEMessage{Channel: VideoChannel(uuid.New()), Event: SSEEventRenderJobUpdated})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHubCloseClientIsIdempotent(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := VideoChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)
	if got := hub.Subscribers(channel); got != 1 {
		t.Fatalf("subscribers: want=1 got=%d", got)
	}

	hub.CloseClient(client)
	hub.CloseClient(client)
	if got := hub.Subscribers(channel); got != 0 {
		t.Fatalf("subscribers after close: want=0 got=%d", got)
	}
	// broadcasting to an emptied channel must not touch the closed client
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventVideoStatusChanged})
}

func TestSSEHubServeHTTPWritesEvents(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := VideoChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRenderJobUpdated, Data: map[string]any{"status": "COMPLETED"}})
	close(client.done)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, client)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("ServeHTTP did not return after the client closed")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: got=%q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "retry: ") {
		t.Fatalf("expected reconnect hint first, got %q", rec.Body.String())
	}
}
