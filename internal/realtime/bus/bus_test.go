package bus

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

func TestLocalBusForwardsToEverySubscriber(t *testing.T) {
	b := NewLocalBus()
	var got []realtime.SSEEvent
	for i := 0; i < 2; i++ {
		if err := b.StartForwarder(context.Background(), func(m realtime.SSEMessage) { got = append(got, m.Event) }); err != nil {
			t.Fatalf("forwarder: %v", err)
		}
	}
	msg := realtime.SSEMessage{Channel: realtime.VideoChannel(uuid.New()), Event: realtime.SSEEventRenderJobUpdated}
	if err := b.Publish(context.Background(), msg); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("delivered %d times", len(got))
	}
	if err := b.StartForwarder(context.Background(), nil); err == nil {
		t.Fatalf("nil callback must be rejected")
	}
}

func TestDecodeEnvelope(t *testing.T) {
	channel := realtime.VideoChannel(uuid.New())
	msg, err := decodeEnvelope([]byte(`{"origin":"a","message":{"channel":"` + channel + `","event":"RenderJobUpdated"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Channel != channel || msg.Event != realtime.SSEEventRenderJobUpdated {
		t.Fatalf("decoded wrong message: %+v", msg)
	}
	if _, err := decodeEnvelope([]byte(`{"message":{"event":"RenderJobUpdated"}}`)); err == nil {
		t.Fatalf("missing channel must be rejected")
	}
	if _, err := decodeEnvelope([]byte(`not json`)); err == nil {
		t.Fatalf("garbage must be rejected")
	}
}
