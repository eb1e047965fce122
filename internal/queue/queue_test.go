package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/quotecall/quotecall/pkg/models"
)

func TestEventSubject(t *testing.T) {
	got := EventSubject("req-42")
	want := "quotecall.events.req-42"
	if got != want {
		t.Errorf("EventSubject() = %q, want %q", got, want)
	}
}

type captureHandler struct {
	events []models.OverseerEvent
	err    error
}

func (h *captureHandler) HandleEvent(ctx context.Context, event models.OverseerEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestWorker_DispatchDecodesEvent(t *testing.T) {
	handler := &captureHandler{}
	w := NewWorker(nil, handler)

	event := models.OverseerEvent{
		CallID:         "call-1",
		QuoteRequestID: "req-1",
		SupplierName:   "Acme",
		EventType:      models.EventQuoteReceived,
		Timestamp:      time.Now().UTC(),
		TurnNumber:     3,
		Data:           map[string]any{"part_number": "AHC-18598", "price": 42.5},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	w.dispatch(&nats.Msg{Subject: EventSubject("req-1"), Data: payload})

	if len(handler.events) != 1 {
		t.Fatalf("handled %d events, want 1", len(handler.events))
	}
	got := handler.events[0]
	if got.CallID != "call-1" || got.EventType != models.EventQuoteReceived || got.TurnNumber != 3 {
		t.Errorf("event = %+v", got)
	}
}

func TestWorker_DispatchDropsGarbage(t *testing.T) {
	handler := &captureHandler{}
	w := NewWorker(nil, handler)

	w.dispatch(&nats.Msg{Subject: "quotecall.events.req-1", Data: []byte("not json")})

	if len(handler.events) != 0 {
		t.Errorf("handled %d events, want 0 for undecodable payload", len(handler.events))
	}
}

func TestWorker_DispatchSurvivesHandlerError(t *testing.T) {
	handler := &captureHandler{err: errors.New("store down")}
	w := NewWorker(nil, handler)

	payload, _ := json.Marshal(models.OverseerEvent{CallID: "call-1", EventType: models.EventCallEnded})
	w.dispatch(&nats.Msg{Subject: "quotecall.events.req-1", Data: payload})

	if len(handler.events) != 1 {
		t.Errorf("handler not invoked on error path")
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (NopPublisher{}).Publish(context.Background(), models.OverseerEvent{CallID: "call-1"}); err != nil {
		t.Errorf("NopPublisher.Publish() error = %v, want nil", err)
	}
}
