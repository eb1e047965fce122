package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/quotecall/quotecall/pkg/models"
)

// EventHandler consumes one Overseer event. Returning an error leaves
// the event unacknowledged in spirit only: delivery is at-least-once
// and handlers must tolerate redelivery.
type EventHandler interface {
	HandleEvent(ctx context.Context, event models.OverseerEvent) error
}

// Worker queue-subscribes to every request's event subject and feeds a
// handler, normally the Commander.
type Worker struct {
	conn    *nats.Conn
	handler EventHandler
}

// NewWorker builds a worker over an established connection.
func NewWorker(conn *nats.Conn, handler EventHandler) *Worker {
	return &Worker{conn: conn, handler: handler}
}

// Run consumes events until ctx is cancelled, then drains the
// subscription so in-flight events finish.
func (w *Worker) Run(ctx context.Context) error {
	sub, err := w.conn.QueueSubscribeSync(subjectPrefix+".>", queueGroup)
	if err != nil {
		return fmt.Errorf("subscribing to %s.>: %w", subjectPrefix, err)
	}
	log.Printf("[worker] consuming %s.> in group %s", subjectPrefix, queueGroup)

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("receiving event: %w", err)
		}
		w.dispatch(msg)
	}

	if err := sub.Drain(); err != nil {
		log.Printf("[worker] WARNING: draining subscription: %v", err)
	}
	log.Printf("[worker] shut down")
	return nil
}

func (w *Worker) dispatch(msg *nats.Msg) {
	var event models.OverseerEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Printf("[worker] WARNING: dropping undecodable event on %s: %v", msg.Subject, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.handler.HandleEvent(ctx, event); err != nil {
		log.Printf("[worker] WARNING: handling %s for call %s turn %d: %v",
			event.EventType, event.CallID, event.TurnNumber, err)
	}
}
