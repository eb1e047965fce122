// Package queue moves Overseer events from call processes to the
// Commander worker over NATS. Delivery is at-least-once; consumers
// dedupe on the call+turn key carried in every event.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"

	"github.com/quotecall/quotecall/pkg/models"
)

const (
	// subjectPrefix namespaces all event subjects.
	subjectPrefix = "quotecall.events"
	// queueGroup load-balances worker consumption.
	queueGroup = "quotecall-commander"

	connectMaxElapsed = 15 * time.Second
	publishMaxElapsed = 5 * time.Second
)

// EventSubject returns the per-request subject events are published on.
func EventSubject(quoteRequestID string) string {
	return fmt.Sprintf("%s.%s", subjectPrefix, quoteRequestID)
}

func newConnectBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectMaxElapsed
	return bo
}

func newPublishBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = publishMaxElapsed
	return bo
}

// Connect dials NATS with exponential backoff and sane reconnect
// settings for a long-lived process.
func Connect(ctx context.Context, url string) (*nats.Conn, error) {
	var nc *nats.Conn
	err := backoff.Retry(func() error {
		var err error
		nc, err = nats.Connect(url,
			nats.Name("quotecall"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		return err
	}, backoff.WithContext(newConnectBackoff(), ctx))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher sends Overseer events toward the Commander worker.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher wraps an established connection.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Publish enqueues one event on the request's subject. Transient
// failures are retried briefly; a final failure is the caller's to
// log, never to escalate.
func (p *Publisher) Publish(ctx context.Context, event models.OverseerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event %s for call %s: %w", event.EventType, event.CallID, err)
	}
	subject := EventSubject(event.QuoteRequestID)

	err = backoff.Retry(func() error {
		return p.conn.Publish(subject, payload)
	}, backoff.WithContext(newPublishBackoff(), ctx))
	if err != nil {
		return fmt.Errorf("publishing %s for call %s: %w", event.EventType, event.CallID, err)
	}
	return nil
}

// NopPublisher drops events, for single-process runs without a
// Commander worker.
type NopPublisher struct{}

// Publish logs and discards the event.
func (NopPublisher) Publish(ctx context.Context, event models.OverseerEvent) error {
	log.Printf("[queue] no broker configured, dropping %s for call %s", event.EventType, event.CallID)
	return nil
}
