// Package events publishes admin change notifications to NATS
// JetStream. Publishing is best-effort: callers log failures and never
// fail the originating request over a lost notification.
package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is a JetStream-backed Publisher.
type NATS struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Connect connects to NATS and ensures the ADMIN stream exists.
func Connect(url string) (*NATS, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := &nats.StreamConfig{
		Name:      "ADMIN",
		Subjects:  []string{"admin.>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
	}

	if _, err := js.AddStream(cfg, nats.Context(ctx)); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create or update stream: %w", err)
	}

	log.Println("NATS JetStream initialized successfully")
	return &NATS{conn: nc, js: js}, nil
}

// Publish publishes a message to the specified subject.
func (n *NATS) Publish(ctx context.Context, subject string, data []byte) error {
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := n.js.Publish(subject, data, nats.Context(publishCtx)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Close drains the underlying connection.
func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}
