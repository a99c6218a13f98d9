package events

import (
	"context"
	"fmt"
	"time"
)

// Publisher delivers admin change notifications.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// RecordChanged is the payload published after a successful mutation.
type RecordChanged struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subject builds the notification subject for a record kind and action,
// e.g. Subject("event", "created") -> "admin.event.created".
func Subject(kind, action string) string {
	return fmt.Sprintf("admin.%s.%s", kind, action)
}
