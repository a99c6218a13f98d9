package events

import (
	"context"
	"log"
	"sync"
)

// Noop is a Publisher that only logs. It serves tests and local runs
// without a broker.
type Noop struct {
	mutex    sync.Mutex
	Subjects []string
}

// NewNoop creates a new no-op publisher.
func NewNoop() *Noop {
	return &Noop{}
}

// Publish records the subject and drops the message.
func (n *Noop) Publish(ctx context.Context, subject string, data []byte) error {
	n.mutex.Lock()
	n.Subjects = append(n.Subjects, subject)
	n.mutex.Unlock()

	log.Printf("notification dropped (no broker) %s: %s", subject, string(data))
	return nil
}

// Published returns the subjects published so far.
func (n *Noop) Published() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	out := make([]string, len(n.Subjects))
	copy(out, n.Subjects)
	return out
}
