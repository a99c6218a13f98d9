// Package media converts uploaded binary payloads into durable public
// references on an external media host.
package media

import (
	"context"
	"fmt"
	"io"
)

// Bridge turns a binary payload into a public URL on the configured
// host. Each invocation performs exactly one transmission and produces
// exactly one outcome: a reference or the host's error, unchanged. The
// bridge does not retry, does not cache results, and does not
// deduplicate identical payloads. It performs no size or type
// validation; callers are expected to have validated the payload before
// invoking it.
type Bridge struct {
	host Host
}

// NewBridge creates a bridge that stores payloads on the given host.
func NewBridge(host Host) *Bridge {
	return &Bridge{host: host}
}

// Upload buffers the source fully into memory, stores it under the
// destination category, and returns the reference URL. A failure leaves
// no durable artifact behind; there is no partial state for the caller
// to clean up.
func (b *Bridge) Upload(ctx context.Context, src io.Reader, contentType, category string) (string, error) {
	payload, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read payload: %w", err)
	}

	return b.host.Store(ctx, payload, contentType, category)
}
