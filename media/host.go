package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Host stores a complete binary payload under a destination category and
// returns the absolute URL of the stored content. The host assigns the
// final storage location; callers must not assume anything about the
// shape of the returned reference beyond it being a valid absolute URL.
type Host interface {
	Store(ctx context.Context, payload []byte, contentType, category string) (string, error)
}

// Remover deletes stored content by its public reference. It exists so
// record deletion can clean up the image the record pointed at.
type Remover interface {
	Remove(ctx context.Context, url string) error
}

// ObjectStore is the subset of the storage client the object-backed host
// needs.
type ObjectStore interface {
	UploadObject(ctx context.Context, key string, data io.Reader, contentType string) error
	DeleteObject(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// ObjectHost stores payloads on an S3-compatible object store. Every
// call writes a new object under a fresh key, so repeated uploads of
// identical content produce distinct references.
type ObjectHost struct {
	store ObjectStore
}

// NewObjectHost creates a host backed by the given object store.
func NewObjectHost(store ObjectStore) *ObjectHost {
	return &ObjectHost{store: store}
}

// Store writes the payload under the category prefix and returns its
// public URL.
func (h *ObjectHost) Store(ctx context.Context, payload []byte, contentType, category string) (string, error) {
	key := fmt.Sprintf("%s/%s", category, uuid.New().String())

	if err := h.store.UploadObject(ctx, key, bytes.NewReader(payload), contentType); err != nil {
		return "", err
	}

	return h.store.ObjectURL(key), nil
}

// Remove deletes the stored content a reference points at. References
// not served by this host are rejected.
func (h *ObjectHost) Remove(ctx context.Context, url string) error {
	prefix := h.store.ObjectURL("")
	key := strings.TrimPrefix(url, prefix)
	if key == url || key == "" {
		return fmt.Errorf("reference %q is not served by this host", url)
	}

	return h.store.DeleteObject(ctx, key)
}
