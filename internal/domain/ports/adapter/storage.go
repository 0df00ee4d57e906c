package adapter

import (
	"context"
	"io"
)

// ObjectStorage keeps generated artifacts. The returned url is an opaque
// durable reference that Open understands. Open refuses references the
// storage did not issue; Owns answers the same question without reading.
type ObjectStorage interface {
	Store(ctx context.Context, data []byte, contentType, keyHint string) (url string, err error)
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	Owns(url string) bool
}
