// Package fragment stores the pieces of an in-flight chat turn keyed by
// connection ID and fragment index. Index 0 holds the connection's principal
// record; indices >= 1 hold ordered payload pieces. Entries are never deleted
// explicitly, they lapse by TTL.
package fragment

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no fragment exists under the requested key.
var ErrNotFound = errors.New("fragment not found")

// Fragment is one stored piece. Payload is opaque bytes for body fragments
// and the marshaled principal for index 0.
type Fragment struct {
	ConnectionID string `json:"connection_id"`
	Index        int    `json:"index"`
	Payload      []byte `json:"payload"`
}

// Store is keyed, TTL-bounded fragment storage. Put overwrites silently when
// the (connection, index) key already exists; the last write wins.
type Store interface {
	Put(ctx context.Context, connID string, index int, payload []byte, ttl time.Duration) error
	Get(ctx context.Context, connID string, index int) ([]byte, error)
	// List returns every body fragment (index >= 1) of a connection, in no
	// particular order.
	List(ctx context.Context, connID string) ([]Fragment, error)
}
