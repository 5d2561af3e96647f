package models

import "errors"

// ErrPeerGone is returned by a deliverer when the client side of the
// connection is no longer reachable. Delivery stops silently; it is never
// surfaced to the peer.
var ErrPeerGone = errors.New("peer gone")

// ErrMediaNotFound is returned when a named media item does not exist for
// the requesting user.
var ErrMediaNotFound = errors.New("media not found")

// AuthenticationError means the token on a frame failed verification or no
// longer matches the connection's principal. Maps to the 403-equivalent
// error frame.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string { return "authentication: " + e.Reason }

// ValidationError means a frame or reassembled payload is malformed. Maps to
// the 400-equivalent error frame.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// RetrievalError wraps a failure of the retrieval layer. The pipeline
// degrades to an apology answer instead of an error frame.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return "retrieval: " + e.Err.Error() }
func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError wraps a failure of the generation backend mid-stream. Like
// retrieval failures it degrades to an apology answer.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }
