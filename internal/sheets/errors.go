package sheets

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned when the remote endpoint answers 429. Callers
// treat it like a transport failure but weigh it heavier toward suspension.
var ErrRateLimited = errors.New("remote rate limit exceeded")

// TransportError wraps a network-level failure talking to the remote store.
// Only the synchronizer's backoff retries these; commands never do.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport failure or a rate limit,
// i.e. something a later retry could plausibly fix.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te) || errors.Is(err, ErrRateLimited)
}

// RemoteError is a rejection reported by the remote service itself
// (success=false in the envelope).
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote %s rejected", e.Action)
	}
	return fmt.Sprintf("remote %s rejected: %s", e.Action, e.Message)
}
