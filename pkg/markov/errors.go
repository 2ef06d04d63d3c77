package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrder is returned by Build when the requested chain order
	// is less than 1.
	ErrInvalidOrder = errors.New("markov: chain order must be at least 1")

	// ErrEmptyCorpus is returned by Build when the corpus stream yields no
	// token sequences at all.
	ErrEmptyCorpus = errors.New("markov: corpus produced no token sequences")

	// ErrEmptyChain is returned by Generate when the chain contains no
	// transitions to walk.
	ErrEmptyChain = errors.New("markov: chain has no transitions")
)

// RestoreError reports a failed attempt to restore a chain snapshot. It is
// recoverable: callers are expected to fall back to rebuilding the chain
// from the corpus rather than treating it as fatal.
type RestoreError struct {
	Path   string
	Reason string
	Err    error
}

func (e *RestoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("restore %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("restore %s: %s", e.Path, e.Reason)
}

func (e *RestoreError) Unwrap() error { return e.Err }
