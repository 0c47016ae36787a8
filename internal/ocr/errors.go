package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed is returned by Recognize after Shutdown has been
	// invoked. Calls fail fast instead of hanging on a dead engine.
	ErrEngineClosed = errors.New("recognition engine is shut down")

	// ErrRecognitionTimeout is returned when a recognition call exceeds its
	// bounded duration. Callers should surface it as retryable.
	ErrRecognitionTimeout = errors.New("recognition timed out")
)

// EngineError is the hard-failure taxonomy for the recognition engine:
// initialization failures, crashes and timeouts. It is the only error class
// that propagates out of a pipeline run; everything else resolves to data.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("recognition engine: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a recognition timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrRecognitionTimeout)
}
