package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed matches every *RequestError.
	ErrRequestFailed = errors.New("remote request failed")
	// ErrUnreachable matches transport failures (no HTTP status received).
	ErrUnreachable = errors.New("remote unreachable")
	// ErrRejected matches non-2xx responses.
	ErrRejected = errors.New("remote rejected request")
	// ErrDecodeFailed is returned when a 2xx body is not a valid envelope.
	ErrDecodeFailed = errors.New("remote response decode failed")
)

// RequestError describes a failed remote call. StatusCode is 0 when no
// response was received.
type RequestError struct {
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("remote %s: unreachable: %v", e.Path, e.Err)
	}
	if e.Detail == "" {
		return fmt.Sprintf("remote %s: HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote %s: HTTP %d: %s", e.Path, e.StatusCode, e.Detail)
}

// Is makes errors.Is match ErrRequestFailed plus ErrUnreachable or ErrRejected.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrUnreachable:
		return e.StatusCode == 0
	case ErrRejected:
		return e.StatusCode != 0
	}
	return false
}

func (e *RequestError) Unwrap() error { return e.Err }
