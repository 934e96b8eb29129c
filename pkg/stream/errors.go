package stream

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/aisearch/pkg/utils"
)

// TransportError is a failure to establish or read the response stream:
// connection errors, non-success statuses and body read errors. It always
// terminates the chunk sequence.
type TransportError struct {
	// Op is the failed operation, e.g. "send" or "read".
	Op string

	// StatusCode is the HTTP status for status failures, 0 otherwise.
	StatusCode int

	// Body is a prefix of the response body for status failures.
	Body string

	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: backend returned status %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PayloadDecodeError is a single event line whose payload could not be
// decoded. The sequence continues after it.
type PayloadDecodeError struct {
	// Line is the payload text that failed to decode.
	Line string

	Err error
}

func (e *PayloadDecodeError) Error() string {
	return fmt.Sprintf("malformed stream payload %q: %v", utils.Truncate(e.Line, 80), e.Err)
}

func (e *PayloadDecodeError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsPayload reports whether err is or wraps a *PayloadDecodeError.
func IsPayload(err error) bool {
	var pe *PayloadDecodeError
	return errors.As(err, &pe)
}
