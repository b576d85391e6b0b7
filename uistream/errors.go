package uistream

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindUpstreamOpen means the provider stream could not be created.
	KindUpstreamOpen ErrorKind = iota + 1
	// KindUpstream means the stream failed after it was opened.
	KindUpstream
	// KindEncode means a frame could not be encoded.
	KindEncode
)

// Error types reported in the errorType field of an error frame.
const (
	ErrorTypeUpstream         = "UpstreamError"
	ErrorTypeCanceled         = "Canceled"
	ErrorTypeDeadlineExceeded = "DeadlineExceeded"
	ErrorTypeEncode           = "EncodeError"
)

// StreamError is the terminal error of a Stream. The client has already been
// sent an error frame describing it.
type StreamError struct {
	Kind ErrorKind
	// Type is the errorType sent to the client. Empty for KindUpstreamOpen.
	Type string
	Err  error
}

func (e *StreamError) Error() string {
	if e.Kind == KindUpstreamOpen {
		return fmt.Sprintf("failed to create stream: %v", e.Err)
	}
	return fmt.Sprintf("stream failed (%s): %v", e.Type, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeDeadlineExceeded
	default:
		return ErrorTypeUpstream
	}
}
