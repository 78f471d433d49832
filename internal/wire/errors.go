package wire

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrNotRepresentable is returned when a frame kind has no encoding in
	// the selected framing (error frames in legacy framing).
	ErrNotRepresentable = errors.New("frame not representable in framing")
)

// ProtocolError describes an inbound frame that could not be classified.
// Receivers drop the frame and log it.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
	}
	return "wire: " + e.Reason
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedFrame}
	}
	return []error{ErrMalformedFrame, e.Err}
}

func protocolErr(reason string, err error) error {
	return &ProtocolError{Reason: reason, Err: err}
}
