package domain

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// ErrUnknownAccount is returned by Directory implementations when a handle
// or account id does not exist upstream.
var ErrUnknownAccount = errors.New("unknown account")

// TransientError marks a stream failure as recoverable: the connection
// manager reconnects with the same subscription instead of giving up.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient stream error: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a stream error should trigger an automatic
// reconnect. Explicitly marked errors, EOFs and common network resets
// qualify; anything else ends the session until the next rebuild.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
