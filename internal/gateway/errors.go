package gateway

import (
	"errors"
	"fmt"
)

// ErrCipherDecode marks ciphertext that failed to decrypt or parse:
// bad base64, wrong block length, broken padding, corrupt plaintext.
// Security-relevant, logged distinctly, never shown to customers.
var ErrCipherDecode = errors.New("gateway: cipher decode failed")

// ErrChecksum marks a checksum token that did not verify.
var ErrChecksum = errors.New("gateway: checksum verification failed")

// TransportError wraps a socket-level failure: refused, reset, DNS,
// deadline. Not safely retryable without reconciliation - the PG may
// have committed the charge before the connection died.
type TransportError struct {
	Op      string
	Addr    string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("gateway transport %s %s: timeout: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("gateway transport %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is the PG saying no: a non-success ResultCode with the
// PG's own reason text. Terminal for the attempt; the order stays in
// its prior state.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway declined: code=%s", e.Code)
	}
	return fmt.Sprintf("gateway declined: code=%s msg=%s", e.Code, e.Message)
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}
