package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Transport carries one encrypted request/response exchange over its
// own TCP connection. The PG protocol is request-per-connection: the
// peer signals end-of-response by closing, so there is no pooling and
// no reuse. A single deadline covers connect plus read.
type Transport struct {
	addr    string
	timeout time.Duration
}

// NewTransport returns a transport for the PG endpoint.
func NewTransport(host string, port int, timeout time.Duration) *Transport {
	return &Transport{
		addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		timeout: timeout,
	}
}

// Exchange writes the full payload, half-closes the write side, and
// reads until the peer closes. Socket-level failures come back as
// *TransportError; the caller must not retry without reconciling,
// because the PG may have committed the charge before the error.
func (t *Transport) Exchange(ctx context.Context, payload []byte) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, t.wrap("dial", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(deadline); err != nil {
		return nil, t.wrap("deadline", err)
	}

	if _, err := conn.Write(payload); err != nil {
		return nil, t.wrap("write", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// end-of-request signal; the reply still flows back
		if err := tcp.CloseWrite(); err != nil {
			return nil, t.wrap("close-write", err)
		}
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return nil, t.wrap("read", err)
	}
	return reply, nil
}

func (t *Transport) wrap(op string, err error) error {
	timeout := false
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		timeout = true
	}
	return &TransportError{Op: op, Addr: t.addr, Timeout: timeout, Err: err}
}
