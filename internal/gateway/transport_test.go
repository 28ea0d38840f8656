package gateway

import (
	"context"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakePeer runs a one-shot TCP peer that reads until the client
// half-closes, then calls respond with what it read.
func startFakePeer(t *testing.T, respond func(conn net.Conn, request []byte)) (host string, port int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		request, _ := io.ReadAll(conn)
		respond(conn, request)
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	pn, err := strconv.Atoi(p)
	require.NoError(t, err)
	return h, pn
}

func TestTransportExchange(t *testing.T) {
	host, port := startFakePeer(t, func(conn net.Conn, request []byte) {
		conn.Write(append([]byte("echo:"), request...))
	})

	tr := NewTransport(host, port, 2*time.Second)
	reply, err := tr.Exchange(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte("echo:hello"), reply)
}

func TestTransportTimeout(t *testing.T) {
	host, port := startFakePeer(t, func(conn net.Conn, request []byte) {
		// connect succeeds but no reply ever arrives
		time.Sleep(2 * time.Second)
	})

	tr := NewTransport(host, port, 100*time.Millisecond)
	start := time.Now()
	_, err := tr.Exchange(context.Background(), []byte("hello"))
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout)
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTransportConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	ln.Close()

	tr := NewTransport(host, port, time.Second)
	_, err = tr.Exchange(context.Background(), []byte("hello"))
	require.Error(t, err)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "dial", te.Op)
	assert.False(t, te.Timeout)
}

func TestTransportHonorsContextDeadline(t *testing.T) {
	host, port := startFakePeer(t, func(conn net.Conn, request []byte) {
		time.Sleep(2 * time.Second)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	tr := NewTransport(host, port, 10*time.Second)
	start := time.Now()
	_, err := tr.Exchange(ctx, []byte("hello"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
