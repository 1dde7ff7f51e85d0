// ABOUTME: TCP client side of the framed broadcast transport
// ABOUTME: Connects with retry-on-refused backoff and decodes one frame per Receive call
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/yassine-safraoui/sonos-challenge/pkg/frame"
)

const connectRetryInterval = 200 * time.Millisecond

// Client is the receiving side of the broadcast transport: one TCP
// connection, decoding frames in the order the server enqueued them.
type Client struct {
	conn net.Conn
	buf  []byte
}

// Connect dials addr, retrying on connection-refused until it succeeds or
// ctx is done. Any other dial error fails immediately.
func Connect(ctx context.Context, addr string) (*Client, error) {
	for {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			return &Client{conn: conn}, nil
		}
		if !isConnectionRefused(err) {
			return nil, fmt.Errorf("transport: connect to %s: %w", addr, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transport: connect to %s: %w", addr, ctx.Err())
		case <-time.After(connectRetryInterval):
		}
	}
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// Receive decodes and returns the next frame's payload, blocking until it
// arrives. The returned slice aliases the client's internal scratch buffer
// and is only valid until the next call to Receive.
func (c *Client) Receive() ([]byte, error) {
	payload, err := frame.Decode(c.conn, c.buf)
	if err != nil {
		return nil, err
	}
	c.buf = payload
	return payload, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
