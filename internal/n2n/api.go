package n2n

import (
	"context"
	"time"
)

// Send writes payload on protocolID, MUX-splitting as needed.
func (c *Conn) Send(protocolID uint16, payload []byte) error {
	return c.send(protocolID, payload)
}

// Recv dequeues the next inbound message for protocolID, or returns a
// chain.TimeoutError after timeout with no message.
func (c *Conn) Recv(ctx context.Context, protocolID uint16, timeout time.Duration) ([]byte, error) {
	return c.recv(ctx, protocolID, timeout)
}
