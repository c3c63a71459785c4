package n2n

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
)

// handleKeepAlive answers a peer's MsgKeepAlive([0, cookie]) with
// MsgKeepAliveResponse([1, cookie]), without the application ever
// observing the exchange (spec.md §4.C).
func (c *Conn) handleKeepAlive(raw []byte) error {
	v, err := cborutil.Decode(raw)
	if err != nil {
		return fmt.Errorf("n2n: decode keep-alive message: %w", err)
	}
	if v.Kind != cborutil.KindArray || len(v.Array) < 2 {
		return fmt.Errorf("n2n: malformed keep-alive message")
	}
	tag, ok := v.Array[0].Int()
	if !ok || tag != 0 {
		// Not a request (could be our own response echoed by a test
		// harness); nothing to do.
		return nil
	}
	cookie, ok := v.Array[1].Int()
	if !ok {
		return fmt.Errorf("n2n: keep-alive cookie is not an integer")
	}
	resp, err := cbor.Encode([]any{uint64(1), cookie})
	if err != nil {
		return err
	}
	return c.send(ProtocolKeepAlive, resp)
}

// keepAliveLoop is a placeholder supervisory goroutine: the actual
// response happens synchronously inside demuxLoop so it can never
// interleave with another protocol's in-flight multi-frame message. This
// goroutine only watches for connection shutdown so the errgroup has a
// consistent number of tracked tasks across the connection's lifetime.
func (c *Conn) keepAliveLoop(ctx context.Context) error {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
