// Package blockfetch implements the Ouroboros BlockFetch mini-protocol
// client: request a point or an inclusive point range and collect the
// MsgBlock stream, per spec.md §4.E.
package blockfetch

import (
	"context"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/sirupsen/logrus"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/n2n"
)

// recvTimeout bounds BlockFetch's streaming states, per spec.md §5.
const recvTimeout = n2n.BlockFetchStateTimeout

// Client drives the BlockFetch mini-protocol over an established n2n.Conn.
type Client struct {
	conn   *n2n.Conn
	logger *logrus.Logger
}

// NewClient wraps conn for BlockFetch use.
func NewClient(conn *n2n.Conn, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{conn: conn, logger: logger}
}

func encodePoint(p chain.Point) any {
	if p.IsOrigin() {
		return []any{}
	}
	return []any{p.Slot, p.Hash}
}

// FetchRange requests the inclusive range [from, to] and returns every
// block body in order. An empty result with no error means the server
// replied MsgNoBlocks.
func (c *Client) FetchRange(ctx context.Context, from, to chain.Point) ([][]byte, error) {
	payload, err := cbor.Encode([]any{uint64(0), encodePoint(from), encodePoint(to)})
	if err != nil {
		return nil, fmt.Errorf("blockfetch: encode MsgRequestRange: %w", err)
	}
	if err := c.conn.Send(n2n.ProtocolBlockFetch, payload); err != nil {
		return nil, err
	}

	raw, err := c.conn.Recv(ctx, n2n.ProtocolBlockFetch, recvTimeout)
	if err != nil {
		return nil, err
	}
	v, err := cborutil.Decode(raw)
	if err != nil {
		return nil, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: err.Error()}
	}
	tag, ok := firstTag(v)
	if !ok {
		return nil, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: "malformed reply to MsgRequestRange"}
	}
	switch tag {
	case 3: // MsgNoBlocks
		return nil, nil
	case 2: // MsgStartBatch
		return c.streamBatch(ctx)
	default:
		return nil, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: fmt.Sprintf("unexpected tag %d after MsgRequestRange", tag)}
	}
}

// streamBatch consumes MsgBlock frames until MsgBatchDone and sends
// MsgClientDone, per spec.md §4.E step 3-4.
func (c *Client) streamBatch(ctx context.Context) ([][]byte, error) {
	var bodies [][]byte
	for {
		raw, err := c.conn.Recv(ctx, n2n.ProtocolBlockFetch, recvTimeout)
		if err != nil {
			return bodies, err
		}
		v, err := cborutil.Decode(raw)
		if err != nil {
			return bodies, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: err.Error()}
		}
		tag, ok := firstTag(v)
		if !ok {
			return bodies, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: "malformed batch message"}
		}
		switch tag {
		case 4: // MsgBlock = [4, block_body]
			if v.Kind != cborutil.KindArray || len(v.Array) < 2 {
				return bodies, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: "short MsgBlock"}
			}
			body, err := blockBodyBytes(v.Array[1])
			if err != nil {
				return bodies, err
			}
			bodies = append(bodies, body)
		case 5: // MsgBatchDone
			if err := c.sendClientDone(); err != nil {
				return bodies, err
			}
			return bodies, nil
		default:
			return bodies, &chain.ProtocolViolationError{Protocol: "blockfetch", Detail: fmt.Sprintf("unexpected tag %d mid-batch", tag)}
		}
	}
}

func (c *Client) sendClientDone() error {
	payload, err := cbor.Encode([]any{uint64(1)})
	if err != nil {
		return err
	}
	return c.conn.Send(n2n.ProtocolBlockFetch, payload)
}

// FetchBlock is the pt_from == pt_to specialization; it returns the
// first (and only) block body, or nil if the relay has no block for
// that point.
func (c *Client) FetchBlock(ctx context.Context, point chain.Point) ([]byte, error) {
	bodies, err := c.FetchRange(ctx, point, point)
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, nil
	}
	return bodies[0], nil
}

func firstTag(v cborutil.Value) (int64, bool) {
	if v.Kind != cborutil.KindArray || len(v.Array) == 0 {
		return 0, false
	}
	return v.Array[0].Int()
}

// blockBodyBytes accepts a block_body that arrived as CBOR bytes or as an
// already-decoded CBOR structure (spec.md §4.E), normalizing to raw CBOR
// bytes either way.
func blockBodyBytes(v cborutil.Value) ([]byte, error) {
	if b, ok := v.AsBytes(); ok {
		return b, nil
	}
	// Already-decoded: re-encode canonically so downstream parsing always
	// sees bytes.
	encoded, err := cborutil.Reencode(v)
	if err != nil {
		return nil, &chain.MalformedError{Where: "blockfetch: block body neither bytes nor re-encodable"}
	}
	return encoded, nil
}
