// Package chainsync implements the Ouroboros ChainSync mini-protocol
// client: intersection finding and forward/backward header streaming,
// per spec.md §4.D.
package chainsync

import (
	"context"
	"fmt"
	"time"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/sirupsen/logrus"

	"github.com/beacnpool/ledger-scrolls/internal/cborutil"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/n2n"
)

// State is the ChainSync client state, per spec.md §4.D. The driver
// updates it for observability; it is not used to reject out-of-order
// calls (a single caller drives one request at a time by construction).
type State int

const (
	StateIdle State = iota
	StateCanAwait
	StateMustReply
	StateIntersect
	StateDone
)

// recvTimeout bounds every ChainSync recv after the handshake, per
// spec.md §5's post-handshake SDU timeout.
const recvTimeout = n2n.PostHandshakeSDUTimeout

// Tip is the server's reported chain tip.
type Tip struct {
	Point   chain.Point
	BlockNo uint64
}

// Client drives the ChainSync mini-protocol over an established n2n.Conn.
type Client struct {
	conn   *n2n.Conn
	logger *logrus.Logger
	state  State
}

// NewClient wraps conn for ChainSync use.
func NewClient(conn *n2n.Conn, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{conn: conn, logger: logger}
}

// FindIntersect sends MsgFindIntersect([4, points]). An empty points
// slice is used to learn the tip (spec.md §4.D). Returns (point, tip,
// found).
func (c *Client) FindIntersect(ctx context.Context, points []chain.Point) (chain.Point, Tip, bool, error) {
	c.state = StateIntersect
	wirePoints := make([]any, 0, len(points))
	for _, p := range points {
		wirePoints = append(wirePoints, encodePoint(p))
	}
	payload, err := cbor.Encode([]any{uint64(4), wirePoints})
	if err != nil {
		return chain.Point{}, Tip{}, false, fmt.Errorf("chainsync: encode MsgFindIntersect: %w", err)
	}
	if err := c.conn.Send(n2n.ProtocolChainSync, payload); err != nil {
		return chain.Point{}, Tip{}, false, err
	}

	raw, err := c.conn.Recv(ctx, n2n.ProtocolChainSync, recvTimeout)
	if err != nil {
		return chain.Point{}, Tip{}, false, err
	}
	v, err := cborutil.Decode(raw)
	if err != nil {
		return chain.Point{}, Tip{}, false, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: err.Error()}
	}
	if v.Kind != cborutil.KindArray || len(v.Array) == 0 {
		return chain.Point{}, Tip{}, false, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "malformed find-intersect reply"}
	}
	tag, _ := v.Array[0].Int()
	switch tag {
	case 5: // MsgIntersectFound = [5, point, tip]
		if len(v.Array) < 3 {
			return chain.Point{}, Tip{}, false, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "short MsgIntersectFound"}
		}
		pt, err := decodePoint(v.Array[1])
		if err != nil {
			return chain.Point{}, Tip{}, false, err
		}
		tip, err := decodeTip(v.Array[2])
		if err != nil {
			return chain.Point{}, Tip{}, false, err
		}
		return pt, tip, true, nil
	case 6: // MsgIntersectNotFound = [6, tip]
		if len(v.Array) < 2 {
			return chain.Point{}, Tip{}, false, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "short MsgIntersectNotFound"}
		}
		tip, err := decodeTip(v.Array[1])
		if err != nil {
			return chain.Point{}, Tip{}, false, err
		}
		return chain.Point{}, tip, false, nil
	default:
		return chain.Point{}, Tip{}, false, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: fmt.Sprintf("unexpected tag %d", tag)}
	}
}

// NextResult discriminates RequestNext's three possible replies.
type NextResult struct {
	AwaitReply   bool
	RollForward  bool
	RollBackward bool
	Point        chain.Point // valid when RollForward (derived point) or RollBackward
	HeaderCBOR   []byte      // valid when RollForward
	Tip          Tip
}

// RequestNext sends MsgRequestNext([0]) and decodes the reply.
func (c *Client) RequestNext(ctx context.Context) (NextResult, error) {
	payload, err := cbor.Encode([]any{uint64(0)})
	if err != nil {
		return NextResult{}, fmt.Errorf("chainsync: encode MsgRequestNext: %w", err)
	}
	if err := c.conn.Send(n2n.ProtocolChainSync, payload); err != nil {
		return NextResult{}, err
	}

	raw, err := c.conn.Recv(ctx, n2n.ProtocolChainSync, recvTimeout)
	if err != nil {
		return NextResult{}, err
	}
	v, err := cborutil.Decode(raw)
	if err != nil {
		return NextResult{}, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: err.Error()}
	}
	if v.Kind != cborutil.KindArray || len(v.Array) == 0 {
		return NextResult{}, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "malformed request-next reply"}
	}
	tag, _ := v.Array[0].Int()
	switch tag {
	case 1: // MsgAwaitReply
		c.state = StateMustReply
		return NextResult{AwaitReply: true}, nil
	case 2: // MsgRollForward = [2, header, tip]
		if len(v.Array) < 3 {
			return NextResult{}, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "short MsgRollForward"}
		}
		c.state = StateCanAwait
		headerBytes, err := extractHeaderBytes(v.Array[1])
		if err != nil {
			return NextResult{}, err
		}
		point, err := pointFromHeader(headerBytes)
		if err != nil {
			return NextResult{}, err
		}
		tip, err := decodeTip(v.Array[2])
		if err != nil {
			return NextResult{}, err
		}
		return NextResult{RollForward: true, Point: point, HeaderCBOR: headerBytes, Tip: tip}, nil
	case 3: // MsgRollBackward = [3, point, tip]
		if len(v.Array) < 3 {
			return NextResult{}, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: "short MsgRollBackward"}
		}
		c.state = StateCanAwait
		pt, err := decodePoint(v.Array[1])
		if err != nil {
			return NextResult{}, err
		}
		tip, err := decodeTip(v.Array[2])
		if err != nil {
			return NextResult{}, err
		}
		return NextResult{RollBackward: true, Point: pt, Tip: tip}, nil
	default:
		return NextResult{}, &chain.ProtocolViolationError{Protocol: "chainsync", Detail: fmt.Sprintf("unexpected tag %d", tag)}
	}
}

// Done sends MsgDone([7]).
func (c *Client) Done() error {
	c.state = StateDone
	payload, err := cbor.Encode([]any{uint64(7)})
	if err != nil {
		return err
	}
	return c.conn.Send(n2n.ProtocolChainSync, payload)
}

// HeaderPoint pairs a roll-forward point with its raw header bytes.
type HeaderPoint struct {
	Point      chain.Point
	HeaderCBOR []byte
}

// StreamHeaders yields up to max roll-forward (point, header) pairs by
// repeatedly calling RequestNext. Rollbacks are logged and skipped.
// Streaming terminates cleanly after idleTimeout with no forward
// progress.
func (c *Client) StreamHeaders(ctx context.Context, max int, idleTimeout time.Duration) ([]HeaderPoint, error) {
	var out []HeaderPoint
	lastProgress := time.Now()
	for len(out) < max {
		if time.Since(lastProgress) > idleTimeout {
			return out, nil
		}
		res, err := c.RequestNext(ctx)
		if err != nil {
			var te *chain.TimeoutError
			if isTimeout(err, &te) {
				return out, nil
			}
			return out, err
		}
		switch {
		case res.AwaitReply:
			continue
		case res.RollForward:
			out = append(out, HeaderPoint{Point: res.Point, HeaderCBOR: res.HeaderCBOR})
			lastProgress = time.Now()
		case res.RollBackward:
			c.logger.WithField("point", res.Point.String()).Info("chainsync: rollback, continuing scan")
		}
	}
	return out, nil
}

func isTimeout(err error, target **chain.TimeoutError) bool {
	te, ok := err.(*chain.TimeoutError)
	if ok {
		*target = te
	}
	return ok
}
