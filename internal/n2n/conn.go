// Package n2n implements the Ouroboros Node-to-Node connection: a single
// TCP bearer, the initiator handshake, a background demultiplexer that
// fans inbound frames out to per-protocol bounded queues, and an
// autonomous KeepAlive responder (spec.md §4.C).
//
// The goroutine shape is grounded on smythg4-go-bitcoin/internal/network's
// SimpleNode (readLoop + per-message delivery + an OnMessage auto-
// responder for "ping"), generalized to per-protocol queues and
// supervised with golang.org/x/sync/errgroup instead of a raw
// sync.WaitGroup, so any goroutine's failure tears the whole connection
// down the way spec.md §5 requires.
package n2n

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/mux"
)

// Timeouts per the Ouroboros spec, spec.md §4.C/§5.
const (
	HandshakeSDUTimeout     = 10 * time.Second
	PostHandshakeSDUTimeout = 30 * time.Second
	BlockFetchStateTimeout  = 60 * time.Second
)

// Conn is a single multiplexed N2N connection to one relay.
type Conn struct {
	logger *logrus.Logger
	conn   net.Conn

	startedAt time.Time

	writeMu sync.Mutex

	buffers map[uint16]*protocolBuffer
	inbound map[uint16]chan []byte

	negotiatedVersion uint16

	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// VersionTable is the v14 version-table entry proposed at handshake time,
// per spec.md §6: [network_magic, initiator_only, peer_sharing, query].
type VersionTable struct {
	NetworkMagic   uint32
	InitiatorOnly  bool
	PeerSharing    uint8
	Query          bool
}

// DefaultVersionTable proposes mainnet, initiator-only, no peer sharing,
// no query, per spec.md §6's default.
func DefaultVersionTable(magic uint32) VersionTable {
	return VersionTable{NetworkMagic: magic, InitiatorOnly: true, PeerSharing: 0, Query: false}
}

// HandshakeVersion is the only N2N version this client proposes.
const HandshakeVersion = 14

// Dial opens a TCP connection to addr, performs the initiator handshake,
// and starts the background demultiplexer. The returned Conn owns the
// socket; callers must call Close when done.
func Dial(ctx context.Context, addr string, vt VersionTable, logger *logrus.Logger) (*Conn, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := net.Dialer{}
	tcpConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &chain.TransportError{Op: "dial " + addr, Err: err}
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		logger:    logger,
		conn:      tcpConn,
		startedAt: time.Now(),
		buffers:   make(map[uint16]*protocolBuffer),
		inbound:   make(map[uint16]chan []byte),
		ctx:       cctx,
		cancel:    cancel,
	}
	for _, p := range []uint16{ProtocolHandshake, ProtocolChainSync, ProtocolBlockFetch, ProtocolTxSubmission2, ProtocolKeepAlive, ProtocolPeerSharing} {
		c.buffers[p] = &protocolBuffer{}
		c.inbound[p] = make(chan []byte, inboundQueueDepth)
	}

	eg, egCtx := errgroup.WithContext(cctx)
	c.eg = eg
	eg.Go(func() error {
		err := c.demuxLoop(egCtx)
		// Cancel the connection context so pending and later recv calls
		// fail instead of waiting out their timeouts.
		c.cancel()
		return err
	})

	if err := c.handshake(ctx, vt); err != nil {
		_ = c.Close()
		return nil, err
	}

	eg.Go(func() error { return c.keepAliveLoop(egCtx) })

	logger.WithFields(logrus.Fields{"addr": addr, "version": c.negotiatedVersion}).Info("n2n connection established")
	return c, nil
}

func (c *Conn) timestamp() uint32 {
	return uint32(time.Since(c.startedAt).Microseconds())
}

// send MUX-splits payload across protocolID frames and writes them.
func (c *Conn) send(protocolID uint16, payload []byte) error {
	frames, err := mux.Encode(protocolID, mux.ModeInitiator, c.timestamp(), payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for _, f := range frames {
		if _, err := c.conn.Write(f); err != nil {
			return &chain.TransportError{Op: fmt.Sprintf("write protocol %d", protocolID), Err: err}
		}
	}
	return nil
}

// recv dequeues the next inbound message for protocolID, or times out.
func (c *Conn) recv(ctx context.Context, protocolID uint16, timeout time.Duration) ([]byte, error) {
	ch, ok := c.inbound[protocolID]
	if !ok {
		return nil, &chain.ProtocolViolationError{Protocol: fmt.Sprintf("%d", protocolID), Detail: "unknown protocol id"}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, &chain.TransportError{Op: "recv", Err: fmt.Errorf("connection closed")}
		}
		return msg, nil
	case <-timer.C:
		return nil, &chain.TimeoutError{Op: fmt.Sprintf("recv protocol %d", protocolID), Deadline: timeout.String()}
	case <-ctx.Done():
		return nil, &chain.TransportError{Op: "recv", Err: ctx.Err()}
	case <-c.ctx.Done():
		return nil, &chain.TransportError{Op: "recv", Err: fmt.Errorf("connection closed")}
	}
}

// demuxLoop reads raw frames off the socket, reassembles per-protocol CBOR
// messages, and fans them out to each protocol's bounded queue. KeepAlive
// requests are answered inline here so a response is never interleaved
// in the middle of another protocol's multi-frame message (spec.md §5).
func (c *Conn) demuxLoop(ctx context.Context) error {
	header := make([]byte, mux.HeaderSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.readFull(header); err != nil {
			return &chain.TransportError{Op: "read mux header", Err: err}
		}
		frame, payloadLen, err := mux.DecodeHeader(header)
		if err != nil {
			return &chain.ProtocolViolationError{Protocol: "mux", Detail: err.Error()}
		}
		if payloadLen > 0 {
			frame.Payload = make([]byte, payloadLen)
			if err := c.readFull(frame.Payload); err != nil {
				// EOF mid-frame: a transport failure, per spec.md §7.
				return &chain.TransportError{Op: "read mux payload", Err: err}
			}
		}

		buf, ok := c.buffers[frame.ProtocolID]
		if !ok {
			c.logger.WithField("protocol", frame.ProtocolID).Warn("dropping frame for unknown protocol id")
			continue
		}
		msgs, err := buf.Feed(frame.Payload)
		if err != nil {
			return &chain.ProtocolViolationError{Protocol: fmt.Sprintf("%d", frame.ProtocolID), Detail: err.Error()}
		}
		for _, msg := range msgs {
			if frame.ProtocolID == ProtocolKeepAlive {
				if err := c.handleKeepAlive(msg); err != nil {
					c.logger.WithError(err).Warn("keep-alive auto-response failed")
				}
				continue
			}
			select {
			case c.inbound[frame.ProtocolID] <- msg:
			default:
				return &chain.ProtocolViolationError{
					Protocol: fmt.Sprintf("%d", frame.ProtocolID),
					Detail:   "inbound queue overflow",
				}
			}
		}
	}
}

// readFull reads exactly len(buf) bytes, short-circuiting on connection
// close.
func (c *Conn) readFull(buf []byte) error {
	read := 0
	for read < len(buf) {
		n, err := c.conn.Read(buf[read:])
		if err != nil {
			return err
		}
		read += n
	}
	return nil
}

// Close cancels the demultiplexer and keep-alive goroutines and closes the
// TCP socket, best-effort. Safe to call multiple times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		err := c.conn.Close()
		_ = c.eg.Wait()
		for _, ch := range c.inbound {
			close(ch)
		}
		c.closeErr = err
	})
	return c.closeErr
}

// NegotiatedVersion returns the N2N protocol version agreed at handshake.
func (c *Conn) NegotiatedVersion() uint16 { return c.negotiatedVersion }
