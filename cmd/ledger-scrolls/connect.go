package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/beacnpool/ledger-scrolls/internal/blockfetch"
	"github.com/beacnpool/ledger-scrolls/internal/chain"
	"github.com/beacnpool/ledger-scrolls/internal/chainsync"
	"github.com/beacnpool/ledger-scrolls/internal/n2n"
	"github.com/beacnpool/ledger-scrolls/internal/topology"
	"github.com/sirupsen/logrus"
)

// session bundles the two mini-protocol clients sharing one connection.
type session struct {
	conn       *n2n.Conn
	ChainSync  *chainsync.Client
	BlockFetch *blockfetch.Client
}

func (s *session) Close() error {
	return s.conn.Close()
}

// dial tries each topology endpoint in order, moving on to the next on
// Transport, Timeout, or HandshakeRefused, per spec.md §7's connect
// policy. Every other error is fatal.
func dial(ctx context.Context) (*session, error) {
	if topologyPath == "" {
		return nil, errors.New("--topology is required to contact a relay")
	}
	data, err := os.ReadFile(topologyPath)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	endpoints, err := topology.Parse(data)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, errors.New("topology names no usable endpoints")
	}

	vt := n2n.DefaultVersionTable(networkMagic())

	var lastErr error
	for _, ep := range endpoints {
		conn, err := n2n.Dial(ctx, ep.String(), vt, logger)
		if err == nil {
			return &session{
				conn:       conn,
				ChainSync:  chainsync.NewClient(conn, logger),
				BlockFetch: blockfetch.NewClient(conn, logger),
			}, nil
		}
		lastErr = err
		var transportErr *chain.TransportError
		var timeoutErr *chain.TimeoutError
		var refusedErr *chain.HandshakeRefusedError
		if errors.As(err, &transportErr) || errors.As(err, &timeoutErr) || errors.As(err, &refusedErr) {
			logger.WithFields(logrus.Fields{"endpoint": ep.String(), "err": err}).Warn("endpoint unreachable, trying next")
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("no topology endpoint reachable: %w", lastErr)
}
