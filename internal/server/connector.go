package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/openchem/compute-registry/internal/config"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxTries    = 3
)

// tcpConnector dials the configured host:port with exponential-backoff retry.
// It carries no protocol of its own; whatever speaks over the connection is
// layered on by the host application.
type tcpConnector struct {
	dialTimeout time.Duration
	maxTries    uint
}

var _ Connector = (*tcpConnector)(nil)

// NewTCPConnector creates the default transport connector.
func NewTCPConnector() Connector {
	return &tcpConnector{
		dialTimeout: defaultDialTimeout,
		maxTries:    defaultMaxTries,
	}
}

// Connect implements Connector.
func (c *tcpConnector) Connect(ctx context.Context, cfg config.ServerConfig) (io.Closer, error) {
	if cfg.Protocol == config.ProtocolLocal {
		return nopCloser{}, nil
	}

	addr := cfg.Address()
	conn, err := backoff.Retry(ctx, func() (net.Conn, error) {
		d := net.Dialer{Timeout: c.dialTimeout}
		return d.DialContext(ctx, "tcp", addr)
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(c.maxTries))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return conn, nil
}

// nopCloser stands in for the connection of a local server, which needs no
// transport.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }
