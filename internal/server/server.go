// Package server defines the server entity owned by the registry: one
// configuration plus transient connection state.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/openchem/compute-registry/internal/config"
)

// Connector establishes the transport to a remote compute server. The wire
// protocol spoken over the returned connection is out of scope here; the
// registry only needs open and close.
type Connector interface {
	Connect(ctx context.Context, cfg config.ServerConfig) (io.Closer, error)
}

// Server wraps exactly one ServerConfig together with its live connection.
// Servers are created and destroyed by the registry only; identity is the ID,
// the name is the user-facing key. Like the registry that owns it, a Server
// expects a single logical thread of control.
type Server struct {
	id        string
	cfg       config.ServerConfig
	connector Connector
	conn      io.Closer
}

// New creates a server for the given configuration.
func New(cfg config.ServerConfig, connector Connector) *Server {
	return &Server{
		id:        uuid.NewString(),
		cfg:       cfg,
		connector: connector,
	}
}

// ID returns the server's identity, stable across renames.
func (s *Server) ID() string {
	return s.id
}

// Name returns the display name from the server's configuration.
func (s *Server) Name() string {
	return s.cfg.Name
}

// Configuration returns a copy of the server's configuration.
func (s *Server) Configuration() config.ServerConfig {
	return s.cfg
}

// Open establishes the connection. Opening an already-open server is a no-op.
func (s *Server) Open(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}
	if s.connector == nil {
		return fmt.Errorf("server %s has no connector", s.cfg.Name)
	}

	conn, err := s.connector.Connect(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to server %s: %w", s.cfg.Name, err)
	}
	s.conn = conn
	slog.Info("Opened server connection", "server", s.cfg.Name)
	return nil
}

// CloseConnection tears down the live connection if there is one.
func (s *Server) CloseConnection() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Close(); err != nil {
		slog.Warn("Error closing server connection", "server", s.cfg.Name, "error", err)
	}
	s.conn = nil
	slog.Info("Closed server connection", "server", s.cfg.Name)
}

// IsOpen reports whether the server currently holds a live connection.
func (s *Server) IsOpen() bool {
	return s.conn != nil
}
