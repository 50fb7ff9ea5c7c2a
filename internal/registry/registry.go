// Package registry owns the ordered collection of configured compute
// servers: name uniqueness, user-controlled ordering, persistence through
// the preferences store, and the bootstrap fallback chain consulted when no
// persisted configuration exists.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openchem/compute-registry/internal/config"
	"github.com/openchem/compute-registry/internal/parser"
	"github.com/openchem/compute-registry/internal/prefs"
	"github.com/openchem/compute-registry/internal/server"
)

// LegacyConfigPattern matches legacy server configuration files inside the
// search directory. Subdirectories and other names are ignored.
const LegacyConfigPattern = "*.cfg"

// ErrServerNotFound is returned by Find when no active server has the
// requested name.
var ErrServerNotFound = errors.New("server not found")

// Registry is the owner and lifecycle manager of all Server entities. It is
// built once by the host's startup sequence and passed by handle to whatever
// needs it; state mutations expect a single logical thread of control and
// callers must serialize access for multi-threaded use.
type Registry struct {
	store     prefs.Store
	connector server.Connector
	defaults  config.ServerConfig

	active []*server.Server
	// pendingDestruction holds removed servers until Shutdown so in-flight
	// references stay valid for the rest of the session.
	pendingDestruction []*server.Server

	bootstrapped bool
	shutdown     bool
}

// Option is a functional option for configuring the Registry.
type Option func(*Registry)

// WithConnector sets the transport connector handed to new servers.
func WithConnector(c server.Connector) Option {
	return func(r *Registry) {
		r.connector = c
	}
}

// WithDefaultConfig overrides the hardcoded fallback entry appended when
// every other bootstrap source comes up empty.
func WithDefaultConfig(cfg config.ServerConfig) Option {
	return func(r *Registry) {
		r.defaults = cfg
	}
}

// New creates a registry backed by the given preferences store. The registry
// is empty until Bootstrap runs.
func New(store prefs.Store, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		connector: server.NewTCPConnector(),
		defaults:  config.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bootstrap populates the registry from the first source in the fallback
// chain that yields an entry: the preferences store, then legacy .cfg files
// in the configured search directory, then the hardcoded default. It runs at
// most once; later calls are no-ops.
//
// A failure loading the persisted list is returned as a non-fatal warning:
// the chain still runs to completion and the registry is guaranteed to hold
// at least one entry afterwards.
func (r *Registry) Bootstrap(ctx context.Context) error {
	if r.bootstrapped {
		return nil
	}
	r.bootstrapped = true

	warn := r.loadFromPreferences()

	if len(r.active) == 0 {
		r.loadFromSearchDirectory(ctx)
	}

	if len(r.active) == 0 {
		slog.Info("No configured servers found, adding default", "server", r.defaults.Name)
		r.active = append(r.active, server.New(r.defaults, r.connector))
	}

	if warn != nil {
		return fmt.Errorf("problem loading servers from preferences: %w", warn)
	}
	return nil
}

// loadFromPreferences appends one server per persisted record. The first
// record that cannot be reconstructed aborts the attempt; whatever was
// already appended stays.
func (r *Registry) loadFromPreferences() error {
	records, err := r.store.ServerConfigurationList()
	if err != nil {
		return err
	}
	for _, rec := range records {
		cfg, err := config.FromRecord(rec)
		if err != nil {
			return err
		}
		r.active = append(r.active, server.New(cfg, r.connector))
	}
	return nil
}

// loadFromSearchDirectory imports every parseable legacy file in the
// configured search directory, in directory listing order. Each import goes
// through AddServer, so uniqueness and persistence apply per file.
func (r *Registry) loadFromSearchDirectory(ctx context.Context) {
	dir := r.store.ServerDirectory()
	if dir == "" {
		return
	}
	slog.Debug("Searching for legacy server configurations", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Cannot read server search directory", "dir", dir, "error", err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(LegacyConfigPattern, entry.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		slog.Debug("Reading server configuration", "file", path)

		cfg, err := r.LoadFromFile(ctx, path)
		if err != nil {
			slog.Warn("Skipping legacy server configuration", "file", path, "error", err)
			continue
		}
		r.AddServer(cfg)
	}
}

// LoadFromFile extracts a server configuration from a legacy .cfg file by
// driving the parser through its start/wait lifecycle. Parser diagnostics
// are logged and are non-fatal unless no configuration block results.
func (r *Registry) LoadFromFile(ctx context.Context, path string) (config.ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Cannot open server configuration file", "file", path, "error", err)
		return config.ServerConfig{}, fmt.Errorf("cannot open %s: %w", path, err)
	}
	_ = f.Close()

	p := parser.New(path)
	p.Start()
	if err := p.Wait(ctx); err != nil {
		return config.ServerConfig{}, fmt.Errorf("parse of %s interrupted: %w", path, err)
	}

	if diags := p.Errors(); len(diags) > 0 {
		slog.Warn("Parser diagnostics", "file", path, "diagnostics", strings.Join(diags, "\n"))
	}

	blocks := p.ConfigBlocks()
	if len(blocks) == 0 {
		return config.ServerConfig{}, fmt.Errorf("no server configuration block in %s", path)
	}
	return config.FromYAMLNode(blocks[0])
}

// AvailableServers returns the names of all active servers in display order.
func (r *Registry) AvailableServers() []string {
	names := make([]string, 0, len(r.active))
	for _, s := range r.active {
		names = append(names, s.Name())
	}
	return names
}

// Find returns the active server with the given name, or ErrServerNotFound.
func (r *Registry) Find(name string) (*server.Server, error) {
	if idx := r.IndexOf(name); idx >= 0 {
		return r.active[idx], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrServerNotFound, name)
}

// IndexOf returns the position of the named server in the active sequence,
// or -1 if absent.
func (r *Registry) IndexOf(name string) int {
	for i, s := range r.active {
		if s.Name() == name {
			return i
		}
	}
	return -1
}

// AddServer registers a server for the given configuration and persists the
// collection. A display name already in use gets a _1, _2, ... suffix until
// it is unique; the resolved name is written back into the configuration, so
// adding never fails with a collision.
func (r *Registry) AddServer(cfg config.ServerConfig) *server.Server {
	name := cfg.Name
	for count := 1; r.IndexOf(name) >= 0; count++ {
		name = fmt.Sprintf("%s_%d", cfg.Name, count)
	}
	cfg.Name = name

	s := server.New(cfg, r.connector)
	r.active = append(r.active, s)
	r.saveToPreferences()
	return s
}

// Remove moves the named server out of the active sequence and into the
// deferred destruction set, then persists. Unknown names persist and return.
func (r *Registry) Remove(name string) {
	r.removeAt(r.IndexOf(name))
}

// RemoveServer is Remove by identity rather than by name.
func (r *Registry) RemoveServer(s *server.Server) {
	idx := -1
	for i, candidate := range r.active {
		if candidate == s {
			idx = i
			break
		}
	}
	r.removeAt(idx)
}

func (r *Registry) removeAt(idx int) {
	if idx >= 0 {
		s := r.active[idx]
		r.active = append(r.active[:idx], r.active[idx+1:]...)
		r.pendingDestruction = append(r.pendingDestruction, s)
	}
	r.saveToPreferences()
}

// MoveUp swaps the named server with its predecessor. The first entry stays
// where it is.
func (r *Registry) MoveUp(name string) {
	idx := r.IndexOf(name)
	if idx > 0 {
		r.active[idx], r.active[idx-1] = r.active[idx-1], r.active[idx]
	}
	r.saveToPreferences()
}

// MoveDown swaps the named server with its successor. The last entry stays
// where it is.
func (r *Registry) MoveDown(name string) {
	idx := r.IndexOf(name)
	if idx >= 0 && idx < len(r.active)-1 {
		r.active[idx], r.active[idx+1] = r.active[idx+1], r.active[idx]
	}
	r.saveToPreferences()
}

// ConnectServers opens a connection to each named server that exists.
// Unknown names are skipped; a failed open is logged and does not stop the
// batch.
func (r *Registry) ConnectServers(ctx context.Context, names []string) {
	for _, name := range names {
		s, err := r.Find(name)
		if err != nil {
			continue
		}
		if err := s.Open(ctx); err != nil {
			slog.Warn("Failed to open server connection", "server", name, "error", err)
		}
	}
}

// CloseAllConnections closes every active server's connection in order. The
// servers themselves stay registered.
func (r *Registry) CloseAllConnections() {
	for _, s := range r.active {
		s.CloseConnection()
	}
}

// SaveToPreferences serializes the active sequence, in order, into the
// preferences store, replacing the previous value in full.
func (r *Registry) SaveToPreferences() error {
	records := make([]config.Record, 0, len(r.active))
	for _, s := range r.active {
		records = append(records, s.Configuration().ToRecord())
	}
	if err := r.store.SetServerConfigurationList(records); err != nil {
		return fmt.Errorf("failed to persist server list: %w", err)
	}
	return nil
}

// saveToPreferences is the persist step every mutation ends with. Failures
// have no caller-visible path from the mutators, so they are logged here.
func (r *Registry) saveToPreferences() {
	if err := r.SaveToPreferences(); err != nil {
		slog.Error("Failed to save server list", "error", err)
	}
}

// Shutdown closes and releases every owned server, both active and pending
// destruction, exactly once. The host invokes it during its own teardown;
// the registry is unusable afterwards.
func (r *Registry) Shutdown() {
	if r.shutdown {
		return
	}
	r.shutdown = true

	for _, s := range r.active {
		s.CloseConnection()
	}
	for _, s := range r.pendingDestruction {
		s.CloseConnection()
	}
	r.active = nil
	r.pendingDestruction = nil
}

// PendingDestruction returns the servers removed this session but not yet
// released. Exposed for the host's diagnostics; lookups never return these.
func (r *Registry) PendingDestruction() []*server.Server {
	return r.pendingDestruction
}
