package transport

import (
	"log/slog"
	"sync"

	"github.com/melih/dokken/internal/core/domain"
	"github.com/melih/dokken/internal/core/helpers"
	"github.com/melih/dokken/internal/core/ports"
)

// Manager decides whether a connection can be reused or must be rebuilt.
type Manager struct {
	cfg       Config
	newClient ports.ClientFactory
	transfer  ports.FileTransfer
	helpers   *helpers.Helpers
	logger    *slog.Logger

	mu      sync.Mutex
	conn    *Connection              // Nil while disconnected.
	options domain.ConnectionOptions // Options conn was built with.
}

// NewManager creates a disconnected manager. A nil helpers uses the embedded
// key and a nil logger uses slog.Default().
func NewManager(cfg Config, newClient ports.ClientFactory, transfer ports.FileTransfer, h *helpers.Helpers, logger *slog.Logger) *Manager {
	if h == nil {
		h = helpers.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		newClient: newClient,
		transfer:  transfer,
		helpers:   h,
		logger:    logger,
	}
}

// Connection returns the connection for state, reusing the cached one when
// the resolved options are unchanged and it has not been closed. When fn is non-nil it runs on the
// connection and its error is returned.
//
// The manager stays locked while fn runs, so fn must not call back into it.
func (m *Manager) Connection(state domain.State, fn func(*Connection) error) (*Connection, error) {
	options, err := ResolveOptions(m.cfg, state)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var conn *Connection
	if m.conn != nil && !m.conn.isClosed() && m.options.Equal(options) {
		m.logger.Debug("reusing existing connection", "instance", options.InstanceName)
		conn = m.conn
	} else {
		conn = m.createConnection(options)
	}

	if fn != nil {
		if err := fn(conn); err != nil {
			return conn, err
		}
	}
	return conn, nil
}

// Closes the live connection, if any, and caches a new one. Callers hold mu.
func (m *Manager) createConnection(options domain.ConnectionOptions) *Connection {
	if m.conn != nil {
		m.logger.Debug("shutting previous connection", "instance", m.options.InstanceName)
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("failed to close previous connection", "instance", m.options.InstanceName, "error", err)
		}
	}

	m.options = options
	m.conn = newConnection(options, m)
	return m.conn
}

// Close tears down the live connection and returns to the disconnected state.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.options = domain.ConnectionOptions{}
	return err
}
