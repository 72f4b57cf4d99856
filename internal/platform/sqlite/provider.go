package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cars2u/pos/internal/platform/config"
)

const (
	driverName         = "sqlite"
	defaultPingTimeout = 5 * time.Second
)

// ErrProviderClosed is returned once Close has been called.
var ErrProviderClosed = errors.New("sqlite: provider is closed")

// Provider lazily opens a shared handle onto the local database file and
// applies the schema on first use. SQLite allows a single writer, so the
// pool is capped at one connection.
type Provider struct {
	cfg         config.DatabaseConfig
	pingTimeout time.Duration

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// ProviderOption customises the Provider behaviour.
type ProviderOption func(*Provider)

// WithPingTimeout overrides the timeout used when probing the database.
func WithPingTimeout(timeout time.Duration) ProviderOption {
	return func(p *Provider) {
		if timeout > 0 {
			p.pingTimeout = timeout
		}
	}
}

// NewProvider constructs a Provider using the supplied configuration.
func NewProvider(cfg config.DatabaseConfig, opts ...ProviderOption) *Provider {
	provider := &Provider{
		cfg:         cfg,
		pingTimeout: defaultPingTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider
}

// DB returns the lazily initialised database handle.
func (p *Provider) DB(ctx context.Context) (*sql.DB, error) {
	if ctx == nil {
		return nil, errors.New("sqlite: context is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if p.db != nil {
		return p.db, nil
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", p.cfg.Path)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, WrapError("open", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, WrapError("ping", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, WrapError("apply schema", err)
	}

	p.db = db
	return p.db, nil
}

// Close releases the database handle. Subsequent calls are no-ops.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return WrapError("close", err)
}
