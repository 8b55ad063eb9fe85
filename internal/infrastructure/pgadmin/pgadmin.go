// Package pgadmin runs the few statements the gateway must issue directly
// against Odoo's PostgreSQL cluster: terminating sessions before a database
// copy and writing API key rows Odoo does not expose over RPC.
package pgadmin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/safee-analytics/odoo/internal/infrastructure/config"
)

// Opener opens a connection pool for a database name
type Opener func(dbName string) (*sql.DB, error)

// Admin holds one small pool per Odoo database it touched
type Admin struct {
	cfg         config.DatabaseConfig
	open        Opener
	logger      *zap.Logger
	mu          sync.Mutex
	connections map[string]*sql.DB
}

// Option configures an Admin
type Option func(*Admin)

// WithOpener replaces the lib/pq opener, used by tests
func WithOpener(open Opener) Option {
	return func(a *Admin) {
		a.open = open
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *Admin) {
		a.logger = logger
	}
}

// New creates an Admin for the cluster described by cfg. cfg.DBName is the
// maintenance database used for cluster-wide statements.
func New(cfg config.DatabaseConfig, opts ...Option) *Admin {
	a := &Admin{
		cfg:         cfg,
		logger:      zap.NewNop(),
		connections: make(map[string]*sql.DB),
	}
	a.open = func(dbName string) (*sql.DB, error) {
		db, err := sql.Open("postgres", a.cfg.DSNFor(dbName))
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(2)
		db.SetMaxIdleConns(1)
		return db, nil
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Admin) conn(dbName string) (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if db, ok := a.connections[dbName]; ok {
		return db, nil
	}
	db, err := a.open(dbName)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dbName, err)
	}
	a.connections[dbName] = db
	return db, nil
}

// forget closes and drops the pool of a database, required before Odoo can
// use it as a template.
func (a *Admin) forget(dbName string) {
	a.mu.Lock()
	db, ok := a.connections[dbName]
	delete(a.connections, dbName)
	a.mu.Unlock()
	if ok {
		_ = db.Close()
	}
}

const terminateBackendsQuery = `SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE datname = $1 AND pid <> pg_backend_pid()`

// TerminateBackends kills every session connected to dbName and returns how
// many were signalled. It runs from the maintenance database so the gateway
// holds no session on dbName afterwards.
func (a *Admin) TerminateBackends(ctx context.Context, dbName string) (int, error) {
	a.forget(dbName)

	db, err := a.conn(a.cfg.DBName)
	if err != nil {
		return 0, err
	}
	rows, err := db.QueryContext(ctx, terminateBackendsQuery, dbName)
	if err != nil {
		return 0, fmt.Errorf("failed to terminate backends of %s: %w", dbName, err)
	}
	defer rows.Close()

	terminated := 0
	for rows.Next() {
		terminated++
	}
	if err := rows.Err(); err != nil {
		return terminated, err
	}

	a.logger.Info("Terminated database connections",
		zap.String("db", dbName),
		zap.Int("terminated", terminated),
	)
	return terminated, nil
}

// APIKeyRow is a row of Odoo's res_users_apikeys table
type APIKeyRow struct {
	Name   string
	UserID int
	Scope  string
	Index  string
	Hash   string
}

const insertAPIKeyQuery = `INSERT INTO res_users_apikeys (name, user_id, scope, index, key)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`

// InsertAPIKey stores a hashed key in dbName and returns the Odoo row id
func (a *Admin) InsertAPIKey(ctx context.Context, dbName string, row APIKeyRow) (int, error) {
	db, err := a.conn(dbName)
	if err != nil {
		return 0, err
	}
	var id int
	err = db.QueryRowContext(ctx, insertAPIKeyQuery, row.Name, row.UserID, row.Scope, row.Index, row.Hash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert API key: %w", err)
	}
	return id, nil
}

// ErrAPIKeyNotFound is returned when the Odoo row is already gone
var ErrAPIKeyNotFound = errors.New("api key not found in odoo")

// DeleteAPIKey removes a key row from dbName
func (a *Admin) DeleteAPIKey(ctx context.Context, dbName string, id int) error {
	db, err := a.conn(dbName)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM res_users_apikeys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// Ping checks the maintenance connection
func (a *Admin) Ping(ctx context.Context) error {
	db, err := a.conn(a.cfg.DBName)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Close closes every pool
func (a *Admin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	for name, db := range a.connections {
		errs = append(errs, db.Close())
		delete(a.connections, name)
	}
	return errors.Join(errs...)
}
