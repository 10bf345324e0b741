// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package cache is the embedded store of discovered nodes, namespaces and
// variable values.
package cache

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/model"

	// sqlite driver
	_ "modernc.org/sqlite"
)

const inMemoryDSN = ":memory:"

// Config is the storage configuration of the cache
type Config struct {
	IsInMemory    bool   `mapstructure:"isInMemory"`
	Filename      string `mapstructure:"filename"`
	Overwrite     bool   `mapstructure:"overwrite"`
	HistoryLength int    `mapstructure:"historyLength"`
}

// Cache is the single source of truth about the variables of the server
type Cache interface {
	// InsertNamespacesIfAbsent adds the namespace URIs not yet known, in order
	InsertNamespacesIfAbsent(ctx context.Context, uris []string) error

	// InternalIndex returns the stable index of a namespace URI
	InternalIndex(ctx context.Context, uri string) (int, error)

	// Namespaces lists the namespace records ordered by internal index
	Namespaces(ctx context.Context) ([]model.NamespaceRecord, error)

	// ResolveServerIndices maps every namespace to its index in the session
	// namespace table and returns the URIs the session does not know
	ResolveServerIndices(ctx context.Context, sessionURIs []string) ([]string, error)

	// InsertNode inserts a node unless one with the same name exists
	InsertNode(ctx context.Context, node model.NodeRecord) (bool, error)

	// InsertNodes inserts the nodes whose names are not taken and returns how many were inserted
	InsertNodes(ctx context.Context, nodes []model.NodeRecord) (int, error)

	// GetNode returns the node record of name
	GetNode(ctx context.Context, name string) (model.NodeRecord, error)

	// GetServerNode resolves name against the current session namespaces
	GetServerNode(ctx context.Context, name string) (model.ServerNode, error)

	// ListServerNodes resolves every node against the current session namespaces
	ListServerNodes(ctx context.Context) ([]model.ServerNode, error)

	// UpdateValue stores the latest value of name; failures are logged
	UpdateValue(ctx context.Context, name string, value model.Value, timestamp time.Time, status model.StatusCode)

	// ReadValues returns one response per name, in order
	ReadValues(ctx context.Context, names []string) []model.ReadResponse

	// Values lists the latest value of every variable seen so far
	Values(ctx context.Context) ([]model.VariableValue, error)

	// History returns up to limit buffered updates of name, newest first
	History(ctx context.Context, name string, limit int) ([]model.VariableValue, error)

	// Reset drops every record
	Reset(ctx context.Context) error

	// Close releases the storage
	Close() error
}

// New opens the storage described by cfg and creates the schema
func New(cfg Config, log logging.Logger) (Cache, error) {
	dsn := inMemoryDSN
	if !cfg.IsInMemory {
		if cfg.Filename == "" {
			return nil, errors.NewInvalid("nodesDatabase.filename is required when isInMemory is false")
		}
		if cfg.Overwrite {
			if err := os.Remove(cfg.Filename); err != nil && !os.IsNotExist(err) {
				return nil, errors.NewInternal("cannot remove %s: %v", cfg.Filename, err)
			}
			log.Infof("Removed previous cache file %s", cfg.Filename)
		}
		dsn = cfg.Filename
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.NewInternal("open sqlite %s: %v", dsn, err)
	}
	// an in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.NewInternal("create cache schema: %v", err)
		}
	}
	log.Infof("Variable cache opened on %s", dsn)
	return &cache{
		db:            db,
		log:           log,
		historyLength: cfg.HistoryLength,
	}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS namespaces (
		internal_index INTEGER PRIMARY KEY,
		uri TEXT NOT NULL UNIQUE,
		current_server_index INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS nodes (
		name TEXT PRIMARY KEY,
		identifier TEXT NOT NULL,
		internal_ns_index INTEGER NOT NULL,
		class_type TEXT NOT NULL,
		system_type TEXT NOT NULL,
		refs TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS latest_values (
		name TEXT PRIMARY KEY,
		system_type TEXT NOT NULL,
		value TEXT,
		timestamp INTEGER NOT NULL,
		status_code INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buffer_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		system_type TEXT NOT NULL,
		value TEXT,
		timestamp INTEGER NOT NULL,
		status_code INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS buffer_values_name ON buffer_values (name, id)`,
}

// cache guards each table family with its own lock. When more than one is
// needed they are taken in the order namespaces, nodes, values.
type cache struct {
	db            *sql.DB
	log           logging.Logger
	historyLength int

	nsMu     sync.RWMutex
	nodesMu  sync.RWMutex
	valuesMu sync.RWMutex

	closeOnce sync.Once
}

func (c *cache) Reset(ctx context.Context) error {
	c.nsMu.Lock()
	defer c.nsMu.Unlock()
	c.nodesMu.Lock()
	defer c.nodesMu.Unlock()
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal("reset cache: %v", err)
	}
	for _, table := range []string{"buffer_values", "latest_values", "nodes", "namespaces"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return errors.NewInternal("reset %s: %v", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal("reset cache: %v", err)
	}
	c.log.Info("Variable cache reset")
	return nil
}

func (c *cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.db.Close()
		c.log.Info("Variable cache closed")
	})
	return err
}

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

var _ Cache = &cache{}
