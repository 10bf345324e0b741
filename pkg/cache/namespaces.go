// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"database/sql"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

func (c *cache) InsertNamespacesIfAbsent(ctx context.Context, uris []string) error {
	c.nsMu.Lock()
	defer c.nsMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal("insert namespaces: %v", err)
	}
	for position, uri := range uris {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO namespaces (internal_index, uri, current_server_index)
			 VALUES ((SELECT COALESCE(MAX(internal_index) + 1, 0) FROM namespaces), ?, ?)`,
			uri, position)
		if err != nil {
			_ = tx.Rollback()
			return errors.NewInternal("insert namespace %s: %v", uri, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal("insert namespaces: %v", err)
	}
	return nil
}

func (c *cache) InternalIndex(ctx context.Context, uri string) (int, error) {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()

	var index int
	err := c.db.QueryRowContext(ctx, `SELECT internal_index FROM namespaces WHERE uri = ?`, uri).Scan(&index)
	if err == sql.ErrNoRows {
		return 0, errors.NewNotFound("namespace %s is not in the cache", uri)
	} else if err != nil {
		return 0, errors.NewInternal("lookup namespace %s: %v", uri, err)
	}
	return index, nil
}

func (c *cache) Namespaces(ctx context.Context) ([]model.NamespaceRecord, error) {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	return c.namespaces(ctx)
}

func (c *cache) namespaces(ctx context.Context) ([]model.NamespaceRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT internal_index, uri, current_server_index FROM namespaces ORDER BY internal_index`)
	if err != nil {
		return nil, errors.NewInternal("list namespaces: %v", err)
	}
	defer rows.Close()

	var records []model.NamespaceRecord
	for rows.Next() {
		var r model.NamespaceRecord
		if err := rows.Scan(&r.InternalIndex, &r.URI, &r.CurrentServerIndex); err != nil {
			return nil, errors.NewInternal("scan namespace: %v", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal("list namespaces: %v", err)
	}
	return records, nil
}

func (c *cache) ResolveServerIndices(ctx context.Context, sessionURIs []string) ([]string, error) {
	c.nsMu.Lock()
	defer c.nsMu.Unlock()

	records, err := c.namespaces(ctx)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]int, len(sessionURIs))
	for i, uri := range sessionURIs {
		if _, ok := positions[uri]; !ok {
			positions[uri] = i
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal("resolve namespaces: %v", err)
	}
	var unresolved []string
	for _, r := range records {
		index, ok := positions[r.URI]
		if !ok {
			index = model.NamespaceNotFound
			unresolved = append(unresolved, r.URI)
			c.log.Warnf("Namespace %s not found on the server, available namespaces: %v", r.URI, sessionURIs)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE namespaces SET current_server_index = ? WHERE internal_index = ?`,
			index, r.InternalIndex); err != nil {
			_ = tx.Rollback()
			return nil, errors.NewInternal("resolve namespace %s: %v", r.URI, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal("resolve namespaces: %v", err)
	}
	return unresolved, nil
}
