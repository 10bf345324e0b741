// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

const selectServerNodes = `SELECT n.name, n.identifier, n.internal_ns_index, n.class_type, n.system_type, n.refs,
	ns.current_server_index
	FROM nodes n JOIN namespaces ns ON ns.internal_index = n.internal_ns_index`

func (c *cache) InsertNode(ctx context.Context, node model.NodeRecord) (bool, error) {
	n, err := c.InsertNodes(ctx, []model.NodeRecord{node})
	return n == 1, err
}

func (c *cache) InsertNodes(ctx context.Context, nodes []model.NodeRecord) (int, error) {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	c.nodesMu.Lock()
	defer c.nodesMu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal("insert nodes: %v", err)
	}
	inserted := 0
	for _, node := range nodes {
		if !node.SystemType.Valid() {
			_ = tx.Rollback()
			return 0, errors.NewInvalid("node %s has no supported system type", node.Name)
		}
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM namespaces WHERE internal_index = ?`, node.InternalNamespaceIndex).Scan(&exists)
		if err != nil {
			_ = tx.Rollback()
			return 0, errors.NewInternal("insert node %s: %v", node.Name, err)
		}
		if exists == 0 {
			_ = tx.Rollback()
			return 0, errors.NewInvalid("node %s refers to namespace %d which is not in the cache",
				node.Name, node.InternalNamespaceIndex)
		}
		refs, err := json.Marshal(node.References)
		if err != nil {
			_ = tx.Rollback()
			return 0, errors.NewInvalid("node %s references: %v", node.Name, err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO nodes (name, identifier, internal_ns_index, class_type, system_type, refs)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			node.Name, node.Identifier, node.InternalNamespaceIndex, node.ClassType, node.SystemType.String(), string(refs))
		if err != nil {
			_ = tx.Rollback()
			return 0, errors.NewInternal("insert node %s: %v", node.Name, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			c.log.Debugf("Node %s already in the cache, skipped", node.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal("insert nodes: %v", err)
	}
	return inserted, nil
}

func (c *cache) GetNode(ctx context.Context, name string) (model.NodeRecord, error) {
	c.nodesMu.RLock()
	defer c.nodesMu.RUnlock()
	return c.getNode(ctx, name)
}

func (c *cache) getNode(ctx context.Context, name string) (model.NodeRecord, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT name, identifier, internal_ns_index, class_type, system_type, refs FROM nodes WHERE name = ?`, name)
	var (
		node       model.NodeRecord
		systemType string
		refs       string
	)
	err := row.Scan(&node.Name, &node.Identifier, &node.InternalNamespaceIndex, &node.ClassType, &systemType, &refs)
	if err == sql.ErrNoRows {
		return model.NodeRecord{}, errors.NewNotFound("node %s is not in the cache", name)
	} else if err != nil {
		return model.NodeRecord{}, errors.NewInternal("get node %s: %v", name, err)
	}
	if err := fillNode(&node, systemType, refs); err != nil {
		return model.NodeRecord{}, err
	}
	return node, nil
}

func (c *cache) GetServerNode(ctx context.Context, name string) (model.ServerNode, error) {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	c.nodesMu.RLock()
	defer c.nodesMu.RUnlock()

	rows, err := c.db.QueryContext(ctx, selectServerNodes+` WHERE n.name = ?`, name)
	if err != nil {
		return model.ServerNode{}, errors.NewInternal("get server node %s: %v", name, err)
	}
	nodes, err := scanServerNodes(rows)
	if err != nil {
		return model.ServerNode{}, err
	}
	if len(nodes) == 0 {
		return model.ServerNode{}, errors.NewNotFound("node %s is not in the cache", name)
	}
	if !nodes[0].Resolved() {
		return model.ServerNode{}, errors.NewNotFound("namespace of node %s is not available on the server", name)
	}
	return nodes[0], nil
}

func (c *cache) ListServerNodes(ctx context.Context) ([]model.ServerNode, error) {
	c.nsMu.RLock()
	defer c.nsMu.RUnlock()
	c.nodesMu.RLock()
	defer c.nodesMu.RUnlock()

	rows, err := c.db.QueryContext(ctx, selectServerNodes+` ORDER BY n.name`)
	if err != nil {
		return nil, errors.NewInternal("list server nodes: %v", err)
	}
	return scanServerNodes(rows)
}

func scanServerNodes(rows *sql.Rows) ([]model.ServerNode, error) {
	defer rows.Close()
	var nodes []model.ServerNode
	for rows.Next() {
		var (
			node        model.NodeRecord
			systemType  string
			refs        string
			serverIndex int
		)
		if err := rows.Scan(&node.Name, &node.Identifier, &node.InternalNamespaceIndex, &node.ClassType,
			&systemType, &refs, &serverIndex); err != nil {
			return nil, errors.NewInternal("scan node: %v", err)
		}
		if err := fillNode(&node, systemType, refs); err != nil {
			return nil, err
		}
		nodes = append(nodes, model.NewServerNode(node, serverIndex))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal("list nodes: %v", err)
	}
	return nodes, nil
}

func fillNode(node *model.NodeRecord, systemType string, refs string) error {
	st, err := model.ParseSystemType(systemType)
	if err != nil {
		return errors.NewInternal("node %s: %v", node.Name, err)
	}
	node.SystemType = st
	if err := json.Unmarshal([]byte(refs), &node.References); err != nil {
		return errors.NewInternal("node %s references: %v", node.Name, err)
	}
	return nil
}
