// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

func (c *cache) UpdateValue(ctx context.Context, name string, value model.Value, timestamp time.Time, status model.StatusCode) {
	if err := c.updateValue(ctx, name, value, timestamp, status); err != nil {
		c.log.Warnf("Value of %s not updated: %v", name, err)
	}
}

func (c *cache) updateValue(ctx context.Context, name string, value model.Value, timestamp time.Time, status model.StatusCode) error {
	c.nodesMu.RLock()
	defer c.nodesMu.RUnlock()
	c.valuesMu.Lock()
	defer c.valuesMu.Unlock()

	var (
		systemType string
		previous   sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT system_type, value FROM latest_values WHERE name = ?`, name).Scan(&systemType, &previous)
	if err == sql.ErrNoRows {
		node, err := c.getNode(ctx, name)
		if err != nil {
			return err
		}
		systemType = node.SystemType.String()
	} else if err != nil {
		return errors.NewInternal("read value %s: %v", name, err)
	}

	st, err := model.ParseSystemType(systemType)
	if err != nil {
		return errors.NewInternal("value %s: %v", name, err)
	}

	stored := previous
	if !value.IsNull() {
		converted, err := value.Convert(st)
		if err != nil {
			return err
		}
		text, err := converted.MarshalText()
		if err != nil {
			return err
		}
		stored = sql.NullString{String: string(text), Valid: true}
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO latest_values (name, system_type, value, timestamp, status_code) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp,
		 status_code = excluded.status_code`,
		name, systemType, stored, toUnixNano(timestamp), int64(status))
	if err != nil {
		return errors.NewInternal("update value %s: %v", name, err)
	}

	if c.historyLength > 0 {
		return c.bufferValue(ctx, name, systemType, stored, timestamp, status)
	}
	return nil
}

func (c *cache) bufferValue(ctx context.Context, name string, systemType string, value sql.NullString,
	timestamp time.Time, status model.StatusCode) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO buffer_values (name, system_type, value, timestamp, status_code) VALUES (?, ?, ?, ?, ?)`,
		name, systemType, value, toUnixNano(timestamp), int64(status))
	if err != nil {
		return errors.NewInternal("buffer value %s: %v", name, err)
	}
	_, err = c.db.ExecContext(ctx,
		`DELETE FROM buffer_values WHERE name = ? AND id NOT IN
		 (SELECT id FROM buffer_values WHERE name = ? ORDER BY id DESC LIMIT ?)`,
		name, name, c.historyLength)
	if err != nil {
		return errors.NewInternal("trim buffered values %s: %v", name, err)
	}
	return nil
}

func (c *cache) ReadValues(ctx context.Context, names []string) []model.ReadResponse {
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	responses := make([]model.ReadResponse, 0, len(names))
	for _, name := range names {
		row := c.db.QueryRowContext(ctx,
			`SELECT name, system_type, value, timestamp, status_code FROM latest_values WHERE name = ?`, name)
		v, err := scanValue(row)
		if errors.IsNotFound(err) {
			responses = append(responses, model.NewReadFailure(name, model.StatusBadNoEntryExists))
			continue
		} else if err != nil {
			c.log.Warnf("Read of %s failed: %v", name, err)
			responses = append(responses, model.NewReadFailure(name, model.StatusBadInternalError))
			continue
		}
		responses = append(responses, model.ReadResponse{
			Name:       name,
			Success:    !v.StatusCode.IsBad(),
			StatusCode: v.StatusCode,
			SystemType: v.SystemType,
			Value:      v.Value,
			Timestamp:  v.Timestamp,
		})
	}
	return responses
}

func (c *cache) Values(ctx context.Context) ([]model.VariableValue, error) {
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT name, system_type, value, timestamp, status_code FROM latest_values ORDER BY name`)
	if err != nil {
		return nil, errors.NewInternal("list values: %v", err)
	}
	return scanValues(rows)
}

func (c *cache) History(ctx context.Context, name string, limit int) ([]model.VariableValue, error) {
	c.valuesMu.RLock()
	defer c.valuesMu.RUnlock()

	if limit <= 0 {
		limit = c.historyLength
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, system_type, value, timestamp, status_code FROM buffer_values
		 WHERE name = ? ORDER BY id DESC LIMIT ?`, name, limit)
	if err != nil {
		return nil, errors.NewInternal("history of %s: %v", name, err)
	}
	return scanValues(rows)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanValue(row scanner) (model.VariableValue, error) {
	var (
		v          model.VariableValue
		systemType string
		text       sql.NullString
		timestamp  int64
		status     int64
	)
	err := row.Scan(&v.Name, &systemType, &text, &timestamp, &status)
	if err == sql.ErrNoRows {
		return v, errors.NewNotFound("no value")
	} else if err != nil {
		return v, errors.NewInternal("scan value: %v", err)
	}
	st, err := model.ParseSystemType(systemType)
	if err != nil {
		return v, errors.NewInternal("value %s: %v", v.Name, err)
	}
	v.SystemType = st
	v.Timestamp = fromUnixNano(timestamp)
	v.StatusCode = model.StatusCode(status)
	if text.Valid {
		value, err := model.ParseValue(st, text.String)
		if err != nil {
			return v, errors.NewInternal("value %s: %v", v.Name, err)
		}
		v.Value = value
	}
	return v, nil
}

func scanValues(rows *sql.Rows) ([]model.VariableValue, error) {
	defer rows.Close()
	var values []model.VariableValue
	for rows.Next() {
		v, err := scanValue(rows)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal("list values: %v", err)
	}
	return values, nil
}
