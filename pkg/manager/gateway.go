// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

func (m *Manager) ReadValueFromCache(ctx context.Context, names []string) []model.ReadResponse {
	return m.cache.ReadValues(ctx, names)
}

func (m *Manager) Variables(ctx context.Context) ([]model.VariableValue, error) {
	return m.cache.Values(ctx)
}

func (m *Manager) Namespaces(ctx context.Context) ([]model.NamespaceRecord, error) {
	return m.cache.Namespaces(ctx)
}

// WriteToOPCServer resolves and converts each value on its own, so a bad
// name or value only fails its own response. Values written successfully are
// in the cache when this returns.
func (m *Manager) WriteToOPCServer(ctx context.Context, names []string, values []model.Value) []model.WriteResponse {
	responses := make([]model.WriteResponse, 0, len(names))
	var (
		nodes     []model.ServerNode
		converted []model.Value
	)
	for i, name := range names {
		var value model.Value
		if i < len(values) {
			value = values[i]
		}
		node, err := m.resolve(ctx, name)
		if err != nil {
			m.log.Debugf("Write of %s rejected: %v", name, err)
			responses = append(responses, model.NewWriteResponse(name, value, model.StatusBadNoEntryExists))
			continue
		}
		v, err := value.Convert(node.SystemType)
		if err == nil && v.IsNull() {
			err = errors.NewInvalid("no value to write")
		}
		if err != nil {
			m.log.Debugf("Write of %s rejected: %v", name, err)
			responses = append(responses, model.NewWriteResponse(name, value, model.StatusBadTypeMismatch))
			continue
		}
		nodes = append(nodes, node)
		converted = append(converted, v)
	}
	if len(nodes) == 0 {
		return responses
	}

	written := m.controller.Write(ctx, nodes, converted)
	now := time.Now()
	for _, resp := range written {
		if resp.Success {
			m.cache.UpdateValue(ctx, resp.Name, resp.Value, now, resp.StatusCode)
		}
	}
	return append(responses, written...)
}

// resolve returns the server node of name; a node whose namespace is missing
// from the session stays unresolved and is rejected by the session
func (m *Manager) resolve(ctx context.Context, name string) (model.ServerNode, error) {
	node, err := m.cache.GetServerNode(ctx, name)
	if err == nil {
		return node, nil
	}
	if !errors.IsNotFound(err) {
		return model.ServerNode{}, err
	}
	record, err := m.cache.GetNode(ctx, name)
	if err != nil {
		return model.ServerNode{}, err
	}
	return model.NewServerNode(record, model.NamespaceNotFound), nil
}
