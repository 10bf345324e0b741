// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"time"

	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
)

// chunks splits items into consecutive slices of at most size elements
func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}

func (c *opcController) Read(ctx context.Context, nodes []model.ServerNode) []model.ReadResponse {
	values := c.readValues(ctx, nodes)
	responses := make([]model.ReadResponse, len(nodes))
	for i, node := range nodes {
		dv := values[i]
		responses[i] = model.ReadResponse{
			Name:       node.Name,
			Success:    !dv.StatusCode.IsBad(),
			StatusCode: dv.StatusCode,
			SystemType: node.SystemType,
			Value:      dv.Value,
			Timestamp:  dv.SourceTimestamp,
		}
	}
	return responses
}

// readValues returns one value per node, in order. Nothing is sent to the
// server while the session is not connected.
func (c *opcController) readValues(ctx context.Context, nodes []model.ServerNode) []model.DataValue {
	values := make([]model.DataValue, len(nodes))
	now := time.Now()

	session, connected := c.current()
	if !connected {
		for i := range values {
			values[i] = model.DataValue{StatusCode: model.StatusBadNoCommunication, SourceTimestamp: now}
		}
		return values
	}

	var (
		ids       []southbound.ReadValueID
		positions []int
	)
	for i, node := range nodes {
		if !node.Resolved() {
			values[i] = model.DataValue{StatusCode: model.StatusBadNodeIDUnknown, SourceTimestamp: now}
			continue
		}
		ids = append(ids, southbound.ReadValueID{NodeID: node.ServerIdentifier, AttributeID: southbound.AttributeValue})
		positions = append(positions, i)
	}

	offset := 0
	for _, chunk := range chunks(ids, c.cfg.BatchSize) {
		c.metrics.batches.WithLabelValues("read").Inc()
		results, err := session.Read(ctx, chunk)
		if err != nil {
			c.log.Warnf("Read of %d variables failed: %v", len(chunk), err)
		}
		for i := range chunk {
			pos := positions[offset+i]
			if err != nil || i >= len(results) {
				values[pos] = model.DataValue{StatusCode: model.StatusBadCommunicationError, SourceTimestamp: now}
				continue
			}
			values[pos] = convertTo(results[i], nodes[pos].SystemType)
		}
		offset += len(chunk)
	}
	return values
}

// convertTo converts the value of dv to the node type; a value that cannot be
// converted is dropped and reported as a type mismatch
func convertTo(dv model.DataValue, st model.SystemType) model.DataValue {
	if dv.Value.IsNull() {
		return dv
	}
	converted, err := dv.Value.Convert(st)
	if err != nil {
		dv.Value = model.Null()
		dv.StatusCode = model.StatusBadTypeMismatch
		return dv
	}
	dv.Value = converted
	return dv
}

func (c *opcController) Write(ctx context.Context, nodes []model.ServerNode, values []model.Value) []model.WriteResponse {
	responses := make([]model.WriteResponse, len(nodes))

	session, connected := c.current()
	if !connected {
		for i, node := range nodes {
			responses[i] = model.NewWriteResponse(node.Name, valueAt(values, i), model.StatusBadNoCommunication)
		}
		return responses
	}

	var (
		writes    []southbound.WriteValue
		positions []int
	)
	for i, node := range nodes {
		value := valueAt(values, i)
		if !node.Resolved() {
			responses[i] = model.NewWriteResponse(node.Name, value, model.StatusBadNodeIDUnknown)
			continue
		}
		writes = append(writes, southbound.WriteValue{NodeID: node.ServerIdentifier, Value: value})
		positions = append(positions, i)
	}

	offset := 0
	for _, chunk := range chunks(writes, c.cfg.BatchSize) {
		c.metrics.batches.WithLabelValues("write").Inc()
		codes, err := session.Write(ctx, chunk)
		if err != nil {
			c.log.Warnf("Write of %d variables failed: %v", len(chunk), err)
		}
		for i := range chunk {
			pos := positions[offset+i]
			code := model.StatusBadCommunicationError
			if err == nil && i < len(codes) {
				code = codes[i]
			}
			responses[pos] = model.NewWriteResponse(nodes[pos].Name, chunk[i].Value, code)
		}
		offset += len(chunk)
	}
	return responses
}

func valueAt(values []model.Value, i int) model.Value {
	if i < len(values) {
		return values[i]
	}
	return model.Null()
}
