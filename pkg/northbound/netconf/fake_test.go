// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package netconf

import (
	"context"
	"sort"
	"sync"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

const testNamespace = "urn:opcgw:test"

type fakeGateway struct {
	mu          sync.Mutex
	values      map[string]model.VariableValue
	writeStatus map[string]model.StatusCode
	written     map[string]model.Value
}

func newFakeGateway(values ...model.VariableValue) *fakeGateway {
	gw := &fakeGateway{
		values:      make(map[string]model.VariableValue),
		writeStatus: make(map[string]model.StatusCode),
		written:     make(map[string]model.Value),
	}
	for _, v := range values {
		gw.values[v.Name] = v
	}
	return gw
}

func (g *fakeGateway) ReadValueFromCache(ctx context.Context, names []string) []model.ReadResponse {
	g.mu.Lock()
	defer g.mu.Unlock()
	var responses []model.ReadResponse
	for _, name := range names {
		v, ok := g.values[name]
		if !ok {
			responses = append(responses, model.NewReadFailure(name, model.StatusBadNoEntryExists))
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

func (g *fakeGateway) WriteToOPCServer(ctx context.Context, names []string, values []model.Value) []model.WriteResponse {
	g.mu.Lock()
	defer g.mu.Unlock()
	var responses []model.WriteResponse
	for i, name := range names {
		if _, ok := g.values[name]; !ok {
			responses = append(responses, model.NewWriteResponse(name, values[i], model.StatusBadNoEntryExists))
			continue
		}
		code := g.writeStatus[name]
		if code.IsGood() {
			g.written[name] = values[i]
		}
		responses = append(responses, model.NewWriteResponse(name, values[i], code))
	}
	return responses
}

func (g *fakeGateway) Variables(ctx context.Context) ([]model.VariableValue, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	values := make([]model.VariableValue, 0, len(g.values))
	for _, v := range g.values {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	return values, nil
}

func (g *fakeGateway) Namespaces(ctx context.Context) ([]model.NamespaceRecord, error) {
	return []model.NamespaceRecord{
		{InternalIndex: 0, URI: "http://opcfoundation.org/UA/", CurrentServerIndex: 0},
		{InternalIndex: 1, URI: testNamespace, CurrentServerIndex: 2},
	}, nil
}

func (g *fakeGateway) Shutdown(reason string) {}

func (g *fakeGateway) writtenValue(name string) (model.Value, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.written[name]
	return v, ok
}

type fakeCloser struct {
	mu     sync.Mutex
	closed []string
}

func (c *fakeCloser) CloseSession(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID == "404" {
		return errors.NewNotFound("session %s does not exist", sessionID)
	}
	c.closed = append(c.closed, sessionID)
	return nil
}
