// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
)

// fakeServer is an in-memory address space shared by the sessions of a fakeDialer
type fakeServer struct {
	mu           sync.Mutex
	namespaces   []string
	pages        map[string][][]southbound.Reference
	attributes   map[string]model.DataValue
	values       map[string]model.Value
	writeStatus  map[string]model.StatusCode
	readCalls    []int
	writeCalls   []int
	monitorCalls []int
	dialErr      error
	readErr      error
	sessions     []*fakeSession
}

func newFakeServer(namespaces ...string) *fakeServer {
	return &fakeServer{
		namespaces:  namespaces,
		pages:       make(map[string][][]southbound.Reference),
		attributes:  make(map[string]model.DataValue),
		values:      make(map[string]model.Value),
		writeStatus: make(map[string]model.StatusCode),
	}
}

func attributeKey(nodeID string, attr southbound.AttributeID) string {
	return fmt.Sprintf("%s/%d", nodeID, attr)
}

func (s *fakeServer) setDialErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialErr = err
}

func (s *fakeServer) setValue(nodeID string, v model.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[nodeID] = v
}

func (s *fakeServer) setNamespaces(namespaces ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaces = namespaces
}

func (s *fakeServer) reads() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.readCalls...)
}

func (s *fakeServer) writes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.writeCalls...)
}

func (s *fakeServer) session(i int) *fakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.sessions) {
		return nil
	}
	return s.sessions[i]
}

func (s *fakeServer) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

type fakeDialer struct {
	server *fakeServer
}

func (d *fakeDialer) Dial(ctx context.Context) (southbound.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.server.mu.Lock()
	defer d.server.mu.Unlock()
	if d.server.dialErr != nil {
		return nil, d.server.dialErr
	}
	session := &fakeSession{
		server:    d.server,
		keepAlive: make(chan southbound.KeepAlive, 8),
	}
	d.server.sessions = append(d.server.sessions, session)
	return session, nil
}

type fakeSession struct {
	server    *fakeServer
	keepAlive chan southbound.KeepAlive

	mu      sync.Mutex
	closed  bool
	handler func(southbound.ItemNotification)
	items   []southbound.MonitoredItem
}

func (f *fakeSession) Namespaces(ctx context.Context) ([]string, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	return append([]string(nil), f.server.namespaces...), nil
}

func (f *fakeSession) Browse(ctx context.Context, nodeID string) (southbound.BrowseResult, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	return f.page(nodeID, 0), nil
}

func (f *fakeSession) BrowseNext(ctx context.Context, continuationPoint []byte) (southbound.BrowseResult, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	var nodeID string
	var index int
	if _, err := fmt.Sscanf(string(continuationPoint), "%d %s", &index, &nodeID); err != nil {
		return southbound.BrowseResult{}, err
	}
	return f.page(nodeID, index), nil
}

// page must be called with the server lock held
func (f *fakeSession) page(nodeID string, index int) southbound.BrowseResult {
	pages := f.server.pages[nodeID]
	if index >= len(pages) {
		return southbound.BrowseResult{}
	}
	result := southbound.BrowseResult{References: pages[index]}
	if index+1 < len(pages) {
		result.ContinuationPoint = []byte(fmt.Sprintf("%d %s", index+1, nodeID))
	}
	return result
}

func (f *fakeSession) Read(ctx context.Context, ids []southbound.ReadValueID) ([]model.DataValue, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	f.server.readCalls = append(f.server.readCalls, len(ids))
	if f.server.readErr != nil {
		return nil, f.server.readErr
	}
	values := make([]model.DataValue, len(ids))
	for i, id := range ids {
		if id.AttributeID != southbound.AttributeValue {
			if dv, ok := f.server.attributes[attributeKey(id.NodeID, id.AttributeID)]; ok {
				values[i] = dv
			} else {
				values[i] = model.DataValue{StatusCode: model.StatusBadNodeIDUnknown}
			}
			continue
		}
		v, ok := f.server.values[id.NodeID]
		if !ok {
			values[i] = model.DataValue{StatusCode: model.StatusBadNodeIDUnknown}
			continue
		}
		values[i] = model.DataValue{Value: v, StatusCode: model.StatusGood}
	}
	return values, nil
}

func (f *fakeSession) Write(ctx context.Context, values []southbound.WriteValue) ([]model.StatusCode, error) {
	f.server.mu.Lock()
	defer f.server.mu.Unlock()
	f.server.writeCalls = append(f.server.writeCalls, len(values))
	codes := make([]model.StatusCode, len(values))
	for i, wv := range values {
		if code, ok := f.server.writeStatus[wv.NodeID]; ok {
			codes[i] = code
			continue
		}
		f.server.values[wv.NodeID] = wv.Value
	}
	return codes, nil
}

func (f *fakeSession) Subscribe(ctx context.Context, params southbound.SubscriptionParams, handler func(southbound.ItemNotification)) (southbound.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.NewUnavailable("session closed")
	}
	f.handler = handler
	return &fakeSubscription{session: f}, nil
}

func (f *fakeSession) KeepAlive() <-chan southbound.KeepAlive {
	return f.keepAlive
}

func (f *fakeSession) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// publish delivers a data change for nodeID when it is monitored
func (f *fakeSession) publish(nodeID string, dv model.DataValue) bool {
	f.mu.Lock()
	handler := f.handler
	var handle uint32
	for _, item := range f.items {
		if item.NodeID == nodeID {
			handle = item.Handle
		}
	}
	f.mu.Unlock()
	if handler == nil || handle == 0 {
		return false
	}
	handler(southbound.ItemNotification{Handle: handle, Value: dv})
	return true
}

func (f *fakeSession) monitored() []southbound.MonitoredItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]southbound.MonitoredItem(nil), f.items...)
}

type fakeSubscription struct {
	session *fakeSession
}

func (s *fakeSubscription) Monitor(ctx context.Context, items []southbound.MonitoredItem) ([]model.StatusCode, error) {
	s.session.server.mu.Lock()
	s.session.server.monitorCalls = append(s.session.server.monitorCalls, len(items))
	s.session.server.mu.Unlock()

	s.session.mu.Lock()
	defer s.session.mu.Unlock()
	s.session.items = append(s.session.items, items...)
	return make([]model.StatusCode, len(items)), nil
}

func (s *fakeSubscription) Cancel(ctx context.Context) error {
	return nil
}
