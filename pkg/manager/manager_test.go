// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/cache"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/controller"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uaNamespace     = "http://opcfoundation.org/UA/"
	testNamespace   = "urn:opcgw:test"
	hiddenNamespace = "urn:opcgw:hidden"
	waitFor         = 2 * time.Second
	tick            = 5 * time.Millisecond
)

// fakeController answers writes from a status table and lets tests emit
// notifications
type fakeController struct {
	mu          sync.Mutex
	notify      controller.NotifyFunc
	written     []model.ServerNode
	writeStatus map[string]model.StatusCode
	closed      bool
}

func (f *fakeController) Connect(ctx context.Context) error  { return nil }
func (f *fakeController) Discover(ctx context.Context) error { return nil }

func (f *fakeController) Subscribe(ctx context.Context, notify controller.NotifyFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notify = notify
	return nil
}

func (f *fakeController) Read(ctx context.Context, nodes []model.ServerNode) []model.ReadResponse {
	responses := make([]model.ReadResponse, len(nodes))
	for i, node := range nodes {
		responses[i] = model.NewReadFailure(node.Name, model.StatusBadNoCommunication)
	}
	return responses
}

func (f *fakeController) Write(ctx context.Context, nodes []model.ServerNode, values []model.Value) []model.WriteResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, nodes...)
	responses := make([]model.WriteResponse, len(nodes))
	for i, node := range nodes {
		code := f.writeStatus[node.Name]
		if !node.Resolved() {
			code = model.StatusBadNodeIDUnknown
		}
		responses[i] = model.NewWriteResponse(node.Name, values[i], code)
	}
	return responses
}

func (f *fakeController) State() controller.ConnectionState { return controller.Connected }
func (f *fakeController) DefunctCount() int                 { return 0 }

func (f *fakeController) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeController) emit(n model.Notification) {
	f.mu.Lock()
	notify := f.notify
	f.mu.Unlock()
	notify(n)
}

func (f *fakeController) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func testNode(name string, namespace int, st model.SystemType) model.NodeRecord {
	return model.NodeRecord{
		Name:                   name,
		Identifier:             "s=" + name,
		InternalNamespaceIndex: namespace,
		ClassType:              "Variable",
		SystemType:             st,
	}
}

func newTestManager(t *testing.T, cfg config.Config, mailboxSize int) (*Manager, *fakeController) {
	t.Helper()
	ctx := context.Background()
	c, err := cache.New(cache.Config{IsInMemory: true}, logging.GetLogger("opcgw", "cache", "test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.InsertNamespacesIfAbsent(ctx, []string{uaNamespace, testNamespace, hiddenNamespace}))
	_, err = c.InsertNodes(ctx, []model.NodeRecord{
		testNode("Temp", 1, model.TypeDouble),
		testNode("Count", 1, model.TypeInt32),
		testNode("Hidden", 2, model.TypeDouble),
	})
	require.NoError(t, err)
	_, err = c.ResolveServerIndices(ctx, []string{uaNamespace, testNamespace})
	require.NoError(t, err)

	ctrl := &fakeController{writeStatus: make(map[string]model.StatusCode)}
	log := logging.GetLogger("opcgw", "manager", "test")
	return &Manager{
		cfg:        cfg,
		log:        log,
		cache:      c,
		controller: ctrl,
		dispatcher: newDispatcher(c, cfg.OPCSystemName, mailboxSize, log, prometheus.NewRegistry()),
	}, ctrl
}

func expectName(c *MockConnector, name string) {
	c.EXPECT().Name().Return(name).AnyTimes()
}

func TestNewManagerInvalidSelector(t *testing.T) {
	cfg := config.Default()
	cfg.NodesLoader.TargetIdentifier = "Description"
	_, err := NewManager(cfg)
	assert.True(t, errors.IsInvalid(err))
}

func TestWriteToOPCServerMixedBatch(t *testing.T) {
	ctx := context.Background()
	m, ctrl := newTestManager(t, config.Default(), 0)
	ctrl.writeStatus["Temp"] = model.StatusGood

	names := []string{"Temp", "Missing", "Count", "Hidden"}
	values := []model.Value{model.NewString("21.5"), model.NewDouble(1), model.NewString("abc"), model.NewDouble(2)}
	responses := m.WriteToOPCServer(ctx, names, values)
	require.Len(t, responses, len(names))

	byName := make(map[string]model.WriteResponse)
	for _, resp := range responses {
		_, dup := byName[resp.Name]
		assert.False(t, dup, resp.Name)
		byName[resp.Name] = resp
	}
	assert.True(t, byName["Temp"].Success)
	assert.Equal(t, model.StatusBadNoEntryExists, byName["Missing"].StatusCode)
	assert.Equal(t, model.StatusBadTypeMismatch, byName["Count"].StatusCode)
	assert.Equal(t, model.StatusBadNodeIDUnknown, byName["Hidden"].StatusCode)

	require.Len(t, ctrl.written, 2)
	assert.Equal(t, "Temp", ctrl.written[0].Name)
	assert.Equal(t, "Hidden", ctrl.written[1].Name)

	read := m.ReadValueFromCache(ctx, []string{"Temp", "Hidden"})
	require.Len(t, read, 2)
	assert.True(t, read[0].Success)
	assert.Equal(t, model.NewDouble(21.5), read[0].Value)
	assert.Equal(t, model.StatusBadNoEntryExists, read[1].StatusCode)
}

func TestWriteToOPCServerNothingResolved(t *testing.T) {
	m, ctrl := newTestManager(t, config.Default(), 0)
	responses := m.WriteToOPCServer(context.Background(), []string{"Missing"}, nil)
	require.Len(t, responses, 1)
	assert.Equal(t, model.StatusBadNoEntryExists, responses[0].StatusCode)
	assert.Empty(t, ctrl.written)
}

func TestDispatchUpdatesCacheFirst(t *testing.T) {
	mock := gomock.NewController(t)
	m, _ := newTestManager(t, config.Default(), 0)
	connector := NewMockConnector(mock)
	expectName(connector, "observer")

	seen := make(chan model.ReadResponse, 1)
	connector.EXPECT().OnNotification("OPC", gomock.Any()).Do(func(_ string, n model.Notification) {
		seen <- m.ReadValueFromCache(context.Background(), []string{n.Name})[0]
	})

	m.dispatcher.attach(connector)
	m.dispatcher.dispatch(model.NewNotification("Temp", model.DataValue{
		Value:           model.NewDouble(3.5),
		StatusCode:      model.StatusGood,
		SourceTimestamp: time.Now(),
	}))

	select {
	case resp := <-seen:
		assert.True(t, resp.Success)
		assert.Equal(t, model.NewDouble(3.5), resp.Value)
	case <-time.After(waitFor):
		t.Fatal("notification not delivered")
	}
	require.NoError(t, m.dispatcher.stop(context.Background()))
}

func TestDispatchIsolation(t *testing.T) {
	mock := gomock.NewController(t)
	m, _ := newTestManager(t, config.Default(), 2)

	faulty := NewMockConnector(mock)
	expectName(faulty, "faulty")
	faulty.EXPECT().OnNotification(gomock.Any(), gomock.Any()).Do(func(string, model.Notification) {
		panic("handler failure")
	}).AnyTimes()

	release := make(chan struct{})
	slow := NewMockConnector(mock)
	expectName(slow, "slow")
	slow.EXPECT().OnNotification(gomock.Any(), gomock.Any()).Do(func(string, model.Notification) {
		<-release
	}).AnyTimes()

	var mu sync.Mutex
	received := 0
	healthy := NewMockConnector(mock)
	expectName(healthy, "healthy")
	healthy.EXPECT().OnNotification(gomock.Any(), gomock.Any()).Do(func(string, model.Notification) {
		mu.Lock()
		received++
		mu.Unlock()
	}).AnyTimes()

	for _, c := range []Connector{faulty, slow, healthy} {
		m.dispatcher.attach(c)
	}

	const count = 10
	for i := 0; i < count; i++ {
		m.dispatcher.dispatch(model.NewNotification("Count", model.DataValue{
			Value:      model.NewInt32(int32(i)),
			StatusCode: model.StatusGood,
		}))
		// lets the healthy and faulty connectors drain their mailboxes
		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return received == i+1
		}, waitFor, tick)
	}

	resp := m.ReadValueFromCache(context.Background(), []string{"Count"})[0]
	assert.Equal(t, model.NewInt32(count-1), resp.Value)
	assert.Greater(t, testutil.ToFloat64(m.dispatcher.dropped.WithLabelValues("slow")), float64(0))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.dispatcher.dropped.WithLabelValues("healthy")))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.dispatcher.failed.WithLabelValues("faulty")) == count
	}, waitFor, tick)

	close(release)
	require.NoError(t, m.dispatcher.stop(context.Background()))
}

func TestRunLifecycle(t *testing.T) {
	mock := gomock.NewController(t)
	m, ctrl := newTestManager(t, config.Default(), 0)

	initialized := make(chan struct{})
	delivered := make(chan model.Notification, 1)
	connector := NewMockConnector(mock)
	expectName(connector, "recorder")
	gomock.InOrder(
		connector.EXPECT().Init(gomock.Any(), gomock.Any(), m).DoAndReturn(
			func(context.Context, config.Config, Gateway) error {
				close(initialized)
				return nil
			}),
		connector.EXPECT().OnNotification("OPC", gomock.Any()).Do(func(_ string, n model.Notification) {
			delivered <- n
		}),
		connector.EXPECT().Clean().Return(nil),
	)
	m.AddConnector(connector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	select {
	case <-initialized:
	case <-time.After(waitFor):
		t.Fatal("connector not initialized")
	}
	assert.Eventually(t, func() bool {
		m.dispatcher.mu.RLock()
		defer m.dispatcher.mu.RUnlock()
		return len(m.dispatcher.mailboxes) == 1
	}, waitFor, tick)

	ctrl.emit(model.NewStatusNotification("Temp", model.StatusBadNotConnected, time.Now()))
	select {
	case n := <-delivered:
		assert.Equal(t, "Temp", n.Name)
	case <-time.After(waitFor):
		t.Fatal("notification not delivered")
	}

	m.Shutdown("test done")
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("run did not return")
	}
	assert.True(t, ctrl.isClosed())

	_, err := m.Variables(context.Background())
	assert.Error(t, err)
}

func TestRunInitFailure(t *testing.T) {
	mock := gomock.NewController(t)
	m, ctrl := newTestManager(t, config.Default(), 0)

	connector := NewMockConnector(mock)
	expectName(connector, "broken")
	connector.EXPECT().Init(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.NewInvalid("bad settings"))
	connector.EXPECT().Clean().Return(nil)
	m.AddConnector(connector)

	err := m.Run(context.Background())
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, ctrl.isClosed())
}

func TestShutdownBoundedByGracePeriod(t *testing.T) {
	mock := gomock.NewController(t)
	cfg := config.Default()
	cfg.ShutdownGracePeriod = 50
	m, ctrl := newTestManager(t, cfg, 0)

	release := make(chan struct{})
	defer close(release)
	connector := NewMockConnector(mock)
	expectName(connector, "stuck")
	connector.EXPECT().Init(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	connector.EXPECT().Clean().DoAndReturn(func() error {
		<-release
		return nil
	})
	m.AddConnector(connector)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	require.NoError(t, m.Run(ctx))
	assert.Less(t, time.Since(start), waitFor)
	assert.True(t, ctrl.isClosed())
}
