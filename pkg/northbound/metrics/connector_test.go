// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleTime = time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeGateway struct {
	variables []model.VariableValue
}

func (g *fakeGateway) ReadValueFromCache(ctx context.Context, names []string) []model.ReadResponse {
	return nil
}

func (g *fakeGateway) WriteToOPCServer(ctx context.Context, names []string, values []model.Value) []model.WriteResponse {
	return nil
}

func (g *fakeGateway) Variables(ctx context.Context) ([]model.VariableValue, error) {
	return g.variables, nil
}

func (g *fakeGateway) Namespaces(ctx context.Context) ([]model.NamespaceRecord, error) {
	return nil, nil
}

func (g *fakeGateway) Shutdown(reason string) {}

func newTestConnector(t *testing.T) *Connector {
	t.Helper()
	gw := &fakeGateway{variables: []model.VariableValue{
		{Name: "Temp", SystemType: model.TypeDouble, Value: model.NewDouble(20.5), Timestamp: sampleTime},
		{Name: "Running", SystemType: model.TypeBoolean, Value: model.NewBoolean(true), Timestamp: sampleTime},
		{Name: "Label", SystemType: model.TypeString, Value: model.NewString("line 1"), Timestamp: sampleTime},
	}}
	cfg := config.Default()
	cfg.MetricsConnector.Port = 0

	c := NewConnector(prometheus.NewRegistry(), logging.GetLogger("opcgw", "metrics", "test"))
	require.NoError(t, c.Init(context.Background(), cfg, gw))
	t.Cleanup(func() { assert.NoError(t, c.Clean()) })
	return c
}

func TestInit(t *testing.T) {
	c := newTestConnector(t)

	assert.Equal(t, 20.5, testutil.ToFloat64(c.value.WithLabelValues("Temp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.value.WithLabelValues("Running")))
	assert.Equal(t, 3, testutil.CollectAndCount(c.status))
	assert.Equal(t, float64(sampleTime.Unix()), testutil.ToFloat64(c.timestamp.WithLabelValues("Temp")))
}

func TestOnNotification(t *testing.T) {
	c := newTestConnector(t)

	c.OnNotification("OPC", model.NewNotification("Temp", model.DataValue{
		Value:           model.NewDouble(21),
		StatusCode:      model.StatusGood,
		SourceTimestamp: sampleTime.Add(time.Second),
	}))
	assert.Equal(t, 21.0, testutil.ToFloat64(c.value.WithLabelValues("Temp")))
	assert.Equal(t, float64(sampleTime.Unix()+1), testutil.ToFloat64(c.timestamp.WithLabelValues("Temp")))

	c.OnNotification("OPC", model.NewStatusNotification("Temp", model.StatusBadTimeout, sampleTime.Add(2*time.Second)))
	assert.Equal(t, 21.0, testutil.ToFloat64(c.value.WithLabelValues("Temp")))
	assert.Equal(t, float64(model.StatusBadTimeout), testutil.ToFloat64(c.status.WithLabelValues("Temp")))

	c.OnNotification("OPC", model.NewNotification("Temp"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.updates.WithLabelValues("good")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.updates.WithLabelValues("bad")))
}

func TestServeMetrics(t *testing.T) {
	c := newTestConnector(t)
	addr, ok := c.Addr().(*net.TCPAddr)
	require.True(t, ok)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", addr.Port))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `opcgw_variable_value{name="Temp"} 20.5`)
	assert.NotContains(t, string(body), `opcgw_variable_value{name="Label"}`)
}
