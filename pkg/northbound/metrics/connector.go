// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes the variables as Prometheus gauges.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 2 * time.Second

// Connector keeps one gauge per variable and serves the registry over HTTP
type Connector struct {
	log      logging.Logger
	registry *prometheus.Registry

	value     *prometheus.GaugeVec
	status    *prometheus.GaugeVec
	timestamp *prometheus.GaugeVec
	updates   *prometheus.CounterVec

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewConnector registers the variable collectors with registry, or with a new
// registry when it is nil
func NewConnector(registry *prometheus.Registry, log logging.Logger) *Connector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Connector{
		log:      log,
		registry: registry,
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "opcgw",
			Subsystem: "variable",
			Name:      "value",
			Help:      "Latest value of the numeric and boolean variables",
		}, []string{"name"}),
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "opcgw",
			Subsystem: "variable",
			Name:      "status_code",
			Help:      "Latest status code of the variables",
		}, []string{"name"}),
		timestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "opcgw",
			Subsystem: "variable",
			Name:      "timestamp_seconds",
			Help:      "Source timestamp of the latest update of the variables",
		}, []string{"name"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "variable",
			Name:      "updates_total",
			Help:      "Notifications received by the connector, by quality",
		}, []string{"quality"}),
	}
	registry.MustRegister(c.value, c.status, c.timestamp, c.updates)
	return c
}

func (c *Connector) Name() string {
	return "metrics"
}

func (c *Connector) Init(ctx context.Context, cfg config.Config, gw manager.Gateway) error {
	variables, err := gw.Variables(ctx)
	if err != nil {
		return err
	}
	for _, v := range variables {
		c.set(v.Name, v.Value, v.StatusCode, v.Timestamp)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.MetricsConnector.Port))
	if err != nil {
		return errors.NewUnavailable("metrics listener: %v", err)
	}
	path := cfg.MetricsConnector.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	c.mu.Lock()
	c.server = server
	c.listener = lis
	c.mu.Unlock()

	go func() {
		if err := server.Serve(lis); err != nil && err != http.ErrServerClosed {
			c.log.Errorf("Metrics server stopped: %v", err)
		}
	}()
	c.log.Infof("Serving metrics on %s%s", lis.Addr(), path)
	return nil
}

func (c *Connector) OnNotification(sourceID string, n model.Notification) {
	sample, ok := n.Latest()
	if !ok {
		return
	}
	c.updates.WithLabelValues(sample.StatusCode.Quality()).Inc()
	timestamp := sample.SourceTimestamp
	if timestamp.IsZero() {
		timestamp = sample.ServerTimestamp
	}
	c.set(n.Name, sample.Value, sample.StatusCode, timestamp)
}

func (c *Connector) set(name string, value model.Value, code model.StatusCode, timestamp time.Time) {
	c.status.WithLabelValues(name).Set(float64(code))
	if !timestamp.IsZero() {
		c.timestamp.WithLabelValues(name).Set(float64(timestamp.UnixNano()) / float64(time.Second))
	}
	if f, ok := value.Float64(); ok {
		c.value.WithLabelValues(name).Set(f)
	} else if !value.IsNull() {
		c.value.DeleteLabelValues(name)
	}
}

// Addr returns the address of the metrics listener, nil before Init
func (c *Connector) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return nil
	}
	return c.listener.Addr()
}

func (c *Connector) Clean() error {
	c.mu.Lock()
	server := c.server
	c.server = nil
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

var _ manager.Connector = &Connector{}
