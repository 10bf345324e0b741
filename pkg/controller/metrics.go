// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

type sessionMetrics struct {
	state         prometheus.Gauge
	defunct       prometheus.Gauge
	reconnects    prometheus.Counter
	notifications *prometheus.CounterVec
	batches       *prometheus.CounterVec
}

// newSessionMetrics creates the session collectors and registers them when reg is not nil
func newSessionMetrics(reg prometheus.Registerer) *sessionMetrics {
	m := &sessionMetrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opcgw",
			Subsystem: "session",
			Name:      "state",
			Help:      "Connection state: 0 connected, 1 reconnecting, 2 unavailable, 3 disconnected",
		}),
		defunct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "opcgw",
			Subsystem: "session",
			Name:      "defunct_keepalives",
			Help:      "Bad keep-alive reports since the last successful connection",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Successful reconnections to the server",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "session",
			Name:      "notifications_total",
			Help:      "Notifications emitted by the session, by quality",
		}, []string{"quality"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "session",
			Name:      "batches_total",
			Help:      "Batched requests issued to the server, by operation",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.state, m.defunct, m.reconnects, m.notifications, m.batches)
	}
	return m
}
