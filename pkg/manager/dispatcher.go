// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/cache"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultMailboxSize = 1024

// mailbox queues the notifications of one connector
type mailbox struct {
	connector Connector
	ch        chan model.Notification
}

// dispatcher applies notifications to the cache and fans them out, one
// goroutine per connector, so a slow or failing connector only loses its
// own notifications
type dispatcher struct {
	cache       cache.Cache
	sourceID    string
	mailboxSize int
	log         logging.Logger

	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	failed    *prometheus.CounterVec

	mu        sync.RWMutex
	mailboxes []*mailbox
	stopped   bool
	wg        sync.WaitGroup
}

func newDispatcher(c cache.Cache, sourceID string, mailboxSize int, log logging.Logger, reg prometheus.Registerer) *dispatcher {
	if mailboxSize <= 0 {
		mailboxSize = defaultMailboxSize
	}
	d := &dispatcher{
		cache:       c,
		sourceID:    sourceID,
		mailboxSize: mailboxSize,
		log:         log,
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "dispatcher",
			Name:      "delivered_total",
			Help:      "Notifications delivered, by connector",
		}, []string{"connector"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "dispatcher",
			Name:      "dropped_total",
			Help:      "Notifications dropped because the connector mailbox was full",
		}, []string{"connector"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opcgw",
			Subsystem: "dispatcher",
			Name:      "panics_total",
			Help:      "Notification handlers that panicked, by connector",
		}, []string{"connector"}),
	}
	if reg != nil {
		reg.MustRegister(d.delivered, d.dropped, d.failed)
	}
	return d
}

// attach starts delivering to c
func (d *dispatcher) attach(c Connector) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	mb := &mailbox{connector: c, ch: make(chan model.Notification, d.mailboxSize)}
	d.mailboxes = append(d.mailboxes, mb)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for n := range mb.ch {
			d.deliver(mb.connector, n)
		}
	}()
}

func (d *dispatcher) deliver(c Connector, n model.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.failed.WithLabelValues(c.Name()).Inc()
			d.log.Errorf("Connector %s failed to handle %s: %v", c.Name(), n.Name, r)
		}
	}()
	c.OnNotification(d.sourceID, n)
	d.delivered.WithLabelValues(c.Name()).Inc()
}

// dispatch updates the cache before any connector sees n
func (d *dispatcher) dispatch(n model.Notification) {
	ctx := context.Background()
	for _, v := range n.Values {
		d.cache.UpdateValue(ctx, n.Name, v.Value, timestampOf(v), v.StatusCode)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, mb := range d.mailboxes {
		select {
		case mb.ch <- n:
		default:
			d.dropped.WithLabelValues(mb.connector.Name()).Inc()
			d.log.Warnf("Connector %s is not keeping up, notification for %s dropped", mb.connector.Name(), n.Name)
		}
	}
}

// stop closes the mailboxes and waits, until ctx is done, for the queued
// notifications to be delivered
func (d *dispatcher) stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for _, mb := range d.mailboxes {
		close(mb.ch)
	}
	d.mailboxes = nil
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timestampOf(v model.DataValue) time.Time {
	switch {
	case !v.SourceTimestamp.IsZero():
		return v.SourceTimestamp
	case !v.ServerTimestamp.IsZero():
		return v.ServerTimestamp
	default:
		return time.Now()
	}
}
