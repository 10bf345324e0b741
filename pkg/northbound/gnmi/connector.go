// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package gnmi exposes the variables through a gNMI service.
package gnmi

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc"
)

const watchBufferSize = 256

// Connector serves gNMI requests with the gateway and streams its notifications
type Connector struct {
	log      logging.Logger
	watchers *watchers

	mu sync.RWMutex
	gw manager.Gateway
}

// NewConnector returns a gNMI connector; it is registered on the northbound server by the manager
func NewConnector(log logging.Logger) *Connector {
	return &Connector{
		log:      log,
		watchers: newWatchers(log),
	}
}

func (c *Connector) Name() string {
	return "gnmi"
}

func (c *Connector) Init(ctx context.Context, cfg config.Config, gw manager.Gateway) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gw = gw
	return nil
}

func (c *Connector) OnNotification(sourceID string, n model.Notification) {
	c.watchers.send(n)
}

func (c *Connector) Clean() error {
	c.watchers.close()
	return nil
}

// Register registers the gNMI server on r
func (c *Connector) Register(r *grpc.Server) {
	gnmi.RegisterGNMIServer(r, &Server{connector: c})
	c.log.Info("Registered gNMI service")
}

func (c *Connector) gateway() (manager.Gateway, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gw == nil {
		return nil, errors.NewUnavailable("gateway is not initialized")
	}
	return c.gw, nil
}

type watchers struct {
	log      logging.Logger
	mu       sync.RWMutex
	watchers map[uuid.UUID]chan model.Notification
	closed   bool
}

func newWatchers(log logging.Logger) *watchers {
	return &watchers{
		log:      log,
		watchers: make(map[uuid.UUID]chan model.Notification),
	}
}

// add registers a watcher; the channel is closed by remove or close
func (w *watchers) add() (uuid.UUID, <-chan model.Notification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return uuid.Nil, nil, errors.NewUnavailable("gNMI connector is stopped")
	}
	id := uuid.New()
	ch := make(chan model.Notification, watchBufferSize)
	w.watchers[id] = ch
	return id, ch, nil
}

func (w *watchers) remove(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if ch, ok := w.watchers[id]; ok {
		delete(w.watchers, id)
		close(ch)
	}
}

func (w *watchers) send(n model.Notification) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for id, ch := range w.watchers {
		select {
		case ch <- n:
		default:
			w.log.Warnf("Dropping notification of %s for subscriber %s", n.Name, id)
		}
	}
}

func (w *watchers) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for id, ch := range w.watchers {
		delete(w.watchers, id)
		close(ch)
	}
}

var _ manager.Connector = &Connector{}
