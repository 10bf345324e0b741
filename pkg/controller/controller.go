// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package controller owns the session with the OPC UA server: discovery,
// batched reads and writes, the subscription and reconnection.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/cache"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/selector"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultBatchSize is the largest number of items sent in one request
	DefaultBatchSize = 500

	closeTimeout = 2 * time.Second
)

// ConnectionState of the session
type ConnectionState int

const (
	Connected ConnectionState = iota
	Reconnecting
	Unavailable
	Disconnected
)

func (s ConnectionState) String() string {
	return [...]string{"Connected", "Reconnecting", "Unavailable", "Disconnected"}[s]
}

// NotifyFunc receives every notification emitted by the controller
type NotifyFunc func(model.Notification)

// Config of the controller
type Config struct {
	ReconnectPeriod    time.Duration
	PublishingInterval time.Duration
	UnavailableAfter   time.Duration
	BrowseNodes        bool
	NodesFilename      string
	BatchSize          int
}

// OPCController translates cache level intents into session operations
type OPCController interface {
	// Connect opens the first session; ctx bounds every background loop
	Connect(ctx context.Context) error

	// Discover fills the cache with the variables of the server
	Discover(ctx context.Context) error

	// Subscribe monitors every cached node and delivers changes to notify
	Subscribe(ctx context.Context, notify NotifyFunc) error

	// Read reads the current values of nodes from the server
	Read(ctx context.Context, nodes []model.ServerNode) []model.ReadResponse

	// Write writes values to nodes; values must already have the node type
	Write(ctx context.Context, nodes []model.ServerNode, values []model.Value) []model.WriteResponse

	// State returns the connection state
	State() ConnectionState

	// DefunctCount returns the bad keep-alives since the last connection
	DefunctCount() int

	// Close stops the background loops and closes the session
	Close(ctx context.Context) error
}

// Option customizes the controller
type Option func(*opcController)

// WithLogger sets the logger of the controller
func WithLogger(log logging.Logger) Option {
	return func(c *opcController) {
		c.log = log
	}
}

// WithRegisterer registers the session collectors with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *opcController) {
		c.registerer = reg
	}
}

// NewOPCController creates a controller; no session is opened until Connect
func NewOPCController(cfg Config, dialer southbound.Dialer, c cache.Cache, sel *selector.Selector, opts ...Option) OPCController {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	ctrl := &opcController{
		cfg:      cfg,
		dialer:   dialer,
		cache:    c,
		selector: sel,
		state:    Disconnected,
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	if ctrl.log == nil {
		ctrl.log = logging.GetLogger("opcgw", "controller")
	}
	ctrl.metrics = newSessionMetrics(ctrl.registerer)
	ctrl.metrics.state.Set(float64(Disconnected))
	return ctrl
}

type opcController struct {
	cfg        Config
	dialer     southbound.Dialer
	cache      cache.Cache
	selector   *selector.Selector
	log        logging.Logger
	registerer prometheus.Registerer
	metrics    *sessionMetrics

	// transition serializes state changes with the notifications they emit
	transition sync.Mutex

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	session       southbound.Session
	sessionCancel context.CancelFunc
	subscription  southbound.Subscription
	state         ConnectionState
	defunct       int
	notify        NotifyFunc
	recovered     chan struct{}

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func (c *opcController) Connect(ctx context.Context) error {
	session, err := c.dialer.Dial(ctx)
	if err != nil {
		c.log.Errorf("Connection to the server failed: %v", err)
		return err
	}

	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.session = session
	c.setState(Connected)
	c.mu.Unlock()

	c.watch(session)
	c.log.Info("Connected to the server")
	return nil
}

// current returns the session when connected
func (c *opcController) current() (southbound.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session, c.session != nil && c.state == Connected
}

func (c *opcController) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *opcController) DefunctCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defunct
}

// setState must be called with mu held
func (c *opcController) setState(state ConnectionState) {
	if c.state != state {
		c.log.Infof("Session state %s -> %s", c.state, state)
	}
	c.state = state
	c.metrics.state.Set(float64(state))
}

func (c *opcController) Subscribe(ctx context.Context, notify NotifyFunc) error {
	c.mu.Lock()
	c.notify = notify
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return errors.NewUnavailable("not connected to the server")
	}

	nodes, err := c.cache.ListServerNodes(ctx)
	if err != nil {
		return err
	}
	sub, failed, err := c.subscribeNodes(ctx, session, nodes)
	if err != nil {
		return err
	}

	c.mu.Lock()
	previous := c.subscription
	c.subscription = sub
	c.mu.Unlock()
	if previous != nil {
		if err := previous.Cancel(ctx); err != nil {
			c.log.Warnf("Cancel of previous subscription failed: %v", err)
		}
	}

	for _, n := range failed {
		c.emit(n)
	}
	c.log.Infof("Subscribed to %d variables", len(nodes)-len(failed))
	return nil
}

// subscribeNodes creates a subscription monitoring every resolved node and
// returns status notifications for the nodes that could not be monitored
func (c *opcController) subscribeNodes(ctx context.Context, session southbound.Session, nodes []model.ServerNode) (southbound.Subscription, []model.Notification, error) {
	now := time.Now()
	handles := make(map[uint32]string, len(nodes))
	items := make([]southbound.MonitoredItem, 0, len(nodes))
	var failed []model.Notification
	for _, node := range nodes {
		if !node.Resolved() {
			c.log.Warnf("Variable %s not monitored, its namespace is not available", node.Name)
			failed = append(failed, model.NewStatusNotification(node.Name, model.StatusBadNodeIDUnknown, now))
			continue
		}
		handle := uint32(len(items) + 1)
		handles[handle] = node.Name
		items = append(items, southbound.MonitoredItem{Handle: handle, NodeID: node.ServerIdentifier})
	}

	// handles is not modified after this point
	sub, err := session.Subscribe(ctx, southbound.SubscriptionParams{
		PublishingInterval: c.cfg.PublishingInterval,
	}, func(item southbound.ItemNotification) {
		name, ok := handles[item.Handle]
		if !ok {
			c.log.Debugf("Notification for unknown handle %d", item.Handle)
			return
		}
		c.emit(model.NewNotification(name, item.Value))
	})
	if err != nil {
		return nil, nil, err
	}

	for _, chunk := range chunks(items, c.cfg.BatchSize) {
		c.metrics.batches.WithLabelValues("monitor").Inc()
		codes, err := sub.Monitor(ctx, chunk)
		if err != nil {
			if cancelErr := sub.Cancel(ctx); cancelErr != nil {
				c.log.Debugf("Cancel of subscription failed: %v", cancelErr)
			}
			return nil, nil, err
		}
		for i, code := range codes {
			if code.IsBad() && i < len(chunk) {
				name := handles[chunk[i].Handle]
				c.log.Warnf("Variable %s not monitored: %s", name, code)
				failed = append(failed, model.NewStatusNotification(name, code, now))
			}
		}
	}
	return sub, failed, nil
}

func (c *opcController) emit(n model.Notification) {
	c.mu.RLock()
	notify := c.notify
	c.mu.RUnlock()
	if notify == nil {
		return
	}
	quality := "good"
	if latest, ok := n.Latest(); ok {
		quality = latest.StatusCode.Quality()
	}
	c.metrics.notifications.WithLabelValues(quality).Inc()
	notify(n)
}

// broadcastStatus emits a status notification for every cached node
func (c *opcController) broadcastStatus(ctx context.Context, code model.StatusCode) {
	nodes, err := c.cache.ListServerNodes(ctx)
	if err != nil {
		c.log.Errorf("Cannot list variables to notify %s: %v", code, err)
		return
	}
	now := time.Now()
	for _, node := range nodes {
		c.emit(model.NewStatusNotification(node.Name, code, now))
	}
}

func (c *opcController) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		c.wg.Wait()

		c.mu.Lock()
		session, sub := c.session, c.subscription
		c.session, c.subscription = nil, nil
		c.setState(Disconnected)
		c.mu.Unlock()

		if sub != nil {
			if cancelErr := sub.Cancel(ctx); cancelErr != nil {
				c.log.Warnf("Cancel of subscription failed: %v", cancelErr)
			}
		}
		if session != nil {
			err = session.Close(ctx)
		}
		c.log.Info("Session closed")
	})
	return err
}

var _ OPCController = &opcController{}
