// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package manager wires the cache, the session and the connectors together.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-lib-go/pkg/northbound"
	"github.com/onosproject/onos-opcgw/pkg/cache"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/controller"
	"github.com/onosproject/onos-opcgw/pkg/selector"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const defaultGracePeriod = 2 * time.Second

// Option customizes the manager
type Option func(*options)

type options struct {
	log         logging.Logger
	registerer  prometheus.Registerer
	dialer      southbound.Dialer
	mailboxSize int
}

// WithLogger sets the logger of the manager
func WithLogger(log logging.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithRegisterer registers the gateway collectors with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithDialer replaces the OPC UA dialer built from the configuration
func WithDialer(dialer southbound.Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// WithMailboxSize sets how many notifications a connector may lag behind
func WithMailboxSize(size int) Option {
	return func(o *options) {
		o.mailboxSize = size
	}
}

// Manager is the composition root of the gateway
type Manager struct {
	cfg        config.Config
	log        logging.Logger
	cache      cache.Cache
	controller controller.OPCController
	dispatcher *dispatcher
	connectors []Connector
	services   []northbound.Service
	server     *northbound.Server

	mu       sync.Mutex
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewManager opens the cache and prepares the session; nothing is started
// before Run
func NewManager(cfg config.Config, opts ...Option) (*Manager, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.GetLogger("opcgw", "manager")
	}

	sel, err := selector.New(cfg.NodesLoader.Config)
	if err != nil {
		return nil, err
	}
	c, err := cache.New(cfg.NodesDatabase, logging.GetLogger("opcgw", "cache"))
	if err != nil {
		return nil, err
	}

	dialer := o.dialer
	if dialer == nil {
		dialer = southbound.NewDialer(southbound.DialerConfig{
			Endpoint:        cfg.OPCServerURL,
			KeepAlivePeriod: cfg.KeepAlivePeriodDuration(),
			RequestTimeout:  cfg.RequestTimeoutDuration(),
		}, logging.GetLogger("opcgw", "southbound"))
	}
	ctrl := controller.NewOPCController(controller.Config{
		ReconnectPeriod:    cfg.ReconnectPeriodDuration(),
		PublishingInterval: cfg.PublishingIntervalDuration(),
		UnavailableAfter:   cfg.UnavailableAfterDuration(),
		BrowseNodes:        cfg.NodesLoader.BrowseNodes,
		NodesFilename:      cfg.NodesLoader.Filename,
	}, dialer, c, sel,
		controller.WithLogger(logging.GetLogger("opcgw", "controller")),
		controller.WithRegisterer(o.registerer))

	return &Manager{
		cfg:        cfg,
		log:        o.log,
		cache:      c,
		controller: ctrl,
		dispatcher: newDispatcher(c, cfg.OPCSystemName, o.mailboxSize, logging.GetLogger("opcgw", "dispatcher"), o.registerer),
	}, nil
}

// AddConnector registers a connector; connectors that are also gRPC services
// are hosted by the northbound server
func (m *Manager) AddConnector(c Connector) {
	m.connectors = append(m.connectors, c)
	if s, ok := c.(northbound.Service); ok {
		m.AddService(s)
	}
}

// AddService registers a gRPC service on the northbound server
func (m *Manager) AddService(s northbound.Service) {
	m.services = append(m.services, s)
}

// Run starts the gateway and blocks until ctx is cancelled or a connector
// asks for shutdown
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	defer m.stop()

	if err := m.start(ctx); err != nil {
		m.log.Errorf("Error when starting the gateway: %v", err)
		return err
	}
	<-ctx.Done()
	m.log.Info("Shutting down")
	return nil
}

func (m *Manager) start(ctx context.Context) error {
	if err := m.controller.Connect(ctx); err != nil {
		return err
	}
	if err := m.controller.Discover(ctx); err != nil {
		return err
	}
	if err := m.controller.Subscribe(ctx, m.dispatcher.dispatch); err != nil {
		return err
	}

	for _, c := range m.connectors {
		if err := c.Init(ctx, m.cfg, m); err != nil {
			m.log.Errorf("Connector %s failed to start: %v", c.Name(), err)
			return err
		}
		m.dispatcher.attach(c)
		m.log.Infof("Connector %s started", c.Name())
	}

	if len(m.services) > 0 {
		return m.startNorthboundServer()
	}
	return nil
}

func (m *Manager) startNorthboundServer() error {
	s := northbound.NewServer(northbound.NewServerCfg(
		m.cfg.Northbound.CAPath,
		m.cfg.Northbound.KeyPath,
		m.cfg.Northbound.CertPath,
		int16(m.cfg.Northbound.GRPCPort),
		true,
		northbound.SecurityConfig{}))

	s.AddService(logging.Service{})
	for _, service := range m.services {
		s.AddService(service)
	}
	doneCh := make(chan error, 1)
	go func() {
		err := s.Serve(func(started string) {
			m.log.Info("Started NBI on ", started)
			m.mu.Lock()
			m.server = s
			m.mu.Unlock()
			doneCh <- nil
		})
		if err != nil {
			m.log.Errorf("NBI stopped: %v", err)
			select {
			case doneCh <- err:
			default:
			}
		}
	}()
	return <-doneCh
}

// Shutdown cancels Run; it may be called by any connector
func (m *Manager) Shutdown(reason string) {
	m.log.Infof("Shutdown requested: %s", reason)
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stop releases every resource in reverse start order within the grace period
func (m *Manager) stop() {
	m.stopOnce.Do(func() {
		grace := m.cfg.ShutdownGracePeriodDuration()
		if grace <= 0 {
			grace = defaultGracePeriod
		}
		ctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := m.controller.Close(ctx); err != nil {
			m.log.Warnf("Session close failed: %v", err)
		}
		if err := m.dispatcher.stop(ctx); err != nil {
			m.log.Warnf("Pending notifications abandoned: %v", err)
		}

		g := new(errgroup.Group)
		for _, c := range m.connectors {
			c := c
			g.Go(func() error {
				if err := c.Clean(); err != nil {
					m.log.Warnf("Connector %s cleanup failed: %v", c.Name(), err)
					return err
				}
				return nil
			})
		}
		cleaned := make(chan struct{})
		go func() {
			_ = g.Wait()
			close(cleaned)
		}()
		select {
		case <-cleaned:
		case <-ctx.Done():
			m.log.Warnf("Connector cleanup did not finish within %s", grace)
		}

		m.mu.Lock()
		server := m.server
		m.mu.Unlock()
		if server != nil {
			server.Stop()
		}
		if err := m.cache.Close(); err != nil {
			m.log.Warnf("Cache close failed: %v", err)
		}
		m.log.Info("Gateway stopped")
	})
}

var _ Gateway = &Manager{}
