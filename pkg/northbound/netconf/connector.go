// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package netconf exposes the variables to NETCONF clients over SSH.
package netconf

import (
	"context"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/northbound/ssh"
	"github.com/onosproject/onos-opcgw/pkg/store"
)

const stopTimeout = 2 * time.Second

// Connector serves the NETCONF subsystem and records its sessions in a store
type Connector struct {
	sessions store.Store
	log      logging.Logger
	sshOpts  []ssh.Option

	mu     sync.Mutex
	server ssh.SSHServer
}

// NewConnector returns a NETCONF connector recording its sessions in sessions
func NewConnector(sessions store.Store, log logging.Logger, opts ...ssh.Option) *Connector {
	return &Connector{
		sessions: sessions,
		log:      log,
		sshOpts:  opts,
	}
}

func (c *Connector) Name() string {
	return "netconf"
}

func (c *Connector) Init(ctx context.Context, cfg config.Config, gw manager.Gateway) error {
	h := newHandler(gw, c.sessions, c.log)
	opts := append([]ssh.Option{
		ssh.WithLogger(c.log),
		ssh.WithRequestTimeout(cfg.RequestTimeoutDuration()),
	}, c.sshOpts...)
	server, err := ssh.NewSSHServer(cfg.NetconfConnector.Port, h, opts...)
	if err != nil {
		return err
	}
	h.closer = server
	if err := server.Start(); err != nil {
		return err
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()
	return nil
}

// OnNotification does nothing: NETCONF clients poll with get
func (c *Connector) OnNotification(sourceID string, n model.Notification) {}

func (c *Connector) Clean() error {
	c.mu.Lock()
	server := c.server
	c.server = nil
	c.mu.Unlock()
	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return server.Stop(ctx)
}

var _ manager.Connector = &Connector{}
