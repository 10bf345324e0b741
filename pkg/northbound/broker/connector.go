// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package broker publishes the variables on NATS and serves reads and writes
// through NATS request/reply.
package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/manager"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

const (
	readSubject  = "read"
	writeSubject = "write"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Connector bridges the gateway with a NATS server
type Connector struct {
	log  logging.Logger
	opts []nats.Option

	mu      sync.RWMutex
	ctx     context.Context
	conn    *nats.Conn
	pub     publisher
	gw      manager.Gateway
	prefix  string
	timeout time.Duration
}

// NewConnector returns a NATS connector; opts are added to the connection options
func NewConnector(log logging.Logger, opts ...nats.Option) *Connector {
	return &Connector{
		log:  log,
		opts: opts,
	}
}

func (c *Connector) Name() string {
	return "nats"
}

func (c *Connector) Init(ctx context.Context, cfg config.Config, gw manager.Gateway) error {
	log := c.log
	opts := append([]nats.Option{
		nats.Name("onos-opcgw"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("Disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("Reconnected to NATS at %s", nc.ConnectedUrl())
		}),
	}, c.opts...)
	conn, err := nats.Connect(cfg.NATSConnector.URL, opts...)
	if err != nil {
		return errors.NewUnavailable("connect to NATS at %s: %v", cfg.NATSConnector.URL, err)
	}

	c.attach(ctx, cfg, gw, conn)
	prefix := c.prefix
	handlers := map[string]nats.MsgHandler{
		prefix + "." + readSubject:  c.handleRead,
		prefix + "." + writeSubject: c.handleWrite,
	}
	for subject, handler := range handlers {
		if _, err := conn.Subscribe(subject, handler); err != nil {
			c.mu.Lock()
			c.pub = nil
			c.mu.Unlock()
			conn.Close()
			return errors.NewUnavailable("subscribe to %s: %v", subject, err)
		}
		c.log.Debugf("Serving requests on %s", subject)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.log.Infof("Publishing variables on %s.>", prefix)
	return nil
}

func (c *Connector) attach(ctx context.Context, cfg config.Config, gw manager.Gateway, pub publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	c.gw = gw
	c.pub = pub
	c.prefix = cfg.NATSConnector.SubjectPrefix
	if c.prefix == "" {
		c.prefix = "opcgw"
	}
	c.timeout = cfg.RequestTimeoutDuration()
}

func (c *Connector) OnNotification(sourceID string, n model.Notification) {
	c.mu.RLock()
	pub, prefix := c.pub, c.prefix
	c.mu.RUnlock()
	if pub == nil {
		return
	}
	data, err := json.Marshal(newNotificationMessage(sourceID, n))
	if err != nil {
		c.log.Warnf("Cannot encode notification of %s: %v", n.Name, err)
		return
	}
	if err := pub.Publish(prefix+"."+subjectToken(n.Name), data); err != nil {
		c.log.Warnf("Cannot publish notification of %s: %v", n.Name, err)
	}
}

func (c *Connector) Clean() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.pub = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil && err != nats.ErrConnectionClosed {
		return err
	}
	return nil
}

func (c *Connector) handleRead(msg *nats.Msg) {
	c.respond(msg, c.read(msg.Data))
}

func (c *Connector) handleWrite(msg *nats.Msg) {
	c.respond(msg, c.write(msg.Data))
}

func (c *Connector) respond(msg *nats.Msg, reply interface{}) {
	data, err := json.Marshal(reply)
	if err != nil {
		c.log.Errorf("Cannot encode reply on %s: %v", msg.Subject, err)
		return
	}
	if err := msg.Respond(data); err != nil {
		c.log.Warnf("Cannot reply on %s: %v", msg.Subject, err)
	}
}

func (c *Connector) requestContext() (context.Context, context.CancelFunc, manager.Gateway) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		return ctx, cancel, c.gw
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, c.gw
}

func (c *Connector) read(data []byte) ReadReply {
	var request ReadRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &request); err != nil {
			return ReadReply{Error: errors.NewInvalid("malformed read request: %v", err).Error()}
		}
	}
	ctx, cancel, gw := c.requestContext()
	defer cancel()
	if gw == nil {
		return ReadReply{Error: errors.NewUnavailable("gateway is not initialized").Error()}
	}

	var reply ReadReply
	if len(request.Names) == 0 {
		variables, err := gw.Variables(ctx)
		if err != nil {
			return ReadReply{Error: err.Error()}
		}
		for _, v := range variables {
			reply.Variables = append(reply.Variables, newVariable(model.ReadResponse{
				Name:       v.Name,
				Success:    true,
				StatusCode: v.StatusCode,
				SystemType: v.SystemType,
				Value:      v.Value,
				Timestamp:  v.Timestamp,
			}))
		}
		return reply
	}
	for _, r := range gw.ReadValueFromCache(ctx, request.Names) {
		reply.Variables = append(reply.Variables, newVariable(r))
	}
	return reply
}

func (c *Connector) write(data []byte) WriteReply {
	var request WriteRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return WriteReply{Error: errors.NewInvalid("malformed write request: %v", err).Error()}
	}
	if len(request.Variables) == 0 {
		return WriteReply{Error: errors.NewInvalid("no variables to write").Error()}
	}
	ctx, cancel, gw := c.requestContext()
	defer cancel()
	if gw == nil {
		return WriteReply{Error: errors.NewUnavailable("gateway is not initialized").Error()}
	}

	var (
		reply  WriteReply
		names  []string
		values []model.Value
	)
	for _, item := range request.Variables {
		value, err := decodeValue(item.Value)
		if err != nil {
			c.log.Debugf("Write of %s rejected: %v", item.Name, err)
			reply.Results = append(reply.Results, WriteResult{
				Name:   item.Name,
				Status: model.StatusBadTypeMismatch.String(),
			})
			continue
		}
		names = append(names, item.Name)
		values = append(values, value)
	}
	if len(names) == 0 {
		return reply
	}
	for _, r := range gw.WriteToOPCServer(ctx, names, values) {
		reply.Results = append(reply.Results, WriteResult{
			Name:    r.Name,
			Success: r.Success,
			Status:  r.StatusCode.String(),
			Value:   r.Value.Interface(),
		})
	}
	return reply
}

var _ manager.Connector = &Connector{}
