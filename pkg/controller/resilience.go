// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
)

// watch follows the keep-alive reports of session until it is replaced or closed
func (c *opcController) watch(session southbound.Session) {
	c.mu.Lock()
	ctx, cancel := context.WithCancel(c.ctx)
	c.sessionCancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ka, ok := <-session.KeepAlive():
				if !ok {
					c.onKeepAlive(session, southbound.KeepAlive{
						Status: model.StatusBadCommunicationError,
						Time:   time.Now(),
					})
					return
				}
				c.onKeepAlive(session, ka)
			}
		}
	}()
}

func (c *opcController) onKeepAlive(session southbound.Session, ka southbound.KeepAlive) {
	if ka.Status.IsGood() {
		return
	}

	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.session != session || c.state == Disconnected {
		c.mu.Unlock()
		return
	}
	c.defunct++
	c.metrics.defunct.Set(float64(c.defunct))
	first := c.defunct == 1
	if first {
		c.setState(Reconnecting)
		c.recovered = make(chan struct{})
	}
	ctx, recovered := c.ctx, c.recovered
	c.mu.Unlock()

	if !first {
		c.log.Debugf("Keep-alive still reports %s", ka.Status)
		return
	}

	c.log.Warnf("Keep-alive reported %s, reconnecting", ka.Status)
	c.broadcastStatus(ctx, model.StatusBadNotConnected)

	c.wg.Add(2)
	go c.awaitDeadline(ctx, recovered)
	go c.reconnect(ctx, recovered)
}

// awaitDeadline marks every node unavailable when the outage lasts too long
func (c *opcController) awaitDeadline(ctx context.Context, recovered <-chan struct{}) {
	defer c.wg.Done()
	if c.cfg.UnavailableAfter <= 0 {
		return
	}
	timer := time.NewTimer(c.cfg.UnavailableAfter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-recovered:
		return
	case <-timer.C:
	}

	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.state != Reconnecting {
		c.mu.Unlock()
		return
	}
	c.setState(Unavailable)
	c.mu.Unlock()

	c.log.Warnf("Server unreachable for %s, data unavailable", c.cfg.UnavailableAfter)
	c.broadcastStatus(ctx, model.StatusBadDataUnavailable)
}

// reconnect dials new sessions every reconnect period until one is restored
func (c *opcController) reconnect(ctx context.Context, recovered chan struct{}) {
	defer c.wg.Done()

	attempt := func() error {
		session, err := c.dialer.Dial(ctx)
		if err != nil {
			return err
		}
		if err := c.restore(ctx, session, recovered); err != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if closeErr := session.Close(closeCtx); closeErr != nil {
				c.log.Debugf("Close of failed session: %v", closeErr)
			}
			return err
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		c.log.Warnf("Reconnect failed: %v, next attempt in %s", err, next)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.cfg.ReconnectPeriod), ctx)
	if err := backoff.RetryNotify(attempt, policy, notify); err != nil {
		c.log.Infof("Reconnect abandoned: %v", err)
	}
}

// restore makes session the current one: namespaces are re-resolved, the
// nodes are subscribed again and their values read back and notified
func (c *opcController) restore(ctx context.Context, session southbound.Session, recovered chan struct{}) error {
	c.transition.Lock()
	defer c.transition.Unlock()

	namespaces, err := session.Namespaces(ctx)
	if err != nil {
		return err
	}
	if _, err := c.cache.ResolveServerIndices(ctx, namespaces); err != nil {
		return err
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
	oldSession, oldSub, oldCancel := c.session, c.subscription, c.sessionCancel
	c.session = session
	c.subscription = sub
	c.defunct = 0
	c.setState(Connected)
	close(recovered)
	c.mu.Unlock()

	c.metrics.defunct.Set(0)
	c.metrics.reconnects.Inc()
	c.log.Info("Reconnected to the server")

	if oldCancel != nil {
		oldCancel()
	}
	c.discard(oldSession, oldSub)
	c.watch(session)

	for _, n := range failed {
		c.emit(n)
	}
	values := c.readValues(ctx, nodes)
	for i, node := range nodes {
		if !node.Resolved() {
			continue
		}
		c.emit(model.NewNotification(node.Name, values[i]))
	}
	return nil
}

// discard releases a replaced session without blocking the caller
func (c *opcController) discard(session southbound.Session, sub southbound.Subscription) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if sub != nil {
			if err := sub.Cancel(ctx); err != nil {
				c.log.Debugf("Cancel of stale subscription: %v", err)
			}
		}
		if session != nil {
			if err := session.Close(ctx); err != nil {
				c.log.Debugf("Close of stale session: %v", err)
			}
		}
	}()
}
