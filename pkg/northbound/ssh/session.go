// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package ssh

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
)

const closeTimeout = time.Second

func (srv *sshServer) openSession(ch ssh.Channel) string {
	sessionID := strconv.FormatUint(atomic.AddUint64(&srv.lastID, 1), 10)
	srv.mu.Lock()
	srv.sessions[sessionID] = ch
	srv.mu.Unlock()
	return sessionID
}

func (srv *sshServer) closeSession(sessionID string) {
	srv.mu.Lock()
	delete(srv.sessions, sessionID)
	srv.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	srv.handler.Closed(ctx, sessionID)
}

func (srv *sshServer) serveNetconf(user string, ch ssh.Channel) {
	sessionID := srv.openSession(ch)
	defer srv.closeSession(sessionID)

	srv.log.Infof("Starting netconf session %s of user %s", sessionID, user)
	conn := NewConn(ch, ch)

	ctx, cancel := context.WithTimeout(srv.ctx, srv.requestTimeout)
	hello, err := srv.handler.Hello(ctx, sessionID)
	cancel()
	if err != nil {
		srv.log.Errorf("Building hello of session %s failed: %v", sessionID, err)
		return
	}
	if err := conn.Send(hello); err != nil {
		srv.log.Warnf("Sending hello of session %s failed: %v", sessionID, err)
		return
	}

	for {
		request, err := conn.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				srv.log.Warnf("Receiving on session %s failed: %v", sessionID, err)
			}
			break
		}

		ctx, cancel := context.WithTimeout(srv.ctx, srv.requestTimeout)
		reply, end, err := srv.handler.Handle(ctx, sessionID, request)
		cancel()
		if err != nil {
			srv.log.Warnf("Handling request of session %s failed: %v", sessionID, err)
			break
		}

		if reply != nil {
			if err := conn.Send(reply); err != nil {
				srv.log.Warnf("Sending reply of session %s failed: %v", sessionID, err)
				break
			}
		}
		if end {
			break
		}
	}
	srv.log.Infof("Finishing netconf session %s", sessionID)
}
