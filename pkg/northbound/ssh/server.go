// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package ssh serves the NETCONF subsystem over SSH.
package ssh

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"golang.org/x/crypto/ssh"
)

const (
	// sshNetconfSubsystem sets the SSH subsystem to NETCONF
	sshNetconfSubsystem = "netconf"

	defaultRequestTimeout = 5 * time.Second
)

// Handler serves the messages of the NETCONF sessions
type Handler interface {
	// Hello returns the server hello of a new session
	Hello(ctx context.Context, sessionID string) ([]byte, error)

	// Handle returns the reply to a request, nil if there is none. end is
	// set when the session must be closed once the reply is sent.
	Handle(ctx context.Context, sessionID string, request []byte) (reply []byte, end bool, err error)

	// Closed is called once a session is over
	Closed(ctx context.Context, sessionID string)
}

type PublicKeyHandler func(conn ssh.ConnMetadata, key ssh.PublicKey) bool
type PasswordHandler func(conn ssh.ConnMetadata, password string) bool

type SSHServer interface {
	Start() error
	Stop(ctx context.Context) error

	// Addr returns the listening address once started
	Addr() net.Addr

	// CloseSession terminates a running NETCONF session
	CloseSession(sessionID string) error
}

// Option customizes the SSH server
type Option func(*sshServer)

func WithLogger(log logging.Logger) Option {
	return func(srv *sshServer) {
		srv.log = log
	}
}

// WithRequestTimeout bounds the handling of a single request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(srv *sshServer) {
		if timeout > 0 {
			srv.requestTimeout = timeout
		}
	}
}

func WithPasswordHandler(handler PasswordHandler) Option {
	return func(srv *sshServer) {
		srv.passwordHandler = handler
	}
}

func WithPublicKeyHandler(handler PublicKeyHandler) Option {
	return func(srv *sshServer) {
		srv.publicKeyHandler = handler
	}
}

func WithHostSigner(signer ssh.Signer) Option {
	return func(srv *sshServer) {
		srv.addHostKey(signer)
	}
}

type sshServer struct {
	mu sync.RWMutex

	address string
	version string

	hostSigners      []ssh.Signer
	passwordHandler  PasswordHandler
	publicKeyHandler PublicKeyHandler

	handler        Handler
	requestTimeout time.Duration
	log            logging.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	listener net.Listener
	conns    map[net.Conn]struct{}
	sessions map[string]ssh.Channel
	lastID   uint64
	wg       sync.WaitGroup
}

func (srv *sshServer) addHostKey(key ssh.Signer) {
	for i, k := range srv.hostSigners {
		if k.PublicKey().Type() == key.PublicKey().Type() {
			srv.hostSigners[i] = key
			return
		}
	}
	srv.hostSigners = append(srv.hostSigners, key)
}

func (srv *sshServer) createHostKey() error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return err
	}

	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		return err
	}

	srv.addHostKey(signer)
	return nil
}

// NewSSHServer returns a server for the NETCONF subsystem on netconfPort; port 0 picks a free port
func NewSSHServer(netconfPort int, handler Handler, opts ...Option) (SSHServer, error) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &sshServer{
		address:        net.JoinHostPort("0.0.0.0", strconv.Itoa(netconfPort)),
		version:        "onos-opcgw",
		handler:        handler,
		requestTimeout: defaultRequestTimeout,
		log:            logging.GetLogger("opcgw", "ssh"),
		ctx:            ctx,
		cancel:         cancel,
		conns:          make(map[net.Conn]struct{}),
		sessions:       make(map[string]ssh.Channel),
	}
	// TODO compare against the authorized keys of the configuration with ssh.KeysEqual
	srv.publicKeyHandler = func(conn ssh.ConnMetadata, key ssh.PublicKey) bool {
		return true
	}
	for _, opt := range opts {
		opt(srv)
	}

	if len(srv.hostSigners) == 0 {
		if err := srv.createHostKey(); err != nil {
			cancel()
			return nil, err
		}
	}
	return srv, nil
}

func (srv *sshServer) config() *ssh.ServerConfig {
	config := &ssh.ServerConfig{}

	for _, signer := range srv.hostSigners {
		config.AddHostKey(signer)
	}

	if srv.passwordHandler == nil && srv.publicKeyHandler == nil {
		config.NoClientAuth = true
	}
	if srv.version != "" {
		config.ServerVersion = "SSH-2.0-" + srv.version
	}
	if srv.passwordHandler != nil {
		config.PasswordCallback = func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if ok := srv.passwordHandler(conn, string(password)); !ok {
				return nil, fmt.Errorf("permission denied")
			}
			return &ssh.Permissions{}, nil
		}
	}
	if srv.publicKeyHandler != nil {
		config.PublicKeyCallback = func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if ok := srv.publicKeyHandler(conn, key); !ok {
				return nil, fmt.Errorf("permission denied")
			}
			return &ssh.Permissions{}, nil
		}
	}
	return config
}

func (srv *sshServer) Start() error {
	listener, err := net.Listen("tcp", srv.address)
	if err != nil {
		srv.log.Error(err)
		return err
	}

	srv.mu.Lock()
	srv.listener = listener
	srv.mu.Unlock()
	srv.log.Infof("Netconf SSH server listening on %s", listener.Addr())

	srv.wg.Add(1)
	go srv.serve(listener)
	return nil
}

func (srv *sshServer) Addr() net.Addr {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

func (srv *sshServer) serve(listener net.Listener) {
	defer srv.wg.Done()
	config := srv.config()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if srv.ctx.Err() == nil {
				srv.log.Error(err)
			}
			return
		}
		if !srv.track(conn) {
			_ = conn.Close()
			return
		}
		srv.wg.Add(1)
		go srv.handleConn(conn, config)
	}
}

func (srv *sshServer) track(conn net.Conn) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.ctx.Err() != nil {
		return false
	}
	srv.conns[conn] = struct{}{}
	return true
}

func (srv *sshServer) untrack(conn net.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.conns, conn)
}

func (srv *sshServer) handleConn(conn net.Conn, config *ssh.ServerConfig) {
	defer srv.wg.Done()
	defer srv.untrack(conn)

	srvConn, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		srv.log.Warnf("SSH handshake with %s failed: %v", conn.RemoteAddr(), err)
		_ = conn.Close()
		return
	}
	defer srvConn.Close()

	srv.log.Infof("Accepted SSH connection from %s user %s", srvConn.RemoteAddr(), srvConn.User())
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		ssh.DiscardRequests(reqs)
	}()
	srv.handleChannels(srvConn, chans)
}

func (srv *sshServer) handleChannels(srvConn *ssh.ServerConn, chans <-chan ssh.NewChannel) {
	for newChan := range chans {
		srv.log.Debugf("Handling channel %s", newChan.ChannelType())

		if newChan.ChannelType() != "session" {
			if err := newChan.Reject(ssh.UnknownChannelType, "unknown channel type"); err != nil {
				srv.log.Warn(err)
			}
			continue
		}

		ch, reqs, err := newChan.Accept()
		if err != nil {
			srv.log.Warnf("Accepting channel failed: %v", err)
			continue
		}

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			srv.handleRequests(srvConn.User(), ch, reqs)
		}()
	}
}

func (srv *sshServer) handleRequests(user string, ch ssh.Channel, in <-chan *ssh.Request) {
	started := false
	for req := range in {
		srv.log.Debugf("Handling request %s", req.Type)

		if req.Type != "subsystem" || started {
			if err := req.Reply(false, nil); err != nil {
				srv.log.Warn(err)
			}
			continue
		}

		var payload = struct{ Value string }{}
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Value != sshNetconfSubsystem {
			if err := req.Reply(false, nil); err != nil {
				srv.log.Warn(err)
			}
			continue
		}

		started = true
		if err := req.Reply(true, nil); err != nil {
			srv.log.Warn(err)
			_ = ch.Close()
			continue
		}

		srv.wg.Add(1)
		go func() {
			defer srv.wg.Done()
			defer ch.Close()
			srv.serveNetconf(user, ch)
		}()
	}
	if !started {
		_ = ch.Close()
	}
}

func (srv *sshServer) CloseSession(sessionID string) error {
	srv.mu.RLock()
	ch, ok := srv.sessions[sessionID]
	srv.mu.RUnlock()
	if !ok {
		return errors.NewNotFound("session %s does not exist", sessionID)
	}
	return ch.Close()
}

func (srv *sshServer) Stop(ctx context.Context) error {
	srv.cancel()

	srv.mu.Lock()
	if srv.listener != nil {
		if err := srv.listener.Close(); err != nil {
			srv.log.Warn(err)
		}
	}
	for conn := range srv.conns {
		_ = conn.Close()
	}
	srv.mu.Unlock()

	done := make(chan struct{})
	go func() {
		srv.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		srv.log.Info("Netconf SSH server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
