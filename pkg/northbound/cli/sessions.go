// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package cli serves the NETCONF session store to administration clients.
package cli

import (
	"context"

	"github.com/onosproject/onos-opcgw/pkg/store"
	"google.golang.org/grpc"

	o1tapi "github.com/onosproject/onos-api/go/onos/o1t"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-lib-go/pkg/logging/service"
)

// NewService returns the NETCONF sessions administration service
func NewService(sessions store.Store, log logging.Logger) service.Service {
	return &Service{
		sessions: sessions,
		log:      log,
	}
}

// Service is a service implementation for administration.
type Service struct {
	service.Service
	sessions store.Store
	log      logging.Logger
}

func (s Service) Register(r *grpc.Server) {
	server := &Server{
		sessions: s.sessions,
	}
	o1tapi.RegisterNetconfSessionsServer(r, server)
	s.log.Info("Registered NETCONF sessions service")
}

type Server struct {
	sessions store.Store
}

func (s *Server) List(ctx context.Context, request *o1tapi.GetRequest) (*o1tapi.GetResponse, error) {
	ch := make(chan *store.Entry)
	done := make(chan map[string]*o1tapi.Session)

	go func() {
		sessions := make(map[string]*o1tapi.Session)
		for entry := range ch {
			sessions[entry.Key.SessionID] = parseEntry(entry)
		}
		done <- sessions
	}()

	err := s.sessions.Entries(ctx, ch)
	sessions := <-done
	if err != nil {
		return nil, errors.Status(err).Err()
	}

	return &o1tapi.GetResponse{
		Sessions: sessions,
	}, nil
}

func (s *Server) Watch(request *o1tapi.GetRequest, server o1tapi.NetconfSessions_WatchServer) error {
	ch := make(chan store.Event)
	if err := s.sessions.Watch(server.Context(), ch); err != nil {
		return errors.Status(err).Err()
	}

	for event := range ch {
		err := server.Send(&o1tapi.GetResponse{
			Sessions: map[string]*o1tapi.Session{
				event.Key.SessionID: parseEntry(event.Value),
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func parseEntry(entry *store.Entry) *o1tapi.Session {
	session := &o1tapi.Session{
		SessionID:  entry.Key.SessionID,
		Alive:      entry.Value.Alive,
		Operations: make(map[string]*o1tapi.Operation),
	}

	for id, op := range entry.Value.Operations {
		session.Operations[id] = &o1tapi.Operation{
			Name:      op.Name,
			Namespace: op.Namespace,
			Timestamp: op.Timestamp,
			Status:    op.Status,
		}
	}

	return session
}
