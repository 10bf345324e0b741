// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package gnmi

import (
	"io"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *Server) Subscribe(stream gnmi.GNMI_SubscribeServer) error {
	gw, err := s.connector.gateway()
	if err != nil {
		return errors.Status(err).Err()
	}

	request, err := stream.Recv()
	if err != nil {
		return err
	}
	list := request.GetSubscribe()
	if list == nil {
		return status.Error(codes.InvalidArgument, "the first request must be a subscription list")
	}

	var selections []selection
	for _, subscription := range list.GetSubscription() {
		sel, err := parsePath(list.GetPrefix(), subscription.GetPath())
		if err != nil {
			return errors.Status(err).Err()
		}
		selections = append(selections, sel)
	}
	if len(selections) == 0 {
		selections = []selection{{}}
	}

	sync := func() error {
		if err := s.sendAll(stream, gw, selections); err != nil {
			return err
		}
		return stream.Send(&gnmi.SubscribeResponse{Response: &gnmi.SubscribeResponse_SyncResponse{SyncResponse: true}})
	}

	switch list.GetMode() {
	case gnmi.SubscriptionList_ONCE:
		return sync()
	case gnmi.SubscriptionList_POLL:
		if err := sync(); err != nil {
			return err
		}
		for {
			request, err := stream.Recv()
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			if request.GetPoll() == nil {
				return status.Error(codes.InvalidArgument, "only poll requests are accepted")
			}
			if err := sync(); err != nil {
				return err
			}
		}
	default:
		return s.stream(stream, gw, list.GetUpdatesOnly(), selections)
	}
}

func (s *Server) stream(stream gnmi.GNMI_SubscribeServer, gw gatewayReader, updatesOnly bool, selections []selection) error {
	id, ch, err := s.connector.watchers.add()
	if err != nil {
		return errors.Status(err).Err()
	}
	defer s.connector.watchers.remove(id)
	s.connector.log.Infof("Subscriber %s streaming %d paths", id, len(selections))

	if !updatesOnly {
		if err := s.sendAll(stream, gw, selections); err != nil {
			return err
		}
	}
	if err := stream.Send(&gnmi.SubscribeResponse{Response: &gnmi.SubscribeResponse_SyncResponse{SyncResponse: true}}); err != nil {
		return err
	}

	for {
		select {
		case <-stream.Context().Done():
			s.connector.log.Infof("Subscriber %s is gone", id)
			return nil
		case n, ok := <-ch:
			if !ok {
				return status.Error(codes.Unavailable, "gNMI connector is stopped")
			}
			v, ok := fromNotification(n)
			if !ok {
				continue
			}
			for _, sel := range selections {
				if !sel.matches(v.Name) {
					continue
				}
				if err := stream.Send(update(newNotification(v, sel.leaf))); err != nil {
					return err
				}
			}
		}
	}
}

func (s *Server) sendAll(stream gnmi.GNMI_SubscribeServer, gw gatewayReader, selections []selection) error {
	for _, sel := range selections {
		values, err := s.read(stream.Context(), gw, sel)
		if err != nil {
			return err
		}
		for _, v := range values {
			if err := stream.Send(update(newNotification(v, sel.leaf))); err != nil {
				return err
			}
		}
	}
	return nil
}

func update(n *gnmi.Notification) *gnmi.SubscribeResponse {
	return &gnmi.SubscribeResponse{Response: &gnmi.SubscribeResponse_Update{Update: n}}
}

// fromNotification returns the latest sample of a notification as a variable value
func fromNotification(n model.Notification) (model.VariableValue, bool) {
	latest, ok := n.Latest()
	if !ok {
		return model.VariableValue{}, false
	}
	timestamp := latest.SourceTimestamp
	if timestamp.IsZero() {
		timestamp = latest.ServerTimestamp
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return model.VariableValue{
		Name:       n.Name,
		SystemType: latest.Value.Type(),
		Value:      latest.Value,
		Timestamp:  timestamp,
		StatusCode: latest.StatusCode,
	}, true
}
