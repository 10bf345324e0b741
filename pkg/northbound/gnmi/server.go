// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package gnmi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const gnmiVersion = "0.7.0"

var supportedModels = []*gnmi.ModelData{
	{Name: "opcgw-variables", Organization: "Open Networking Foundation", Version: "1.0.0"},
}

// Server implements the gNMI service on top of the gateway
type Server struct {
	gnmi.UnimplementedGNMIServer
	connector *Connector
}

func (s *Server) Capabilities(ctx context.Context, request *gnmi.CapabilityRequest) (*gnmi.CapabilityResponse, error) {
	return &gnmi.CapabilityResponse{
		SupportedModels:    supportedModels,
		SupportedEncodings: []gnmi.Encoding{gnmi.Encoding_PROTO, gnmi.Encoding_JSON},
		GNMIVersion:        gnmiVersion,
	}, nil
}

func (s *Server) Get(ctx context.Context, request *gnmi.GetRequest) (*gnmi.GetResponse, error) {
	gw, err := s.connector.gateway()
	if err != nil {
		return nil, errors.Status(err).Err()
	}

	paths := request.GetPath()
	if len(paths) == 0 {
		paths = []*gnmi.Path{{}}
	}

	response := &gnmi.GetResponse{}
	for _, path := range paths {
		sel, err := parsePath(request.GetPrefix(), path)
		if err != nil {
			return nil, errors.Status(err).Err()
		}
		values, err := s.read(ctx, gw, sel)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			response.Notification = append(response.Notification, newNotification(v, sel.leaf))
		}
	}
	return response, nil
}

// read returns the cached values a selection designates
func (s *Server) read(ctx context.Context, gw gatewayReader, sel selection) ([]model.VariableValue, error) {
	if sel.name == "" {
		values, err := gw.Variables(ctx)
		if err != nil {
			return nil, errors.Status(err).Err()
		}
		return values, nil
	}

	var values []model.VariableValue
	for _, resp := range gw.ReadValueFromCache(ctx, []string{sel.name}) {
		if resp.StatusCode == model.StatusBadNoEntryExists {
			return nil, status.Errorf(codes.NotFound, "%s: %s", resp.Name, resp.StatusCode)
		}
		values = append(values, model.VariableValue{
			Name:       resp.Name,
			SystemType: resp.SystemType,
			Value:      resp.Value,
			Timestamp:  resp.Timestamp,
			StatusCode: resp.StatusCode,
		})
	}
	return values, nil
}

type gatewayReader interface {
	ReadValueFromCache(ctx context.Context, names []string) []model.ReadResponse
	Variables(ctx context.Context) ([]model.VariableValue, error)
}

func (s *Server) Set(ctx context.Context, request *gnmi.SetRequest) (*gnmi.SetResponse, error) {
	gw, err := s.connector.gateway()
	if err != nil {
		return nil, errors.Status(err).Err()
	}
	if len(request.GetDelete()) > 0 {
		return nil, status.Error(codes.Unimplemented, "variables cannot be deleted")
	}

	var names []string
	var values []model.Value
	var results []*gnmi.UpdateResult
	collect := func(updates []*gnmi.Update, op gnmi.UpdateResult_Operation) error {
		for _, update := range updates {
			sel, err := parsePath(request.GetPrefix(), update.GetPath())
			if err != nil {
				return err
			}
			if sel.name == "" || (sel.leaf != "" && sel.leaf != valueLeaf) {
				return errors.NewInvalid("only the value of a single variable can be set")
			}
			value, err := fromTypedValue(update.GetVal())
			if err != nil {
				return err
			}
			names = append(names, sel.name)
			values = append(values, value)
			results = append(results, &gnmi.UpdateResult{Path: update.GetPath(), Op: op})
		}
		return nil
	}
	if err := collect(request.GetReplace(), gnmi.UpdateResult_REPLACE); err != nil {
		return nil, errors.Status(err).Err()
	}
	if err := collect(request.GetUpdate(), gnmi.UpdateResult_UPDATE); err != nil {
		return nil, errors.Status(err).Err()
	}
	if len(names) == 0 {
		return nil, status.Error(codes.InvalidArgument, "nothing to set")
	}

	var failed []string
	for _, resp := range gw.WriteToOPCServer(ctx, names, values) {
		if !resp.Success {
			failed = append(failed, fmt.Sprintf("%s: %s", resp.Name, resp.StatusCode))
		}
	}
	if len(failed) > 0 {
		return nil, status.Errorf(codes.Aborted, "write failed for %s", strings.Join(failed, ", "))
	}

	return &gnmi.SetResponse{
		Prefix:    request.GetPrefix(),
		Response:  results,
		Timestamp: time.Now().UnixNano(),
	}, nil
}
