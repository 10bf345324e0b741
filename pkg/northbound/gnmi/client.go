// SPDX-FileCopyrightText: 2020-present Open Networking Foundation <info@opennetworking.org>
//
// SPDX-License-Identifier: Apache-2.0
//

package gnmi

import (
	"context"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/grpc/retry"
	"github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

// Client makes gNMI calls to the gateway
type Client interface {
	Capabilities(ctx context.Context) (*gnmi.CapabilityResponse, error)
	Get(ctx context.Context, request *gnmi.GetRequest) (*gnmi.GetResponse, error)
	Set(ctx context.Context, request *gnmi.SetRequest) (*gnmi.SetResponse, error)
	Subscribe(ctx context.Context) (gnmi.GNMI_SubscribeClient, error)
	Close() error
}

type client struct {
	conn *grpc.ClientConn
	gnmi gnmi.GNMIClient
}

// NewClient dials a gateway gNMI endpoint; unary calls are retried while the endpoint is unavailable
func NewClient(endpoint string, opts ...grpc.DialOption) (Client, error) {
	optsWithRetry := []grpc.DialOption{
		grpc.WithUnaryInterceptor(retry.RetryingUnaryClientInterceptor(
			retry.WithRetryOn(codes.Unavailable),
			retry.WithInterval(100*time.Millisecond))),
	}
	optsWithRetry = append(opts, optsWithRetry...)
	conn, err := grpc.Dial(endpoint, optsWithRetry...)
	if err != nil {
		return nil, err
	}
	return &client{
		conn: conn,
		gnmi: gnmi.NewGNMIClient(conn),
	}, nil
}

func (c *client) Capabilities(ctx context.Context) (*gnmi.CapabilityResponse, error) {
	return c.gnmi.Capabilities(ctx, &gnmi.CapabilityRequest{})
}

// Get passes a gNMI GetRequest to the server which synchronously replies with a GetResponse
func (c *client) Get(ctx context.Context, request *gnmi.GetRequest) (*gnmi.GetResponse, error) {
	return c.gnmi.Get(ctx, request)
}

// Set passes a gNMI SetRequest to the server which synchronously replies with a SetResponse
func (c *client) Set(ctx context.Context, request *gnmi.SetRequest) (*gnmi.SetResponse, error) {
	return c.gnmi.Set(ctx, request)
}

func (c *client) Subscribe(ctx context.Context) (gnmi.GNMI_SubscribeClient, error) {
	return c.gnmi.Subscribe(ctx)
}

func (c *client) Close() error {
	return c.conn.Close()
}
