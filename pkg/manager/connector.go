// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package manager

//go:generate mockgen -source=connector.go -destination=mock_connector_test.go -package=manager

import (
	"context"

	"github.com/onosproject/onos-opcgw/pkg/config"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

// Gateway is the command surface offered to connectors
type Gateway interface {
	// ReadValueFromCache returns the cached value of each name
	ReadValueFromCache(ctx context.Context, names []string) []model.ReadResponse

	// WriteToOPCServer writes values to the server; every name gets exactly one response
	WriteToOPCServer(ctx context.Context, names []string, values []model.Value) []model.WriteResponse

	// Variables lists the cached values
	Variables(ctx context.Context) ([]model.VariableValue, error)

	// Namespaces lists the namespace table of the cache
	Namespaces(ctx context.Context) ([]model.NamespaceRecord, error)

	// Shutdown asks the gateway to stop
	Shutdown(reason string)
}

// Connector is a downstream consumer of the variables
type Connector interface {
	Name() string

	// Init is called once the cache is populated; ctx is cancelled on shutdown
	Init(ctx context.Context, cfg config.Config, gw Gateway) error

	// OnNotification must return quickly
	OnNotification(sourceID string, n model.Notification)

	Clean() error
}
