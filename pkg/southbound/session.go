// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package southbound is the contract with the OPC UA server session and its
// implementation on top of gopcua.
package southbound

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/onosproject/onos-opcgw/pkg/model"
)

// ObjectsFolder is the node browsing starts from
const ObjectsFolder = "i=85"

// Dialer opens sessions against the server
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// Session is a live connection to the server. Implementations must be safe
// for concurrent use.
type Session interface {
	// Namespaces returns the namespace table of the session
	Namespaces(ctx context.Context) ([]string, error)

	// Browse returns the forward hierarchical references of a node
	Browse(ctx context.Context, nodeID string) (BrowseResult, error)

	// BrowseNext continues a browse from a continuation point
	BrowseNext(ctx context.Context, continuationPoint []byte) (BrowseResult, error)

	// Read reads attributes; results are in request order
	Read(ctx context.Context, ids []ReadValueID) ([]model.DataValue, error)

	// Write writes values; status codes are in request order
	Write(ctx context.Context, values []WriteValue) ([]model.StatusCode, error)

	// Subscribe creates a subscription delivering data changes to handler
	Subscribe(ctx context.Context, params SubscriptionParams, handler func(ItemNotification)) (Subscription, error)

	// KeepAlive reports the health of the session
	KeepAlive() <-chan KeepAlive

	// Close terminates the session
	Close(ctx context.Context) error
}

// Subscription is a set of monitored items on the server
type Subscription interface {
	// Monitor adds items; status codes are in request order
	Monitor(ctx context.Context, items []MonitoredItem) ([]model.StatusCode, error)

	// Cancel deletes the subscription
	Cancel(ctx context.Context) error
}

// NodeClass of a browsed reference
type NodeClass int

const (
	NodeClassOther NodeClass = iota
	NodeClassObject
	NodeClassVariable
)

// IdentifierKind is the encoding of a node identifier
type IdentifierKind int

const (
	IdentifierOther IdentifierKind = iota
	IdentifierNumeric
	IdentifierString
)

// Reference is a browsed reference to a target node
type Reference struct {
	// NodeID is the full node id, namespace included
	NodeID string
	// Namespace is the server namespace index of the target
	Namespace uint16
	// Identifier is the node id without namespace, "i=..." or "s=..."
	Identifier     string
	IdentifierKind IdentifierKind
	NodeClass      NodeClass
	BrowseName     string
	DisplayName    string
}

// BrowseResult is one page of references
type BrowseResult struct {
	References        []Reference
	ContinuationPoint []byte
}

// AttributeID selects the attribute to read
type AttributeID uint32

const (
	AttributeValue     AttributeID = 13
	AttributeDataType  AttributeID = 14
	AttributeValueRank AttributeID = 15
)

// ReadValueID is one attribute of one node
type ReadValueID struct {
	NodeID      string
	AttributeID AttributeID
}

// WriteValue is a value to write to the value attribute of a node
type WriteValue struct {
	NodeID string
	Value  model.Value
}

// SubscriptionParams configures a subscription
type SubscriptionParams struct {
	PublishingInterval time.Duration
}

// MonitoredItem is a node monitored under a client chosen handle
type MonitoredItem struct {
	Handle uint32
	NodeID string
}

// ItemNotification is a data change of a monitored item
type ItemNotification struct {
	Handle uint32
	Value  model.DataValue
}

// KeepAlive is a periodic health report of the session
type KeepAlive struct {
	Status model.StatusCode
	Time   time.Time
}

// DataTypeID extracts the namespace 0 numeric id of a DataType attribute value
func DataTypeID(v model.Value) (uint32, bool) {
	if v.Type() != model.TypeString {
		return 0, false
	}
	s := v.String()
	if !strings.HasPrefix(s, "i=") {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "i="), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}
