// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"
)

// NamespaceNotFound is the server index of a namespace that the current
// session does not know
const NamespaceNotFound = -1

// NodeRecord is a discovered variable as stored in the cache
type NodeRecord struct {
	Name                   string
	Identifier             string
	InternalNamespaceIndex int
	ClassType              string
	SystemType             SystemType
	References             []string
}

// NamespaceRecord maps the stable internal index of a namespace to its URI and
// to the index the live session uses for it
type NamespaceRecord struct {
	InternalIndex      int
	URI                string
	CurrentServerIndex int
}

// ServerNode is a NodeRecord resolved against the namespace table of the
// current session. It must not outlive the session it was built for.
type ServerNode struct {
	NodeRecord
	CurrentServerIndex int
	ServerIdentifier   string
}

// NewServerNode resolves a node with the given session namespace index
func NewServerNode(node NodeRecord, serverIndex int) ServerNode {
	return ServerNode{
		NodeRecord:         node,
		CurrentServerIndex: serverIndex,
		ServerIdentifier:   fmt.Sprintf("ns=%d;%s", serverIndex, node.Identifier),
	}
}

// Resolved reports whether the node namespace exists in the current session
func (s ServerNode) Resolved() bool {
	return s.CurrentServerIndex != NamespaceNotFound
}

// DataValue is a value sample as delivered by the server
type DataValue struct {
	Value           Value
	StatusCode      StatusCode
	SourceTimestamp time.Time
	ServerTimestamp time.Time
}

// VariableValue is the latest known value of a variable
type VariableValue struct {
	Name       string
	SystemType SystemType
	Value      Value
	Timestamp  time.Time
	StatusCode StatusCode
}

// ReadResponse is the per-name result of a cache read
type ReadResponse struct {
	Name       string
	Success    bool
	StatusCode StatusCode
	SystemType SystemType
	Value      Value
	Timestamp  time.Time
}

// NewReadFailure returns a failed read response for name
func NewReadFailure(name string, code StatusCode) ReadResponse {
	return ReadResponse{
		Name:       name,
		StatusCode: code,
	}
}

// WriteResponse is the per-name result of a write to the server
type WriteResponse struct {
	Name       string
	Success    bool
	StatusCode StatusCode
	Value      Value
}

// NewWriteResponse builds a write response whose success follows the status quality
func NewWriteResponse(name string, value Value, code StatusCode) WriteResponse {
	return WriteResponse{
		Name:       name,
		Success:    !code.IsBad(),
		StatusCode: code,
		Value:      value,
	}
}

// Notification is a change event for one variable. The values are copied at
// construction so that every consumer sees the same immutable samples.
type Notification struct {
	Name   string
	Values []DataValue
}

// NewNotification builds a notification owning a copy of values
func NewNotification(name string, values ...DataValue) Notification {
	copied := make([]DataValue, len(values))
	copy(copied, values)
	return Notification{
		Name:   name,
		Values: copied,
	}
}

// NewStatusNotification builds a value-less notification carrying only a status
func NewStatusNotification(name string, code StatusCode, timestamp time.Time) Notification {
	return NewNotification(name, DataValue{
		StatusCode:      code,
		SourceTimestamp: timestamp,
		ServerTimestamp: timestamp,
	})
}

// Latest returns the most recent sample of the notification
func (n Notification) Latest() (DataValue, bool) {
	if len(n.Values) == 0 {
		return DataValue{}, false
	}
	return n.Values[len(n.Values)-1], true
}
