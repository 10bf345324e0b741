// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package store

// Entry is a NETCONF session record
type Entry struct {
	Key   Key
	Value *SessionValue
}

// Event reports a change of an entry to the watchers
type Event struct {
	Key   Key
	Value *Entry
	Type  EventType
}

type EventType int

const (
	// None none session event
	None EventType = iota
	// Created created session event
	Created
	// Updated updated session event
	Updated
	// Deleted deleted session event
	Deleted
)

func (e EventType) String() string {
	return [...]string{"None", "Created", "Updated", "Deleted"}[e]
}

// Operation is an RPC handled in a session
type Operation struct {
	Name      string
	Timestamp uint64
	Namespace string
	Status    bool
}

// Key identifies a NETCONF session
type Key struct {
	SessionID string
}

// SessionValue holds the state of a NETCONF session, operations are keyed by message id
type SessionValue struct {
	Alive      bool
	Operations map[string]Operation
}

// Clone returns a deep copy of the session value
func (v *SessionValue) Clone() *SessionValue {
	clone := &SessionValue{
		Alive:      v.Alive,
		Operations: make(map[string]Operation, len(v.Operations)),
	}
	for id, op := range v.Operations {
		clone.Operations[id] = op
	}
	return clone
}
