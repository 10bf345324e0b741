// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

// Sample is one value of a variable as published on the broker
type Sample struct {
	Value           interface{} `json:"value"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	SourceTimestamp *time.Time  `json:"sourceTimestamp,omitempty"`
	ServerTimestamp *time.Time  `json:"serverTimestamp,omitempty"`
}

// NotificationMessage is published on <prefix>.<variable> for every change
type NotificationMessage struct {
	Name    string   `json:"name"`
	Source  string   `json:"source"`
	Samples []Sample `json:"samples"`
}

// ReadRequest asks for the cached values of Names, or of every variable when empty
type ReadRequest struct {
	Names []string `json:"names,omitempty"`
}

// Variable is the cached state of a variable in a read reply
type Variable struct {
	Name      string      `json:"name"`
	Success   bool        `json:"success"`
	Type      string      `json:"type,omitempty"`
	Value     interface{} `json:"value,omitempty"`
	Status    string      `json:"status"`
	Timestamp *time.Time  `json:"timestamp,omitempty"`
}

// ReadReply answers a ReadRequest
type ReadReply struct {
	Variables []Variable `json:"variables,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// WriteItem is one variable to write; the value is converted to the variable type
type WriteItem struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// WriteRequest asks the gateway to write values to the server
type WriteRequest struct {
	Variables []WriteItem `json:"variables"`
}

// WriteResult is the outcome of one WriteItem
type WriteResult struct {
	Name    string      `json:"name"`
	Success bool        `json:"success"`
	Status  string      `json:"status"`
	Value   interface{} `json:"value,omitempty"`
}

// WriteReply answers a WriteRequest
type WriteReply struct {
	Results []WriteResult `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// subjectToken maps a variable name onto a single NATS subject token
func subjectToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, name)
}

func newNotificationMessage(sourceID string, n model.Notification) NotificationMessage {
	msg := NotificationMessage{
		Name:    n.Name,
		Source:  sourceID,
		Samples: make([]Sample, 0, len(n.Values)),
	}
	for _, v := range n.Values {
		msg.Samples = append(msg.Samples, Sample{
			Value:           v.Value.Interface(),
			Type:            v.Value.Type().String(),
			Status:          v.StatusCode.String(),
			SourceTimestamp: timestamp(v.SourceTimestamp),
			ServerTimestamp: timestamp(v.ServerTimestamp),
		})
	}
	return msg
}

func newVariable(r model.ReadResponse) Variable {
	v := Variable{
		Name:    r.Name,
		Success: r.Success,
		Status:  r.StatusCode.String(),
	}
	if r.Success {
		v.Type = r.SystemType.String()
		v.Value = r.Value.Interface()
		v.Timestamp = timestamp(r.Timestamp)
	}
	return v
}

func timestamp(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// decodeValue reads a JSON scalar; integers stay integers
func decodeValue(raw json.RawMessage) (model.Value, error) {
	if len(raw) == 0 {
		return model.Null(), errors.NewInvalid("missing value")
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var x interface{}
	if err := decoder.Decode(&x); err != nil {
		return model.Null(), errors.NewInvalid("malformed value: %v", err)
	}
	if x == nil {
		return model.Null(), errors.NewInvalid("null value")
	}
	return model.FromInterface(x)
}
