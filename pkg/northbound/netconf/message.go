// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

/*
Copyright 2021. Alexis de Talhouët

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// This file is adapted from the source code provided in the repository
// https://github.com/openshift-telco/go-netconf-client/tree/main/netconf/message
// in which the Apache 2.0 license and the header of the file is
// maintained as is, see above.

package netconf

import "encoding/xml"

const (
	// BaseNamespace is the namespace of the NETCONF protocol elements
	BaseNamespace = "urn:ietf:params:xml:ns:netconf:base:1.0"

	// VariablesNamespace is the namespace of the variables data model
	VariablesNamespace = "urn:onosproject:opcgw:variables:1.0"
)

// message is the envelope of any client message; the operation is the first child of an rpc
type message struct {
	XMLName   xml.Name
	MessageID string    `xml:"message-id,attr"`
	Operation operation `xml:",any"`
}

type operation struct {
	XMLName xml.Name
}

type RPC struct {
	XMLName   xml.Name `xml:"rpc"`
	MessageID string   `xml:"message-id,attr"`
}

type RPCError struct {
	Type     string `xml:"error-type"`
	Tag      string `xml:"error-tag"`
	Severity string `xml:"error-severity"`
	Path     string `xml:"error-path,omitempty"`
	Message  string `xml:"error-message,omitempty"`
}

type RPCReply struct {
	XMLName   xml.Name   `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 rpc-reply"`
	MessageID string     `xml:"message-id,attr,omitempty"`
	Errors    []RPCError `xml:"rpc-error,omitempty"`
	Data      *Data      `xml:"data,omitempty"`
	Ok        *struct{}  `xml:"ok,omitempty"`
}

type Data struct {
	Variables *Variables
}

type Variables struct {
	XMLName  xml.Name   `xml:"urn:onosproject:opcgw:variables:1.0 variables"`
	Variable []Variable `xml:"variable"`
}

type Variable struct {
	Name      string `xml:"name"`
	Type      string `xml:"type,omitempty"`
	Value     string `xml:"value,omitempty"`
	Status    string `xml:"status,omitempty"`
	Timestamp string `xml:"timestamp,omitempty"`
}

type Filter struct {
	Type   string `xml:"type,attr,omitempty"`
	Select string `xml:"select,attr,omitempty"`
	Data   string `xml:",innerxml"`
}

type Datastore struct {
	Candidate *struct{} `xml:"candidate"`
	Running   *struct{} `xml:"running"`
}

type Get struct {
	RPC
	Filter *Filter `xml:"get>filter"`
}

type GetConfig struct {
	RPC
	Source *Datastore `xml:"get-config>source"`
	Filter *Filter    `xml:"get-config>filter"`
}

type Config struct {
	Config string `xml:",innerxml"`
}

type EditConfig struct {
	RPC
	Target           *Datastore `xml:"edit-config>target"`
	DefaultOperation string     `xml:"edit-config>default-operation,omitempty"`
	Config           *Config    `xml:"edit-config>config"`
}

type KillSession struct {
	RPC
	SessionID string `xml:"kill-session>session-id"`
}

type Hello struct {
	XMLName      xml.Name `xml:"urn:ietf:params:xml:ns:netconf:base:1.0 hello"`
	Capabilities []string `xml:"capabilities>capability"`
	SessionID    string   `xml:"session-id,omitempty"`
}

// clientHello accepts a hello with or without the base namespace
type clientHello struct {
	XMLName      xml.Name `xml:"hello"`
	Capabilities []string `xml:"capabilities>capability"`
}
