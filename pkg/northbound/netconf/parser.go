// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package netconf

import (
	"bytes"
	"encoding/json"
	"strings"

	xj "github.com/basgys/goxml2json"
	gnxi "github.com/google/gnxi/utils/xpath"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
)

const (
	variablesElem = "variables"
	variableElem  = "variable"
	nameKey       = "name"
)

// entry is a variable of a subtree filter or of an edit-config payload
type entry struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// selectVariables returns the names a filter selects, nil when it selects every variable
func selectVariables(filter *Filter) ([]string, error) {
	if filter == nil {
		return nil, nil
	}
	switch filter.Type {
	case "xpath":
		return selectXPath(filter.Select)
	case "", "subtree":
		if strings.TrimSpace(filter.Data) == "" {
			return nil, nil
		}
		entries, err := decodeVariables(filter.Data)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, e := range entries {
			if e.Name == "" {
				return nil, nil
			}
			names = append(names, e.Name)
		}
		return names, nil
	default:
		return nil, errors.NewInvalid("unsupported filter type '%s'", filter.Type)
	}
}

func selectXPath(xpath string) ([]string, error) {
	if xpath == "" || xpath == "/" {
		return nil, nil
	}
	path, err := gnxi.ToGNMIPath(xpath)
	if err != nil {
		return nil, errors.NewInvalid("invalid xpath '%s': %v", xpath, err)
	}

	elems := path.GetElem()
	if len(elems) == 0 || len(elems) > 2 || localName(elems[0].GetName()) != variablesElem {
		return nil, errors.NewInvalid("xpath '%s' does not select variables", xpath)
	}
	if len(elems) == 1 {
		return nil, nil
	}
	if localName(elems[1].GetName()) != variableElem {
		return nil, errors.NewInvalid("xpath '%s' does not select variables", xpath)
	}
	name, ok := elems[1].GetKey()[nameKey]
	name = strings.Trim(name, `'"`)
	if !ok || name == "*" || name == "" {
		return nil, nil
	}
	return []string{name}, nil
}

func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// removeAttr drops the attributes, namespace declarations included, from a decoded document
func removeAttr(n *xj.Node) {
	prefix := "-"
	for k, v := range n.Children {
		if strings.HasPrefix(k, prefix) {
			delete(n.Children, k)
		} else {
			for _, n := range v {
				removeAttr(n)
			}
		}
	}
}

// decodeVariables decodes a <variables><variable>... document
func decodeVariables(document string) ([]entry, error) {
	root := &xj.Node{}
	err := xj.NewDecoder(
		strings.NewReader(document),
		xj.WithAttrPrefix("-"),
	).Decode(root)
	if err != nil {
		return nil, errors.NewInvalid("malformed variables: %v", err)
	}

	removeAttr(root)

	jsonVal := new(bytes.Buffer)
	if err := xj.NewEncoder(jsonVal).Encode(root); err != nil {
		return nil, errors.NewInvalid("malformed variables: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(jsonVal.Bytes(), &doc); err != nil {
		return nil, errors.NewInvalid("malformed variables: %v", err)
	}
	raw, ok := doc[variablesElem]
	if !ok {
		return nil, errors.NewInvalid("missing %s element", variablesElem)
	}
	var variables map[string]json.RawMessage
	if err := json.Unmarshal(raw, &variables); err != nil {
		// <variables/> decodes to an empty string
		return nil, nil
	}
	raw, ok = variables[variableElem]
	if !ok {
		return nil, nil
	}

	items := []json.RawMessage{raw}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.NewInvalid("malformed variables: %v", err)
		}
	}

	entries := make([]entry, 0, len(items))
	for _, item := range items {
		var e entry
		// an empty <variable/> decodes to a string
		if bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			if err := json.Unmarshal(item, &e); err != nil {
				return nil, errors.NewInvalid("malformed variable: %v", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseEditConfig returns the names and values of an edit-config request
func parseEditConfig(request *EditConfig) ([]string, []model.Value, error) {
	if request.Target != nil && request.Target.Candidate != nil {
		return nil, nil, errors.NewNotSupported("only the running datastore can be edited")
	}
	if request.Config == nil || strings.TrimSpace(request.Config.Config) == "" {
		return nil, nil, errors.NewInvalid("edit-config without config")
	}

	entries, err := decodeVariables(request.Config.Config)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, errors.NewInvalid("edit-config without variables")
	}

	names := make([]string, 0, len(entries))
	values := make([]model.Value, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, nil, errors.NewInvalid("variable without name")
		}
		if e.Value == nil {
			return nil, nil, errors.NewInvalid("variable %s without value", e.Name)
		}
		value, err := model.FromInterface(e.Value)
		if err != nil {
			return nil, nil, err
		}
		names = append(names, e.Name)
		values = append(values, value)
	}
	return names, values, nil
}
