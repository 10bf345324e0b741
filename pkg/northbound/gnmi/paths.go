// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package gnmi

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/openconfig/gnmi/proto/gnmi"
)

const (
	variablesElem = "variables"
	variableElem  = "variable"
	nameKey       = "name"

	valueLeaf  = "value"
	statusLeaf = "status"
	typeLeaf   = "type"
)

// selection is what a path designates: one or every variable, one or every leaf
type selection struct {
	name string
	leaf string
}

func (s selection) matches(name string) bool {
	return s.name == "" || s.name == name
}

func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// parsePath resolves path relative to prefix into a selection
func parsePath(prefix, path *gnmi.Path) (selection, error) {
	elems := append(append([]*gnmi.PathElem{}, prefix.GetElem()...), path.GetElem()...)
	var sel selection
	switch {
	case len(elems) == 0:
		return sel, nil
	case localName(elems[0].GetName()) != variablesElem:
		return sel, errors.NewInvalid("path %s does not designate variables", pathString(elems))
	case len(elems) == 1:
		return sel, nil
	case localName(elems[1].GetName()) != variableElem || len(elems) > 3:
		return sel, errors.NewInvalid("path %s does not designate variables", pathString(elems))
	}

	if name, ok := elems[1].GetKey()[nameKey]; ok && name != "*" {
		sel.name = name
	}
	if len(elems) == 3 {
		switch leaf := localName(elems[2].GetName()); leaf {
		case valueLeaf, statusLeaf, typeLeaf:
			sel.leaf = leaf
		default:
			return sel, errors.NewInvalid("unknown leaf %s", leaf)
		}
	}
	return sel, nil
}

func pathString(elems []*gnmi.PathElem) string {
	var b strings.Builder
	for _, e := range elems {
		b.WriteString("/")
		b.WriteString(e.GetName())
		for k, v := range e.GetKey() {
			b.WriteString("[" + k + "=" + v + "]")
		}
	}
	return b.String()
}

// variablePath returns /variables/variable[name=<name>]
func variablePath(name string) *gnmi.Path {
	return &gnmi.Path{
		Elem: []*gnmi.PathElem{
			{Name: variablesElem},
			{Name: variableElem, Key: map[string]string{nameKey: name}},
		},
	}
}

func leafPath(leaf string) *gnmi.Path {
	return &gnmi.Path{Elem: []*gnmi.PathElem{{Name: leaf}}}
}

// newNotification builds the notification of a variable restricted to leaf, every leaf when empty
func newNotification(v model.VariableValue, leaf string) *gnmi.Notification {
	timestamp := v.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	n := &gnmi.Notification{
		Timestamp: timestamp.UnixNano(),
		Prefix:    variablePath(v.Name),
	}
	if (leaf == "" || leaf == valueLeaf) && !v.Value.IsNull() {
		n.Update = append(n.Update, &gnmi.Update{Path: leafPath(valueLeaf), Val: typedValue(v.Value)})
	}
	if leaf == "" || leaf == statusLeaf {
		n.Update = append(n.Update, &gnmi.Update{
			Path: leafPath(statusLeaf),
			Val:  &gnmi.TypedValue{Value: &gnmi.TypedValue_StringVal{StringVal: v.StatusCode.String()}},
		})
	}
	if (leaf == "" || leaf == typeLeaf) && v.SystemType != model.TypeNull {
		n.Update = append(n.Update, &gnmi.Update{
			Path: leafPath(typeLeaf),
			Val:  &gnmi.TypedValue{Value: &gnmi.TypedValue_StringVal{StringVal: v.SystemType.String()}},
		})
	}
	return n
}

func typedValue(v model.Value) *gnmi.TypedValue {
	switch x := v.Interface().(type) {
	case bool:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_BoolVal{BoolVal: x}}
	case int8:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_IntVal{IntVal: int64(x)}}
	case int16:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_IntVal{IntVal: int64(x)}}
	case int32:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_IntVal{IntVal: int64(x)}}
	case int64:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_IntVal{IntVal: x}}
	case uint8:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_UintVal{UintVal: uint64(x)}}
	case uint16:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_UintVal{UintVal: uint64(x)}}
	case uint32:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_UintVal{UintVal: uint64(x)}}
	case uint64:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_UintVal{UintVal: x}}
	case float32:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_DoubleVal{DoubleVal: float64(x)}}
	case float64:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_DoubleVal{DoubleVal: x}}
	default:
		return &gnmi.TypedValue{Value: &gnmi.TypedValue_StringVal{StringVal: v.String()}}
	}
}

// fromTypedValue lifts a gNMI scalar into a Value
func fromTypedValue(tv *gnmi.TypedValue) (model.Value, error) {
	switch v := tv.GetValue().(type) {
	case *gnmi.TypedValue_BoolVal:
		return model.NewBoolean(v.BoolVal), nil
	case *gnmi.TypedValue_IntVal:
		return model.NewInt64(v.IntVal), nil
	case *gnmi.TypedValue_UintVal:
		return model.NewUInt64(v.UintVal), nil
	case *gnmi.TypedValue_FloatVal:
		return model.NewFloat(v.FloatVal), nil
	case *gnmi.TypedValue_DoubleVal:
		return model.NewDouble(v.DoubleVal), nil
	case *gnmi.TypedValue_StringVal:
		return model.NewString(v.StringVal), nil
	case *gnmi.TypedValue_AsciiVal:
		return model.NewString(v.AsciiVal), nil
	case *gnmi.TypedValue_JsonVal:
		return fromJSON(v.JsonVal)
	case *gnmi.TypedValue_JsonIetfVal:
		return fromJSON(v.JsonIetfVal)
	default:
		return model.Null(), errors.NewInvalid("unsupported value %T", tv.GetValue())
	}
}

func fromJSON(raw []byte) (model.Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var x interface{}
	if err := decoder.Decode(&x); err != nil {
		return model.Null(), errors.NewInvalid("malformed json value: %v", err)
	}
	if x == nil {
		return model.Null(), errors.NewInvalid("null value")
	}
	return model.FromInterface(x)
}
