// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// SystemType is the canonical scalar type tag of a variable. The numeric
// values match the OPC UA built-in data type ids.
type SystemType int

const (
	TypeNull SystemType = iota
	TypeBoolean
	TypeSByte
	TypeByte
	TypeInt16
	TypeUInt16
	TypeInt32
	TypeUInt32
	TypeInt64
	TypeUInt64
	TypeFloat
	TypeDouble
	TypeString
	TypeDateTime
)

var systemTypeNames = [...]string{
	TypeNull:     "Null",
	TypeBoolean:  "Boolean",
	TypeSByte:    "SByte",
	TypeByte:     "Byte",
	TypeInt16:    "Int16",
	TypeUInt16:   "UInt16",
	TypeInt32:    "Int32",
	TypeUInt32:   "UInt32",
	TypeInt64:    "Int64",
	TypeUInt64:   "UInt64",
	TypeFloat:    "Float",
	TypeDouble:   "Double",
	TypeString:   "String",
	TypeDateTime: "DateTime",
}

// aliases accepted when parsing type names, keyed in lower case
var systemTypeAliases = map[string]SystemType{
	"bool":   TypeBoolean,
	"int":    TypeInt16,
	"single": TypeFloat,
}

func (t SystemType) String() string {
	if t < 0 || int(t) >= len(systemTypeNames) {
		return "Unknown"
	}
	return systemTypeNames[t]
}

// Valid reports whether t is one of the supported scalar types
func (t SystemType) Valid() bool {
	return t > TypeNull && t <= TypeDateTime
}

// Numeric reports whether t is an integer or floating point type
func (t SystemType) Numeric() bool {
	return t >= TypeSByte && t <= TypeDouble
}

// ParseSystemType parses a canonical name, a "System.*" name or an alias
func ParseSystemType(name string) (SystemType, error) {
	n := strings.TrimSpace(name)
	n = strings.TrimPrefix(n, "System.")
	lower := strings.ToLower(n)
	for t := TypeBoolean; t <= TypeDateTime; t++ {
		if strings.ToLower(systemTypeNames[t]) == lower {
			return t, nil
		}
	}
	if t, ok := systemTypeAliases[lower]; ok {
		return t, nil
	}
	return TypeNull, errors.NewInvalid("unsupported system type '%s'", name)
}

// FromDataTypeID maps a namespace 0 built-in data type id to a SystemType
func FromDataTypeID(id uint32) (SystemType, bool) {
	t := SystemType(id)
	if !t.Valid() {
		return TypeNull, false
	}
	return t, true
}
