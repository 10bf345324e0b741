// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Value is a scalar tagged with its SystemType. The zero Value is null.
type Value struct {
	typ SystemType
	b   bool
	i   int64
	u   uint64
	f   float64
	s   string
	t   time.Time
}

// Null returns the null value
func Null() Value { return Value{} }

func NewBoolean(v bool) Value       { return Value{typ: TypeBoolean, b: v} }
func NewSByte(v int8) Value         { return Value{typ: TypeSByte, i: int64(v)} }
func NewByte(v uint8) Value         { return Value{typ: TypeByte, u: uint64(v)} }
func NewInt16(v int16) Value        { return Value{typ: TypeInt16, i: int64(v)} }
func NewUInt16(v uint16) Value      { return Value{typ: TypeUInt16, u: uint64(v)} }
func NewInt32(v int32) Value        { return Value{typ: TypeInt32, i: int64(v)} }
func NewUInt32(v uint32) Value      { return Value{typ: TypeUInt32, u: uint64(v)} }
func NewInt64(v int64) Value        { return Value{typ: TypeInt64, i: v} }
func NewUInt64(v uint64) Value      { return Value{typ: TypeUInt64, u: v} }
func NewFloat(v float32) Value      { return Value{typ: TypeFloat, f: float64(v)} }
func NewDouble(v float64) Value     { return Value{typ: TypeDouble, f: v} }
func NewString(v string) Value      { return Value{typ: TypeString, s: v} }
func NewDateTime(v time.Time) Value { return Value{typ: TypeDateTime, t: v.UTC()} }

// FromInterface lifts a Go scalar into a Value
func FromInterface(v interface{}) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		return NewBoolean(x), nil
	case int8:
		return NewSByte(x), nil
	case uint8:
		return NewByte(x), nil
	case int16:
		return NewInt16(x), nil
	case uint16:
		return NewUInt16(x), nil
	case int32:
		return NewInt32(x), nil
	case uint32:
		return NewUInt32(x), nil
	case int:
		return NewInt64(int64(x)), nil
	case int64:
		return NewInt64(x), nil
	case uint:
		return NewUInt64(uint64(x)), nil
	case uint64:
		return NewUInt64(x), nil
	case float32:
		return NewFloat(x), nil
	case float64:
		return NewDouble(x), nil
	case string:
		return NewString(x), nil
	case []byte:
		return NewString(string(x)), nil
	case time.Time:
		return NewDateTime(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return NewInt64(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Null(), errors.NewInvalid("invalid number '%s'", x.String())
		}
		return NewDouble(f), nil
	default:
		return Null(), errors.NewInvalid("unsupported value of type %T", v)
	}
}

// Type returns the tag of the value
func (v Value) Type() SystemType {
	return v.typ
}

// IsNull reports whether the value carries no data
func (v Value) IsNull() bool {
	return v.typ == TypeNull
}

// Interface returns the value as the matching Go scalar
func (v Value) Interface() interface{} {
	switch v.typ {
	case TypeBoolean:
		return v.b
	case TypeSByte:
		return int8(v.i)
	case TypeByte:
		return uint8(v.u)
	case TypeInt16:
		return int16(v.i)
	case TypeUInt16:
		return uint16(v.u)
	case TypeInt32:
		return int32(v.i)
	case TypeUInt32:
		return uint32(v.u)
	case TypeInt64:
		return v.i
	case TypeUInt64:
		return v.u
	case TypeFloat:
		return float32(v.f)
	case TypeDouble:
		return v.f
	case TypeString:
		return v.s
	case TypeDateTime:
		return v.t
	}
	return nil
}

// Float64 returns the value as a float64 when it is numeric or boolean
func (v Value) Float64() (float64, bool) {
	switch {
	case v.typ == TypeBoolean:
		if v.b {
			return 1, true
		}
		return 0, true
	case isSigned(v.typ):
		return float64(v.i), true
	case isUnsigned(v.typ):
		return float64(v.u), true
	case isFloat(v.typ):
		return v.f, true
	}
	return 0, false
}

// Equal reports whether both values have the same tag and content
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	if v.typ == TypeDateTime {
		return v.t.Equal(o.t)
	}
	return v.b == o.b && v.i == o.i && v.u == o.u && v.f == o.f && v.s == o.s
}

func (v Value) String() string {
	if v.IsNull() {
		return ""
	}
	text, _ := v.format()
	return text
}

// MarshalText returns the canonical text of the value
func (v Value) MarshalText() ([]byte, error) {
	text, err := v.format()
	return []byte(text), err
}

// ParseValue restores a value of type t from its canonical text
func ParseValue(t SystemType, text string) (Value, error) {
	if t == TypeNull {
		return Null(), nil
	}
	return NewString(text).Convert(t)
}

// Convert returns v converted to the target type. Integer conversions are
// range checked and floats are rounded half to even. Null converts to null.
func (v Value) Convert(target SystemType) (Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if !target.Valid() {
		return Null(), errors.NewInvalid("cannot convert to %s", target)
	}
	if v.typ == target {
		return v, nil
	}
	switch {
	case target == TypeBoolean:
		return v.toBoolean()
	case isSigned(target):
		return v.toSigned(target)
	case isUnsigned(target):
		return v.toUnsigned(target)
	case isFloat(target):
		return v.toFloat(target)
	case target == TypeString:
		text, err := v.format()
		if err != nil {
			return Null(), err
		}
		return NewString(text), nil
	case target == TypeDateTime:
		return v.toDateTime()
	}
	return Null(), v.mismatch(target)
}

func (v Value) mismatch(target SystemType) error {
	return errors.NewInvalid("type mismatch: cannot convert %s '%s' to %s", v.typ, v.String(), target)
}

func (v Value) format() (string, error) {
	switch {
	case v.typ == TypeNull:
		return "", nil
	case v.typ == TypeBoolean:
		return strconv.FormatBool(v.b), nil
	case isSigned(v.typ):
		return strconv.FormatInt(v.i, 10), nil
	case isUnsigned(v.typ):
		return strconv.FormatUint(v.u, 10), nil
	case v.typ == TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 32), nil
	case v.typ == TypeDouble:
		return strconv.FormatFloat(v.f, 'g', -1, 64), nil
	case v.typ == TypeString:
		return v.s, nil
	case v.typ == TypeDateTime:
		return v.t.Format(time.RFC3339Nano), nil
	}
	return "", errors.NewInvalid("unknown value type %d", int(v.typ))
}

func (v Value) toBoolean() (Value, error) {
	switch {
	case isSigned(v.typ):
		return NewBoolean(v.i != 0), nil
	case isUnsigned(v.typ):
		return NewBoolean(v.u != 0), nil
	case isFloat(v.typ):
		return NewBoolean(v.f != 0), nil
	case v.typ == TypeString:
		b, err := strconv.ParseBool(strings.TrimSpace(v.s))
		if err != nil {
			return Null(), v.mismatch(TypeBoolean)
		}
		return NewBoolean(b), nil
	}
	return Null(), v.mismatch(TypeBoolean)
}

func (v Value) toSigned(target SystemType) (Value, error) {
	lo, hi := signedRange(target)
	var n int64
	switch {
	case v.typ == TypeBoolean:
		if v.b {
			n = 1
		}
	case isSigned(v.typ):
		n = v.i
	case isUnsigned(v.typ):
		if v.u > uint64(hi) {
			return Null(), v.mismatch(target)
		}
		n = int64(v.u)
	case isFloat(v.typ):
		r := math.RoundToEven(v.f)
		if math.IsNaN(r) || r < float64(lo) || r >= -float64(lo) {
			return Null(), v.mismatch(target)
		}
		n = int64(r)
	case v.typ == TypeString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return Null(), v.mismatch(target)
		}
		n = parsed
	default:
		return Null(), v.mismatch(target)
	}
	if n < lo || n > hi {
		return Null(), v.mismatch(target)
	}
	return Value{typ: target, i: n}, nil
}

func (v Value) toUnsigned(target SystemType) (Value, error) {
	hi := unsignedMax(target)
	var n uint64
	switch {
	case v.typ == TypeBoolean:
		if v.b {
			n = 1
		}
	case isSigned(v.typ):
		if v.i < 0 {
			return Null(), v.mismatch(target)
		}
		n = uint64(v.i)
	case isUnsigned(v.typ):
		n = v.u
	case isFloat(v.typ):
		r := math.RoundToEven(v.f)
		if math.IsNaN(r) || r < 0 || r >= float64(hi)+1 {
			return Null(), v.mismatch(target)
		}
		n = uint64(r)
	case v.typ == TypeString:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v.s), 10, 64)
		if err != nil {
			return Null(), v.mismatch(target)
		}
		n = parsed
	default:
		return Null(), v.mismatch(target)
	}
	if n > hi {
		return Null(), v.mismatch(target)
	}
	return Value{typ: target, u: n}, nil
}

func (v Value) toFloat(target SystemType) (Value, error) {
	var f float64
	switch {
	case v.typ == TypeBoolean:
		if v.b {
			f = 1
		}
	case isSigned(v.typ):
		f = float64(v.i)
	case isUnsigned(v.typ):
		f = float64(v.u)
	case isFloat(v.typ):
		f = v.f
	case v.typ == TypeString:
		bits := 64
		if target == TypeFloat {
			bits = 32
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.s), bits)
		if err != nil {
			return Null(), v.mismatch(target)
		}
		f = parsed
	default:
		return Null(), v.mismatch(target)
	}
	if target == TypeFloat {
		if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
			return Null(), v.mismatch(target)
		}
		f = float64(float32(f))
	}
	return Value{typ: target, f: f}, nil
}

func (v Value) toDateTime() (Value, error) {
	if v.typ != TypeString {
		return Null(), v.mismatch(TypeDateTime)
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v.s))
	if err != nil {
		return Null(), v.mismatch(TypeDateTime)
	}
	return NewDateTime(t), nil
}

func isSigned(t SystemType) bool {
	return t == TypeSByte || t == TypeInt16 || t == TypeInt32 || t == TypeInt64
}

func isUnsigned(t SystemType) bool {
	return t == TypeByte || t == TypeUInt16 || t == TypeUInt32 || t == TypeUInt64
}

func isFloat(t SystemType) bool {
	return t == TypeFloat || t == TypeDouble
}

func signedRange(t SystemType) (int64, int64) {
	switch t {
	case TypeSByte:
		return math.MinInt8, math.MaxInt8
	case TypeInt16:
		return math.MinInt16, math.MaxInt16
	case TypeInt32:
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func unsignedMax(t SystemType) uint64 {
	switch t {
	case TypeByte:
		return math.MaxUint8
	case TypeUInt16:
		return math.MaxUint16
	case TypeUInt32:
		return math.MaxUint32
	}
	return math.MaxUint64
}

// GoString implements fmt.GoStringer for debugging output
func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.typ, v.String())
}
