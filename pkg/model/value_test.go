// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	ts := time.Date(2023, 5, 4, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   Value
		target  SystemType
		want    Value
		wantErr bool
	}{
		{name: "int to double", value: NewInt64(72), target: TypeDouble, want: NewDouble(72)},
		{name: "double rounds half to even", value: NewDouble(2.5), target: TypeInt16, want: NewInt16(2)},
		{name: "double rounds up", value: NewDouble(3.5), target: TypeInt32, want: NewInt32(4)},
		{name: "int16 overflow", value: NewInt64(40000), target: TypeInt16, wantErr: true},
		{name: "negative to unsigned", value: NewInt32(-1), target: TypeUInt32, wantErr: true},
		{name: "uint64 to int64 overflow", value: NewUInt64(math.MaxUint64), target: TypeInt64, wantErr: true},
		{name: "byte from int", value: NewInt64(255), target: TypeByte, want: NewByte(255)},
		{name: "sbyte overflow", value: NewInt64(128), target: TypeSByte, wantErr: true},
		{name: "nan to int", value: NewDouble(math.NaN()), target: TypeInt64, wantErr: true},
		{name: "non zero is true", value: NewDouble(0.1), target: TypeBoolean, want: NewBoolean(true)},
		{name: "zero is false", value: NewUInt16(0), target: TypeBoolean, want: NewBoolean(false)},
		{name: "bool to int", value: NewBoolean(true), target: TypeInt32, want: NewInt32(1)},
		{name: "string to bool", value: NewString("true"), target: TypeBoolean, want: NewBoolean(true)},
		{name: "string to int", value: NewString(" 12 "), target: TypeInt32, want: NewInt32(12)},
		{name: "bad string to int", value: NewString("twelve"), target: TypeInt32, wantErr: true},
		{name: "decimal string to int", value: NewString("1.5"), target: TypeInt32, wantErr: true},
		{name: "string to float", value: NewString("1.5"), target: TypeFloat, want: NewFloat(1.5)},
		{name: "double too large for float", value: NewDouble(1e300), target: TypeFloat, wantErr: true},
		{name: "int to string", value: NewInt16(-3), target: TypeString, want: NewString("-3")},
		{name: "datetime to string", value: NewDateTime(ts), target: TypeString, want: NewString("2023-05-04T10:30:00Z")},
		{name: "string to datetime", value: NewString("2023-05-04T10:30:00Z"), target: TypeDateTime, want: NewDateTime(ts)},
		{name: "datetime to int", value: NewDateTime(ts), target: TypeInt64, wantErr: true},
		{name: "int to datetime", value: NewInt64(1), target: TypeDateTime, wantErr: true},
		{name: "datetime to bool", value: NewDateTime(ts), target: TypeBoolean, wantErr: true},
		{name: "null stays null", value: Null(), target: TypeInt32, want: Null()},
		{name: "same type", value: NewString("x"), target: TypeString, want: NewString("x")},
		{name: "invalid target", value: NewString("x"), target: TypeNull, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Convert(tt.target)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %#v got %#v", tt.want, got)
		})
	}
}

func TestFromInterface(t *testing.T) {
	v, err := FromInterface(int16(5))
	require.NoError(t, err)
	assert.Equal(t, TypeInt16, v.Type())
	assert.Equal(t, int16(5), v.Interface())

	v, err = FromInterface(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, TypeInt64, v.Type())

	v, err = FromInterface(json.Number("4.2"))
	require.NoError(t, err)
	assert.Equal(t, TypeDouble, v.Type())

	v, err = FromInterface(nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = FromInterface(struct{}{})
	assert.True(t, errors.IsInvalid(err))
}

func TestTextRoundTrip(t *testing.T) {
	values := []Value{
		NewBoolean(true),
		NewSByte(-8),
		NewUInt64(math.MaxUint64),
		NewFloat(0.1),
		NewDouble(math.Pi),
		NewString("hello world"),
		NewDateTime(time.Date(2020, 1, 2, 3, 4, 5, 6, time.UTC)),
	}
	for _, v := range values {
		text, err := v.MarshalText()
		require.NoError(t, err)
		restored, err := ParseValue(v.Type(), string(text))
		require.NoError(t, err)
		assert.True(t, v.Equal(restored), "%#v != %#v", v, restored)
	}
}

func TestFloat64(t *testing.T) {
	f, ok := NewUInt32(7).Float64()
	assert.True(t, ok)
	assert.Equal(t, float64(7), f)

	f, ok = NewBoolean(true).Float64()
	assert.True(t, ok)
	assert.Equal(t, float64(1), f)

	_, ok = NewString("7").Float64()
	assert.False(t, ok)
}

func TestParseSystemType(t *testing.T) {
	tests := map[string]SystemType{
		"Double":        TypeDouble,
		"double":        TypeDouble,
		"System.Int32":  TypeInt32,
		"System.Single": TypeFloat,
		"BOOL":          TypeBoolean,
		"INT":           TypeInt16,
		"DateTime":      TypeDateTime,
	}
	for name, want := range tests {
		got, err := ParseSystemType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseSystemType("LocalizedText")
	assert.True(t, errors.IsInvalid(err))

	st, ok := FromDataTypeID(11)
	assert.True(t, ok)
	assert.Equal(t, TypeDouble, st)
	_, ok = FromDataTypeID(15)
	assert.False(t, ok)
}

func TestStatusCode(t *testing.T) {
	assert.True(t, StatusGood.IsGood())
	assert.False(t, StatusGood.IsBad())
	assert.True(t, StatusUncertain.IsUncertain())
	assert.False(t, StatusUncertain.IsBad())
	assert.True(t, StatusBadNoEntryExists.IsBad())
	assert.True(t, StatusBadNotConnected.IsBad())
	assert.Equal(t, "BadNoEntryExists", StatusBadNoEntryExists.String())
	assert.Equal(t, "0x80AB0000", StatusCode(0x80AB0000).String())
	assert.Equal(t, "uncertain", StatusCode(0x40920000).Quality())
}

func TestServerNode(t *testing.T) {
	node := NodeRecord{Name: "temp", Identifier: "s=Line1.Temp", InternalNamespaceIndex: 1}
	sn := NewServerNode(node, 3)
	assert.Equal(t, "ns=3;s=Line1.Temp", sn.ServerIdentifier)
	assert.True(t, sn.Resolved())
	assert.False(t, NewServerNode(node, NamespaceNotFound).Resolved())
}

func TestNotificationCopiesValues(t *testing.T) {
	values := []DataValue{{Value: NewInt32(1), StatusCode: StatusGood}}
	n := NewNotification("x", values...)
	values[0].StatusCode = StatusBad
	latest, ok := n.Latest()
	require.True(t, ok)
	assert.Equal(t, StatusGood, latest.StatusCode)

	_, ok = Notification{Name: "empty"}.Latest()
	assert.False(t, ok)
}
