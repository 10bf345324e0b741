// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package southbound

import (
	"testing"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/onosproject/onos-lib-go/pkg/logging"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeID(t *testing.T) {
	id, ok := DataTypeID(model.NewString("i=11"))
	require.True(t, ok)
	assert.Equal(t, uint32(11), id)

	_, ok = DataTypeID(model.NewString("ns=2;i=3001"))
	assert.False(t, ok)
	_, ok = DataTypeID(model.NewInt32(11))
	assert.False(t, ok)
}

func TestToReference(t *testing.T) {
	ref := toReference(&ua.ReferenceDescription{
		NodeID:      &ua.ExpandedNodeID{NodeID: ua.NewStringNodeID(3, "Line1.Temp")},
		BrowseName:  &ua.QualifiedName{NamespaceIndex: 3, Name: "Temp"},
		DisplayName: &ua.LocalizedText{Text: "Temperature"},
		NodeClass:   ua.NodeClassVariable,
	})
	assert.Equal(t, "ns=3;s=Line1.Temp", ref.NodeID)
	assert.Equal(t, uint16(3), ref.Namespace)
	assert.Equal(t, "s=Line1.Temp", ref.Identifier)
	assert.Equal(t, IdentifierString, ref.IdentifierKind)
	assert.Equal(t, NodeClassVariable, ref.NodeClass)
	assert.Equal(t, "Temp", ref.BrowseName)
	assert.Equal(t, "Temperature", ref.DisplayName)

	ref = toReference(&ua.ReferenceDescription{
		NodeID:    &ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(2, 1001)},
		NodeClass: ua.NodeClassObject,
	})
	assert.Equal(t, "i=1001", ref.Identifier)
	assert.Equal(t, IdentifierNumeric, ref.IdentifierKind)
	assert.Equal(t, NodeClassObject, ref.NodeClass)

	ref = toReference(&ua.ReferenceDescription{
		NodeID: &ua.ExpandedNodeID{NodeID: ua.NewNumericNodeID(2, 1001), ServerIndex: 1},
	})
	assert.Equal(t, IdentifierOther, ref.IdentifierKind)
	assert.Empty(t, ref.Identifier)
}

func TestToDataValue(t *testing.T) {
	s := &session{log: logging.GetLogger("opcgw", "southbound", "test")}
	ts := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)

	dv := s.toDataValue(&ua.DataValue{
		Value:           ua.MustVariant(int16(7)),
		Status:          ua.StatusOK,
		SourceTimestamp: ts,
	})
	assert.Equal(t, model.StatusGood, dv.StatusCode)
	assert.Equal(t, int16(7), dv.Value.Interface())
	assert.Equal(t, ts, dv.SourceTimestamp)

	dv = s.toDataValue(&ua.DataValue{
		Value: ua.MustVariant(ua.NewNumericNodeID(0, 11)),
	})
	id, ok := DataTypeID(dv.Value)
	require.True(t, ok)
	assert.Equal(t, uint32(11), id)

	dv = s.toDataValue(&ua.DataValue{Status: ua.StatusCode(model.StatusBadNodeIDUnknown)})
	assert.True(t, dv.Value.IsNull())
	assert.Equal(t, model.StatusBadNodeIDUnknown, dv.StatusCode)

	dv = s.toDataValue(nil)
	assert.True(t, dv.StatusCode.IsBad())
}
