// SPDX-FileCopyrightText: 2022-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package netconf

import (
	"testing"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectXPath(t *testing.T) {
	tests := []struct {
		xpath string
		names []string
		err   bool
	}{
		{xpath: ""},
		{xpath: "/"},
		{xpath: "/variables"},
		{xpath: "/variables/variable"},
		{xpath: "/variables/variable[name=*]"},
		{xpath: "/variables/variable[name=Temp]", names: []string{"Temp"}},
		{xpath: "/opcgw:variables/opcgw:variable[name=Temp]", names: []string{"Temp"}},
		{xpath: "/variables/variable[name=Temp]/value", err: true},
		{xpath: "/variables/item[name=Temp]", err: true},
		{xpath: "/interfaces", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.xpath, func(t *testing.T) {
			names, err := selectXPath(tt.xpath)
			if tt.err {
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestSelectVariables(t *testing.T) {
	names, err := selectVariables(nil)
	require.NoError(t, err)
	assert.Nil(t, names)

	names, err = selectVariables(&Filter{Type: "subtree", Data: " "})
	require.NoError(t, err)
	assert.Nil(t, names)

	names, err = selectVariables(&Filter{Data: "<variables><variable/></variables>"})
	require.NoError(t, err)
	assert.Nil(t, names)

	_, err = selectVariables(&Filter{Type: "regex"})
	assert.True(t, errors.IsInvalid(err))
}

func TestDecodeVariables(t *testing.T) {
	tests := []struct {
		name     string
		document string
		entries  []string
		err      bool
	}{
		{
			name:     "several",
			document: `<variables xmlns="urn:onosproject:opcgw:variables:1.0"><variable><name>A</name></variable><variable><name>B</name></variable></variables>`,
			entries:  []string{"A", "B"},
		},
		{
			name:     "single",
			document: `<variables><variable><name>A</name><value>1</value></variable></variables>`,
			entries:  []string{"A"},
		},
		{
			name:     "empty",
			document: `<variables/>`,
		},
		{
			name:     "other document",
			document: `<interfaces><interface><name>eth0</name></interface></interfaces>`,
			err:      true,
		},
		{
			name:     "truncated",
			document: `<variables><variable>`,
			err:      true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := decodeVariables(tt.document)
			if tt.err {
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name)
			}
			assert.Equal(t, tt.entries, names)
		})
	}
}
