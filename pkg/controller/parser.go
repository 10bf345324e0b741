// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"io"
	"strconv"
	"strings"

	xj "github.com/basgys/goxml2json"
	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
)

const (
	attrPrefix = "-"
	// UANamespace is the URI of namespace 0
	UANamespace = "http://opcfoundation.org/UA/"
)

// NodeSet is the content of a UANodeSet document relevant to discovery
type NodeSet struct {
	NamespaceURIs []string
	Aliases       map[string]string
	Variables     []NodeSetVariable
}

// NodeSetVariable is a UAVariable of a node set
type NodeSetVariable struct {
	NodeID      string
	BrowseName  string
	DisplayName string
	DataType    string
	ValueRank   int
}

// ParseNodeSet decodes a UANodeSet XML document
func ParseNodeSet(r io.Reader) (*NodeSet, error) {
	root := &xj.Node{}
	err := xj.NewDecoder(
		r,
		xj.WithAttrPrefix(attrPrefix),
	).Decode(root)
	if err != nil {
		return nil, errors.NewInvalid("decode node set: %v", err)
	}

	docs := root.Children["UANodeSet"]
	if len(docs) == 0 {
		return nil, errors.NewInvalid("document has no UANodeSet element")
	}
	doc := docs[0]

	nodeSet := &NodeSet{Aliases: make(map[string]string)}
	for _, uris := range doc.Children["NamespaceUris"] {
		for _, uri := range uris.Children["Uri"] {
			nodeSet.NamespaceURIs = append(nodeSet.NamespaceURIs, strings.TrimSpace(uri.Data))
		}
	}
	for _, aliases := range doc.Children["Aliases"] {
		for _, alias := range aliases.Children["Alias"] {
			nodeSet.Aliases[attr(alias, "Alias")] = strings.TrimSpace(alias.Data)
		}
	}
	for _, v := range doc.Children["UAVariable"] {
		variable := NodeSetVariable{
			NodeID:      attr(v, "NodeId"),
			BrowseName:  stripNamespacePrefix(attr(v, "BrowseName")),
			DisplayName: child(v, "DisplayName"),
			DataType:    attr(v, "DataType"),
			ValueRank:   -1,
		}
		if rank := attr(v, "ValueRank"); rank != "" {
			variable.ValueRank, err = strconv.Atoi(rank)
			if err != nil {
				return nil, errors.NewInvalid("variable %s has invalid ValueRank '%s'", variable.NodeID, rank)
			}
		}
		nodeSet.Variables = append(nodeSet.Variables, variable)
	}
	return nodeSet, nil
}

// NamespaceURI returns the URI of a namespace index local to the node set
func (n *NodeSet) NamespaceURI(index int) (string, bool) {
	if index == 0 {
		return UANamespace, true
	}
	if index < 0 || index > len(n.NamespaceURIs) {
		return "", false
	}
	return n.NamespaceURIs[index-1], true
}

// SystemType resolves the data type of a variable through the alias table
func (n *NodeSet) SystemType(dataType string) (model.SystemType, bool) {
	if st, err := model.ParseSystemType(dataType); err == nil {
		return st, true
	}
	target := dataType
	if resolved, ok := n.Aliases[dataType]; ok {
		if st, err := model.ParseSystemType(resolved); err == nil {
			return st, true
		}
		target = resolved
	}
	id, ok := southbound.DataTypeID(model.NewString(target))
	if !ok {
		return model.TypeNull, false
	}
	return model.FromDataTypeID(id)
}

// splitNodeID splits "ns=<n>;<identifier>" into its namespace index and identifier
func splitNodeID(nodeID string) (int, string, error) {
	ns := 0
	identifier := nodeID
	if strings.HasPrefix(nodeID, "ns=") {
		parts := strings.SplitN(strings.TrimPrefix(nodeID, "ns="), ";", 2)
		if len(parts) != 2 {
			return 0, "", errors.NewInvalid("invalid node id '%s'", nodeID)
		}
		index, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, "", errors.NewInvalid("invalid namespace in node id '%s'", nodeID)
		}
		ns = index
		identifier = parts[1]
	}
	if !strings.HasPrefix(identifier, "i=") && !strings.HasPrefix(identifier, "s=") {
		return 0, "", errors.NewInvalid("only numeric and string node ids are supported, got '%s'", nodeID)
	}
	return ns, identifier, nil
}

func attr(n *xj.Node, name string) string {
	if values := n.Children[attrPrefix+name]; len(values) > 0 {
		return strings.TrimSpace(values[0].Data)
	}
	return ""
}

func child(n *xj.Node, name string) string {
	if values := n.Children[name]; len(values) > 0 {
		return strings.TrimSpace(values[0].Data)
	}
	return ""
}

func stripNamespacePrefix(qualifiedName string) string {
	if i := strings.Index(qualifiedName, ":"); i > 0 {
		if _, err := strconv.Atoi(qualifiedName[:i]); err == nil {
			return qualifiedName[i+1:]
		}
	}
	return qualifiedName
}
