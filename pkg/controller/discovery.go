// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"context"
	"os"

	"github.com/onosproject/onos-lib-go/pkg/errors"
	"github.com/onosproject/onos-opcgw/pkg/model"
	"github.com/onosproject/onos-opcgw/pkg/selector"
	"github.com/onosproject/onos-opcgw/pkg/southbound"
)

const variableClass = "Variable"

func (c *opcController) Discover(ctx context.Context) error {
	session, connected := c.current()
	if !connected {
		return errors.NewUnavailable("not connected to the server")
	}

	namespaces, err := session.Namespaces(ctx)
	if err != nil {
		return errors.NewUnavailable("namespace table: %v", err)
	}
	if err := c.cache.InsertNamespacesIfAbsent(ctx, namespaces); err != nil {
		return err
	}

	var nodes []model.NodeRecord
	if c.cfg.BrowseNodes {
		c.log.Info("Browsing the server address space")
		nodes, err = c.browse(ctx, session, namespaces)
	} else {
		c.log.Infof("Importing nodes from %s", c.cfg.NodesFilename)
		nodes, err = c.importNodeSet(ctx)
	}
	if err != nil {
		return err
	}

	if _, err := c.cache.ResolveServerIndices(ctx, namespaces); err != nil {
		return err
	}
	inserted, err := c.cache.InsertNodes(ctx, nodes)
	if err != nil {
		return err
	}
	c.log.Infof("Discovered %d variables, %d added to the cache", len(nodes), inserted)
	return nil
}

type candidate struct {
	name string
	ref  southbound.Reference
}

// browse walks the hierarchy breadth first from the Objects folder
func (c *opcController) browse(ctx context.Context, session southbound.Session, namespaces []string) ([]model.NodeRecord, error) {
	queue := []string{southbound.ObjectsFolder}
	visited := map[string]bool{southbound.ObjectsFolder: true}
	var candidates []candidate

	for len(queue) > 0 {
		nodeID := queue[0]
		queue = queue[1:]

		refs, err := c.browseAll(ctx, session, nodeID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warnf("Browse of %s failed: %v", nodeID, err)
			continue
		}
		for _, ref := range refs {
			if visited[ref.NodeID] {
				continue
			}
			visited[ref.NodeID] = true
			if ref.NodeClass == southbound.NodeClassObject || ref.NodeClass == southbound.NodeClassVariable {
				queue = append(queue, ref.NodeID)
			}
			if ref.NodeClass != southbound.NodeClassVariable {
				continue
			}
			cand := selector.Candidate{NodeID: ref.NodeID, BrowseName: ref.BrowseName, DisplayName: ref.DisplayName}
			if !c.selector.SelectCandidate(cand) {
				continue
			}
			if ref.IdentifierKind == southbound.IdentifierOther {
				c.log.Warnf("Variable %s skipped, only numeric and string node ids are supported", ref.NodeID)
				continue
			}
			candidates = append(candidates, candidate{name: c.selector.Target(cand), ref: ref})
		}
	}

	ids := make([]southbound.ReadValueID, 0, 2*len(candidates))
	for _, cand := range candidates {
		ids = append(ids,
			southbound.ReadValueID{NodeID: cand.ref.NodeID, AttributeID: southbound.AttributeDataType},
			southbound.ReadValueID{NodeID: cand.ref.NodeID, AttributeID: southbound.AttributeValueRank})
	}
	attributes := make([]model.DataValue, 0, len(ids))
	for _, chunk := range chunks(ids, c.cfg.BatchSize) {
		c.metrics.batches.WithLabelValues("read").Inc()
		values, err := session.Read(ctx, chunk)
		if err != nil {
			return nil, errors.NewUnavailable("read of variable attributes: %v", err)
		}
		if len(values) != len(chunk) {
			return nil, errors.NewInternal("read of %d attributes returned %d values", len(chunk), len(values))
		}
		attributes = append(attributes, values...)
	}

	internal := make(map[uint16]int)
	var nodes []model.NodeRecord
	for i, cand := range candidates {
		dataType, valueRank := attributes[2*i], attributes[2*i+1]
		st, ok := builtInType(dataType)
		if !ok {
			c.log.Warnf("Variable %s skipped, data type %s is not supported", cand.name, dataType.Value)
			continue
		}
		if !isScalar(valueRank) {
			c.log.Warnf("Variable %s skipped, arrays are not supported", cand.name)
			continue
		}
		index, ok := internal[cand.ref.Namespace]
		if !ok {
			if int(cand.ref.Namespace) >= len(namespaces) {
				c.log.Warnf("Variable %s skipped, namespace %d is unknown", cand.name, cand.ref.Namespace)
				continue
			}
			var err error
			index, err = c.cache.InternalIndex(ctx, namespaces[cand.ref.Namespace])
			if err != nil {
				return nil, err
			}
			internal[cand.ref.Namespace] = index
		}
		nodes = append(nodes, model.NodeRecord{
			Name:                   cand.name,
			Identifier:             cand.ref.Identifier,
			InternalNamespaceIndex: index,
			ClassType:              variableClass,
			SystemType:             st,
		})
		c.log.Debugf("Variable %s of type %s selected", cand.name, st)
	}
	return nodes, nil
}

// browseAll follows continuation points until every reference is returned
func (c *opcController) browseAll(ctx context.Context, session southbound.Session, nodeID string) ([]southbound.Reference, error) {
	result, err := session.Browse(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	refs := result.References
	for len(result.ContinuationPoint) > 0 {
		result, err = session.BrowseNext(ctx, result.ContinuationPoint)
		if err != nil {
			return nil, err
		}
		refs = append(refs, result.References...)
	}
	return refs, nil
}

func builtInType(dataType model.DataValue) (model.SystemType, bool) {
	if dataType.StatusCode.IsBad() {
		return model.TypeNull, false
	}
	id, ok := southbound.DataTypeID(dataType.Value)
	if !ok {
		return model.TypeNull, false
	}
	return model.FromDataTypeID(id)
}

// isScalar accepts the value ranks that allow a scalar value
func isScalar(valueRank model.DataValue) bool {
	if valueRank.StatusCode.IsBad() || valueRank.Value.IsNull() {
		return true
	}
	rank, err := valueRank.Value.Convert(model.TypeInt32)
	if err != nil {
		return false
	}
	return rank.Interface().(int32) < 0
}

// importNodeSet reads the variables of the configured UANodeSet file
func (c *opcController) importNodeSet(ctx context.Context) ([]model.NodeRecord, error) {
	f, err := os.Open(c.cfg.NodesFilename)
	if err != nil {
		return nil, errors.NewInvalid("open node set %s: %v", c.cfg.NodesFilename, err)
	}
	defer f.Close()

	nodeSet, err := ParseNodeSet(f)
	if err != nil {
		return nil, err
	}
	uris := append([]string{UANamespace}, nodeSet.NamespaceURIs...)
	if err := c.cache.InsertNamespacesIfAbsent(ctx, uris); err != nil {
		return nil, err
	}

	internal := make(map[int]int)
	var nodes []model.NodeRecord
	for _, v := range nodeSet.Variables {
		cand := selector.Candidate{NodeID: v.NodeID, BrowseName: v.BrowseName, DisplayName: v.DisplayName}
		if !c.selector.SelectCandidate(cand) {
			continue
		}
		name := c.selector.Target(cand)
		ns, identifier, err := splitNodeID(v.NodeID)
		if err != nil {
			c.log.Warnf("Variable %s skipped: %v", name, err)
			continue
		}
		st, ok := nodeSet.SystemType(v.DataType)
		if !ok {
			c.log.Warnf("Variable %s skipped, data type %s is not supported", name, v.DataType)
			continue
		}
		if v.ValueRank >= 0 {
			c.log.Warnf("Variable %s skipped, arrays are not supported", name)
			continue
		}
		index, ok := internal[ns]
		if !ok {
			uri, found := nodeSet.NamespaceURI(ns)
			if !found {
				c.log.Warnf("Variable %s skipped, namespace %d is not declared", name, ns)
				continue
			}
			index, err = c.cache.InternalIndex(ctx, uri)
			if err != nil {
				return nil, err
			}
			internal[ns] = index
		}
		nodes = append(nodes, model.NodeRecord{
			Name:                   name,
			Identifier:             identifier,
			InternalNamespaceIndex: index,
			ClassType:              variableClass,
			SystemType:             st,
		})
	}
	return nodes, nil
}
