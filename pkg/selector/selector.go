// SPDX-FileCopyrightText: 2023-present Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package selector decides which discovered variables enter the cache.
package selector

import (
	"regexp"
	"strings"

	"github.com/onosproject/onos-lib-go/pkg/errors"
)

// Target identifiers a selector can match against
const (
	TargetDisplayName = "displayname"
	TargetBrowseName  = "browsename"
	TargetNodeID      = "nodeid"
)

// Config holds the selection rules
type Config struct {
	TargetIdentifier string   `mapstructure:"targetIdentifier"`
	WhiteList        []string `mapstructure:"whiteList"`
	BlackList        []string `mapstructure:"blackList"`
	Contains         []string `mapstructure:"contains"`
	NotContain       []string `mapstructure:"notContain"`
	MatchRegEx       []string `mapstructure:"matchRegEx"`
}

// Candidate describes a variable found during discovery
type Candidate struct {
	NodeID      string
	BrowseName  string
	DisplayName string
}

// Selector is an immutable admission predicate, safe for concurrent use
type Selector struct {
	target     string
	disabled   bool
	whiteList  map[string]struct{}
	blackList  map[string]struct{}
	contains   []string
	notContain []string
	patterns   []*regexp.Regexp
}

// New validates the configuration and builds a selector
func New(cfg Config) (*Selector, error) {
	target := strings.ToLower(strings.TrimSpace(cfg.TargetIdentifier))
	switch target {
	case TargetDisplayName, TargetBrowseName, TargetNodeID:
	default:
		return nil, errors.NewInvalid("targetIdentifier '%s' is not one of DisplayName, BrowseName, NodeId", cfg.TargetIdentifier)
	}

	s := &Selector{
		target:     target,
		whiteList:  toSet(cfg.WhiteList),
		blackList:  toSet(cfg.BlackList),
		contains:   cfg.Contains,
		notContain: cfg.NotContain,
	}

	admits := len(cfg.WhiteList) > 0 || len(cfg.Contains) > 0 || len(cfg.MatchRegEx) > 0
	if !admits && len(cfg.BlackList) == 0 && len(cfg.NotContain) == 0 {
		s.disabled = true
		return s, nil
	}
	if len(cfg.BlackList) > 0 && !admits {
		return nil, errors.NewInvalid("blackList requires at least one of whiteList, contains or matchRegEx")
	}
	if len(cfg.NotContain) > 0 && !admits {
		return nil, errors.NewInvalid("notContain requires at least one of whiteList, contains or matchRegEx")
	}

	for _, expr := range cfg.MatchRegEx {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, errors.NewInvalid("invalid matchRegEx '%s': %v", expr, err)
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

// Disabled reports whether every candidate is selected
func (s *Selector) Disabled() bool {
	return s.disabled
}

// Target returns the string of the candidate the rules apply to
func (s *Selector) Target(c Candidate) string {
	switch s.target {
	case TargetNodeID:
		return c.NodeID
	case TargetBrowseName:
		return c.BrowseName
	default:
		if c.DisplayName == "" {
			return c.BrowseName
		}
		return c.DisplayName
	}
}

// Select evaluates the rules against target; the first matching rule wins
func (s *Selector) Select(target string) bool {
	if s.disabled {
		return true
	}
	if _, ok := s.whiteList[target]; ok {
		return true
	}
	if _, ok := s.blackList[target]; ok {
		return false
	}
	for _, sub := range s.notContain {
		if strings.Contains(target, sub) {
			return false
		}
	}
	for _, sub := range s.contains {
		if strings.Contains(target, sub) {
			return true
		}
	}
	for _, re := range s.patterns {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// SelectCandidate applies Select to the target string of c
func (s *Selector) SelectCandidate(c Candidate) bool {
	return s.Select(s.Target(c))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
