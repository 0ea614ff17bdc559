// Copyright 2026 The Alcove Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy is a declarative allow/deny filter over capability strings,
// intended as a ready-made building block for a Driver's
// ValidateCapabilities: load the host's policy once, then approve each
// requested set with Approve.
//
// Patterns are globs with * matching any run of characters, so a
// policy can scope whole families ("io.alcove.receive.*") or pin exact
// grants. Deny takes precedence over Allow. An empty Allow list
// approves everything not denied.
type Policy struct {
	// Allow lists glob patterns for approvable capabilities. Empty
	// means all capabilities are approvable (subject to Deny).
	Allow []string `yaml:"allow"`

	// Deny lists glob patterns for refused capabilities. Deny takes
	// precedence over Allow.
	Deny []string `yaml:"deny"`
}

// LoadPolicy parses a YAML policy document.
func LoadPolicy(data []byte) (*Policy, error) {
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse capability policy: %w", err)
	}
	for _, pattern := range append(append([]string{}, policy.Allow...), policy.Deny...) {
		if pattern == "" {
			return nil, fmt.Errorf("capability policy contains an empty pattern")
		}
	}
	return &policy, nil
}

// LoadPolicyFile reads and parses a YAML policy file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability policy: %w", err)
	}
	policy, err := LoadPolicy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}

// Allows reports whether a single capability passes the policy.
func (p *Policy) Allows(c Capability) bool {
	s := string(c)
	for _, pattern := range p.Deny {
		if matchGlob(pattern, s) {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, pattern := range p.Allow {
		if matchGlob(pattern, s) {
			return true
		}
	}
	return false
}

// Approve filters a requested capability list down to the approved
// subset, preserving order.
func (p *Policy) Approve(requested []Capability) []Capability {
	var approved []Capability
	for _, c := range requested {
		if p.Allows(c) {
			approved = append(approved, c)
		}
	}
	return approved
}

// matchGlob performs simple glob matching with * as the only
// metacharacter, matching any run of characters.
func matchGlob(pattern, str string) bool {
	parts := strings.Split(pattern, "*")

	if len(parts) == 1 {
		return pattern == str
	}

	if !strings.HasPrefix(str, parts[0]) {
		return false
	}
	str = str[len(parts[0]):]

	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(str, parts[i])
		if idx == -1 {
			return false
		}
		str = str[idx+len(parts[i]):]
	}

	return strings.HasSuffix(str, parts[len(parts)-1])
}
