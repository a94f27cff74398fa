// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pod

package pod

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// ruleMatcher holds compiled path rules used for compression and extraction filters.
type ruleMatcher struct {
	matcher *pathrules.Matcher
}

// newRuleMatcher compiles path rules. It returns nil when no usable rule remains.
func newRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ruleMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidRules, err)
	}

	return &ruleMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is included by the rule set. A nil matcher matches nothing.
func (m *ruleMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// IncludeRules builds include rules from raw patterns.
func IncludeRules(patterns ...string) []pathrules.Rule {
	rules := buildRules(patterns)
	for i := range rules {
		rules[i].Action = pathrules.ActionInclude
	}

	return rules
}

// ExcludeRules builds exclude rules from raw patterns.
func ExcludeRules(patterns ...string) []pathrules.Rule {
	rules := buildRules(patterns)
	for i := range rules {
		rules[i].Action = pathrules.ActionExclude
	}

	return rules
}

// buildRules wraps non-empty patterns into rules without action.
func buildRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{Pattern: pattern})
	}

	return rules
}

// entryFilter combines rule filter and caller predicate for extraction.
type entryFilter struct {
	rules   *ruleMatcher
	include func(entry Entry) bool
}

// newEntryFilter compiles unpack filter options.
func newEntryFilter(opts UnpackOptions) (*entryFilter, error) {
	rules, err := newRuleMatcher(opts.Filter, opts.FilterMatcherOptions)
	if err != nil {
		return nil, fmt.Errorf("compile filter rules: %w", err)
	}

	return &entryFilter{rules: rules, include: opts.Include}, nil
}

// Allow reports whether entry passes both rule filter and predicate.
func (f *entryFilter) Allow(entry Entry) bool {
	if f == nil {
		return true
	}

	if f.rules != nil && !f.rules.Match(entry.Name) {
		return false
	}

	if f.include != nil && !f.include(entry) {
		return false
	}

	return true
}

// FilterEntries returns entries whose names pass the given rules.
// Unmatched names are kept unless opts.DefaultAction is exclude.
func FilterEntries(entries []Entry, rules []pathrules.Rule, opts pathrules.MatcherOptions) ([]Entry, error) {
	unpackOpts := UnpackOptions{Filter: rules, FilterMatcherOptions: opts}
	unpackOpts.applyDefaults()

	filter, err := newEntryFilter(unpackOpts)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if filter.Allow(entry) {
			out = append(out, entry)
		}
	}

	return out, nil
}

// FilterEntriesByPrefix keeps entries under prefix (or exact match if it points to a file).
func FilterEntriesByPrefix(entries []Entry, prefix string) []Entry {
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return entries
	}

	normalizedPrefix := prefix + "/"
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entryPath := NormalizePath(entry.Name)
		if entryPath == prefix || strings.HasPrefix(entryPath, normalizedPrefix) {
			out = append(out, entry)
		}
	}

	return out
}
