// Package align maps expression-table sample labels onto canonical sample ids.
//
// Three strategies are tried in order (exact alias, substring of canonical id,
// positional). Each is an independent function returning its coverage, and
// Resolve reports which one produced the final mapping.
package align

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy names one identifier matching strategy.
type Strategy string

const (
	StrategyExact      Strategy = "exact"
	StrategySubstring  Strategy = "substring"
	StrategyPositional Strategy = "positional"
)

// DefaultThreshold is the coverage below which the next strategy is tried.
const DefaultThreshold = 0.5

// Reasons carried by AlignmentError.
const (
	ReasonNoCoverage    = "no_coverage"
	ReasonAmbiguous     = "ambiguous"
	ReasonCountMismatch = "count_mismatch"
)

// AlignmentError is fatal: scoring must not proceed on a wrong or partial mapping.
type AlignmentError struct {
	Reason   string
	Strategy Strategy
	Matched  int
	Total    int
	Detail   string
}

func (e *AlignmentError) Error() string {
	msg := fmt.Sprintf("sample alignment failed (%s", e.Reason)
	if e.Strategy != "" {
		msg += fmt.Sprintf(", strategy %s", e.Strategy)
	}
	msg += fmt.Sprintf(", %d/%d labels matched)", e.Matched, e.Total)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Candidate is a canonical sample with the aliases it may appear under.
// The id itself always counts as an alias.
type Candidate struct {
	ID      string
	Aliases []string
}

// Match is the outcome of a single strategy.
type Match struct {
	Strategy Strategy
	Mapping  map[string]string // source label -> canonical id
	Matched  int
	Total    int
}

// Coverage is the fraction of source labels mapped.
func (m Match) Coverage() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Matched) / float64(m.Total)
}

// Exact maps labels that equal any alias of exactly one candidate.
func Exact(labels []string, cands []Candidate) (Match, error) {
	alias := map[string][]string{}
	for _, c := range cands {
		seen := map[string]bool{}
		for _, a := range append([]string{c.ID}, c.Aliases...) {
			a = strings.TrimSpace(a)
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			alias[a] = append(alias[a], c.ID)
		}
	}
	m := Match{Strategy: StrategyExact, Mapping: map[string]string{}, Total: len(labels)}
	for _, l := range labels {
		ids := uniq(alias[strings.TrimSpace(l)])
		switch len(ids) {
		case 0:
			continue
		case 1:
			m.Mapping[l] = ids[0]
		default:
			return m, &AlignmentError{Reason: ReasonAmbiguous, Strategy: StrategyExact, Total: len(labels),
				Detail: fmt.Sprintf("label %q is an alias of %s", l, strings.Join(ids, ", "))}
		}
	}
	m.Matched = len(m.Mapping)
	return m, checkInjective(m)
}

// Substring extends prior (which may be nil) with labels that contain a canonical
// id. The longest contained id wins; equally long distinct ids are ambiguous.
func Substring(labels []string, cands []Candidate, prior map[string]string) (Match, error) {
	m := Match{Strategy: StrategySubstring, Mapping: map[string]string{}, Total: len(labels)}
	for k, v := range prior {
		m.Mapping[k] = v
	}
	for _, l := range labels {
		if _, done := m.Mapping[l]; done {
			continue
		}
		best := ""
		var tied []string
		for _, c := range cands {
			if c.ID == "" || !strings.Contains(l, c.ID) {
				continue
			}
			switch {
			case len(c.ID) > len(best):
				best, tied = c.ID, nil
			case len(c.ID) == len(best) && c.ID != best:
				tied = append(tied, c.ID)
			}
		}
		if best == "" {
			continue
		}
		if len(tied) > 0 {
			return m, &AlignmentError{Reason: ReasonAmbiguous, Strategy: StrategySubstring, Total: len(labels),
				Detail: fmt.Sprintf("label %q contains %s", l, strings.Join(append([]string{best}, tied...), ", "))}
		}
		m.Mapping[l] = best
	}
	m.Matched = len(m.Mapping)
	return m, checkInjective(m)
}

// Positional zips labels with candidates in order. Only valid when counts are equal;
// the order assumption is unchecked.
func Positional(labels []string, cands []Candidate) (Match, error) {
	m := Match{Strategy: StrategyPositional, Mapping: map[string]string{}, Total: len(labels)}
	if len(labels) != len(cands) {
		return m, &AlignmentError{Reason: ReasonCountMismatch, Strategy: StrategyPositional, Total: len(labels),
			Detail: fmt.Sprintf("%d source labels vs %d samples", len(labels), len(cands))}
	}
	for i, l := range labels {
		m.Mapping[l] = cands[i].ID
	}
	m.Matched = len(m.Mapping)
	return m, nil
}

func checkInjective(m Match) error {
	byID := map[string][]string{}
	for l, id := range m.Mapping {
		byID[id] = append(byID[id], l)
	}
	for id, ls := range byID {
		if len(ls) > 1 {
			sort.Strings(ls)
			return &AlignmentError{Reason: ReasonAmbiguous, Strategy: m.Strategy, Matched: m.Matched, Total: m.Total,
				Detail: fmt.Sprintf("labels %s all map to sample %q", strings.Join(ls, ", "), id)}
		}
	}
	return nil
}

func uniq(ids []string) []string {
	if len(ids) < 2 {
		return ids
	}
	seen := map[string]bool{}
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
