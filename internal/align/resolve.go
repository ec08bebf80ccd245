package align

import (
	"fmt"
	"strings"
)

// IdentifierMap is an immutable, injective mapping from source label to canonical id.
type IdentifierMap struct {
	labels  []string
	mapping map[string]string
}

// Lookup returns the canonical id for a source label.
func (m *IdentifierMap) Lookup(label string) (string, bool) {
	id, ok := m.mapping[label]
	return id, ok
}

// Len returns the number of mapped labels.
func (m *IdentifierMap) Len() int { return len(m.mapping) }

// Labels returns the mapped source labels in source order.
func (m *IdentifierMap) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Attempt records the coverage one strategy reached.
type Attempt struct {
	Strategy Strategy `json:"strategy"`
	Matched  int      `json:"matched"`
}

// Resolution is the audit record of an alignment.
type Resolution struct {
	Strategy Strategy  `json:"strategy"`
	Matched  int       `json:"matched"`
	Total    int       `json:"total"`
	Coverage float64   `json:"coverage"`
	Attempts []Attempt `json:"attempts"`
	Warnings []string  `json:"warnings,omitempty"`
}

// Options tunes Resolve.
type Options struct {
	// Threshold is the coverage below which the next strategy is tried. Zero means DefaultThreshold.
	Threshold float64
}

// Resolve runs exact, substring and positional matching in order, stopping at the
// first strategy reaching the coverage threshold. Positional matching requires equal
// counts and replaces any partial mapping; a count mismatch at that point is fatal.
func Resolve(labels []string, cands []Candidate, opt Options) (*IdentifierMap, Resolution, error) {
	thr := opt.Threshold
	if thr <= 0 {
		thr = DefaultThreshold
	}
	res := Resolution{Total: len(labels)}
	if len(labels) == 0 || len(cands) == 0 {
		return nil, res, &AlignmentError{Reason: ReasonNoCoverage, Total: len(labels),
			Detail: fmt.Sprintf("%d source labels, %d samples", len(labels), len(cands))}
	}
	if dup := firstDuplicate(labels); dup != "" {
		return nil, res, &AlignmentError{Reason: ReasonAmbiguous, Total: len(labels),
			Detail: fmt.Sprintf("source label %q occurs more than once", dup)}
	}

	exact, err := Exact(labels, cands)
	res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyExact, Matched: exact.Matched})
	if err != nil {
		return nil, res, err
	}
	if exact.Coverage() >= thr {
		return finish(labels, exact), res.with(exact), nil
	}

	sub, err := Substring(labels, cands, exact.Mapping)
	res.Attempts = append(res.Attempts, Attempt{Strategy: StrategySubstring, Matched: sub.Matched})
	if err != nil {
		return nil, res, err
	}
	if sub.Coverage() >= thr {
		return finish(labels, sub), res.with(sub), nil
	}

	pos, err := Positional(labels, cands)
	if err != nil {
		ae := err.(*AlignmentError)
		ae.Matched = sub.Matched
		if sub.Matched == 0 {
			ae.Detail += "; no label matched by exact or substring strategies"
		}
		return nil, res, ae
	}
	res.Attempts = append(res.Attempts, Attempt{Strategy: StrategyPositional, Matched: pos.Matched})
	// labels already matched by name must land on the same sample positionally
	for _, l := range labels {
		id, ok := sub.Mapping[l]
		if !ok || pos.Mapping[l] == id {
			continue
		}
		return nil, res, &AlignmentError{Reason: ReasonAmbiguous, Strategy: StrategyPositional,
			Matched: sub.Matched, Total: len(labels),
			Detail: fmt.Sprintf("column order maps %q to %s but its name matches %s", l, pos.Mapping[l], id)}
	}
	res.Warnings = append(res.Warnings, fmt.Sprintf(
		"positional fallback used: assuming %d expression columns are in sample table order (best match coverage was %d/%d)",
		len(labels), sub.Matched, len(labels)))
	return finish(labels, pos), res.with(pos), nil
}

func (r Resolution) with(m Match) Resolution {
	r.Strategy = m.Strategy
	r.Matched = m.Matched
	r.Coverage = m.Coverage()
	if m.Matched < m.Total && m.Strategy != StrategyPositional {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d of %d source labels unmatched and ignored", m.Total-m.Matched, m.Total))
	}
	return r
}

func finish(labels []string, m Match) *IdentifierMap {
	im := &IdentifierMap{mapping: make(map[string]string, len(m.Mapping))}
	for _, l := range labels {
		if id, ok := m.Mapping[l]; ok {
			im.labels = append(im.labels, l)
			im.mapping[l] = id
		}
	}
	return im
}

func firstDuplicate(labels []string) string {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		k := strings.TrimSpace(l)
		if seen[k] {
			return l
		}
		seen[k] = true
	}
	return ""
}
