// Package strata assigns samples to named subgroups with a pure decision table
// over categorical covariates. Anything unrecognised lands in Unknown.
package strata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"gopkg.in/yaml.v3"
)

// Unknown is the catch-all label for incomplete or unrecognised covariates.
const Unknown = "unknown"

// Axis maps raw covariate values onto a small set of categories.
type Axis struct {
	Covariate  string              `yaml:"covariate"`
	Categories map[string][]string `yaml:"categories"`

	lookup map[string]string
}

// Stratum is one row of the decision table: the category on each axis, in axis order.
type Stratum struct {
	Label       string   `yaml:"label"`
	Description string   `yaml:"description,omitempty"`
	When        []string `yaml:"when"`
}

// DecisionTable classifies covariate combinations into strata.
type DecisionTable struct {
	Name   string    `yaml:"name"`
	Axes   []Axis    `yaml:"axes"`
	Strata []Stratum `yaml:"strata"`

	byKey map[string]string
}

// Compile validates the table and builds its lookups. It must be called before Classify;
// Preset and Parse return compiled tables.
func (d *DecisionTable) Compile() error {
	d.byKey = map[string]string{}
	for i := range d.Axes {
		a := &d.Axes[i]
		if strings.TrimSpace(a.Covariate) == "" {
			return fmt.Errorf("strata %s: axis %d has no covariate", d.Name, i+1)
		}
		if len(a.Categories) == 0 {
			return fmt.Errorf("strata %s: axis %q has no categories", d.Name, a.Covariate)
		}
		a.lookup = map[string]string{}
		for cat, vals := range a.Categories {
			for _, v := range vals {
				k := canon(v)
				if prev, ok := a.lookup[k]; ok && prev != cat {
					return fmt.Errorf("strata %s: value %q of %q maps to both %s and %s", d.Name, v, a.Covariate, prev, cat)
				}
				a.lookup[k] = cat
			}
		}
	}
	if len(d.Strata) == 0 {
		return fmt.Errorf("strata %s: no strata defined", d.Name)
	}
	seen := map[string]bool{}
	for _, s := range d.Strata {
		if s.Label == "" || strings.EqualFold(s.Label, Unknown) {
			return fmt.Errorf("strata %s: invalid label %q", d.Name, s.Label)
		}
		if seen[s.Label] {
			return fmt.Errorf("strata %s: duplicate label %q", d.Name, s.Label)
		}
		seen[s.Label] = true
		if len(s.When) != len(d.Axes) {
			return fmt.Errorf("strata %s: %q lists %d categories for %d axes", d.Name, s.Label, len(s.When), len(d.Axes))
		}
		for i, cat := range s.When {
			if _, ok := d.Axes[i].Categories[cat]; !ok {
				return fmt.Errorf("strata %s: %q uses unknown category %q on %q", d.Name, s.Label, cat, d.Axes[i].Covariate)
			}
		}
		key := strings.Join(s.When, "\x1f")
		if prev, ok := d.byKey[key]; ok {
			return fmt.Errorf("strata %s: %q and %q have the same categories", d.Name, prev, s.Label)
		}
		d.byKey[key] = s.Label
	}
	return nil
}

// Classify maps covariate values (looked up by name) to a stratum label. It is total:
// every input yields one of Labels() or Unknown.
func (d *DecisionTable) Classify(covariate func(name string) string) string {
	if d.byKey == nil {
		return Unknown
	}
	cats := make([]string, len(d.Axes))
	for i, a := range d.Axes {
		cat, ok := a.lookup[canon(covariate(a.Covariate))]
		if !ok {
			return Unknown
		}
		cats[i] = cat
	}
	if label, ok := d.byKey[strings.Join(cats, "\x1f")]; ok {
		return label
	}
	return Unknown
}

// ClassifyRecord classifies a sample by its covariates.
func (d *DecisionTable) ClassifyRecord(r *dataset.SampleRecord) string {
	return d.Classify(r.Covariate)
}

// Labels returns the enumerated stratum labels in table order, excluding Unknown.
func (d *DecisionTable) Labels() []string {
	out := make([]string, len(d.Strata))
	for i, s := range d.Strata {
		out[i] = s.Label
	}
	return out
}

// Describe returns the human label for a stratum, or the label itself.
func (d *DecisionTable) Describe(label string) string {
	for _, s := range d.Strata {
		if s.Label == label && s.Description != "" {
			return s.Description
		}
	}
	return label
}

// Covariates returns the covariate names the table reads.
func (d *DecisionTable) Covariates() []string {
	out := make([]string, len(d.Axes))
	for i, a := range d.Axes {
		out[i] = a.Covariate
	}
	return out
}

func canon(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// Parse decodes a YAML decision table and compiles it.
func Parse(data []byte) (*DecisionTable, error) {
	var d DecisionTable
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse strata table: %w", err)
	}
	if d.Name == "" {
		d.Name = "custom"
	}
	if err := d.Compile(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Presets lists the built-in decision table names.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Preset returns a freshly compiled built-in table.
func Preset(name string) (*DecisionTable, error) {
	build, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown strata preset %q (have: %s)", name, strings.Join(Presets(), ", "))
	}
	d := build()
	if err := d.Compile(); err != nil {
		return nil, err
	}
	return d, nil
}
