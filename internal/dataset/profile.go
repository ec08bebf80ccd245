package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ProfileOptions controls table profiling for `tgjs inspect`.
type ProfileOptions struct {
	// SampleRows is the number of example rows to include.
	SampleRows int
	// GroupBy summarises numeric columns per value of this column when set.
	GroupBy string
	// OutlierThreshold is the robust |z| (MAD based) above which values are counted; 0 disables.
	OutlierThreshold float64
}

// DefaultProfileOptions returns reasonable defaults for profiling.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 5, OutlierThreshold: 3.5}
}

// Profile describes the columns of a raw table.
type Profile struct {
	Name     string
	Rows     int
	Cols     []ColumnProfile
	Samples  [][]string
	Groups   []GroupProfile
	Warnings []string
}

// ColumnProfile captures inferred kind and statistics per column.
type ColumnProfile struct {
	Name    string
	Kind    string // numeric|categorical|text|empty
	NonNull int
	Missing int
	Unique  int

	Min, Max, Mean, Std float64
	Outliers            int

	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupProfile holds per-group means of numeric columns.
type GroupProfile struct {
	Key   string
	Size  int
	Means map[string]float64
}

// ProfileTable infers per-column kinds and summary statistics.
func ProfileTable(t *Table, opt ProfileOptions) *Profile {
	p := &Profile{Name: t.Name, Rows: len(t.Rows)}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	for i := 0; i < len(t.Rows) && i < sampleRows; i++ {
		p.Samples = append(p.Samples, t.Rows[i])
	}

	numeric := map[int][]float64{}
	for j, name := range t.Header {
		c := ColumnProfile{Name: name}
		var nums []float64
		cats := map[string]int{}
		txt := 0
		for _, row := range t.Rows {
			v := ""
			if j < len(row) {
				v = strings.TrimSpace(row[j])
			}
			if IsMissing(v) {
				c.Missing++
				continue
			}
			c.NonNull++
			if f, ok := ParseValue(v); ok {
				nums = append(nums, f)
				continue
			}
			txt++
			if len(v) <= 64 {
				cats[v]++
			} else if len(c.ExampleTexts) < 3 {
				c.ExampleTexts = append(c.ExampleTexts, v)
			}
		}
		switch {
		case c.NonNull == 0:
			c.Kind = "empty"
		case len(nums) >= txt:
			c.Kind = "numeric"
			c.Min, c.Max = math.Inf(1), math.Inf(-1)
			for _, x := range nums {
				c.Min = math.Min(c.Min, x)
				c.Max = math.Max(c.Max, x)
			}
			c.Mean, c.Std = stat.MeanStdDev(nums, nil)
			if len(nums) < 2 {
				c.Std = 0
			}
			if opt.OutlierThreshold > 0 && len(nums) >= 8 {
				c.Outliers = countRobustOutliers(nums, opt.OutlierThreshold)
			}
			numeric[j] = nums
		case len(cats) > 0 && len(cats) <= c.NonNull/2+1:
			c.Kind = "categorical"
			c.Unique = len(cats)
			c.TopValues = topCounts(cats, 8)
		default:
			c.Kind = "text"
			c.Unique = len(cats)
			for v := range cats {
				if len(c.ExampleTexts) >= 3 {
					break
				}
				c.ExampleTexts = append(c.ExampleTexts, v)
			}
			sort.Strings(c.ExampleTexts)
		}
		p.Cols = append(p.Cols, c)
	}

	if opt.GroupBy != "" {
		p.Groups, p.Warnings = groupMeans(t, opt.GroupBy, numeric, p.Warnings)
	}
	return p
}

func topCounts(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops
}

func groupMeans(t *Table, by string, numeric map[int][]float64, warnings []string) ([]GroupProfile, []string) {
	gi := -1
	for j, h := range t.Header {
		if strings.EqualFold(h, by) {
			gi = j
			break
		}
	}
	if gi < 0 {
		return nil, append(warnings, fmt.Sprintf("group-by column %q not found", by))
	}
	type acc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
	}
	groups := map[string]*acc{}
	for _, row := range t.Rows {
		key := strings.TrimSpace(row[gi])
		if IsMissing(key) {
			key = "(missing)"
		}
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[int]float64{}, cnt: map[int]int{}}
			groups[key] = g
		}
		g.size++
		for j := range numeric {
			if j == gi || j >= len(row) {
				continue
			}
			if f, ok := ParseValue(row[j]); ok {
				g.sum[j] += f
				g.cnt[j]++
			}
		}
	}
	out := make([]GroupProfile, 0, len(groups))
	for k, g := range groups {
		gp := GroupProfile{Key: k, Size: g.size, Means: map[string]float64{}}
		for j, n := range g.cnt {
			gp.Means[t.Header[j]] = g.sum[j] / float64(n)
		}
		out = append(out, gp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		warnings = append(warnings, fmt.Sprintf("showing 20 of %d groups", len(out)))
		out = out[:20]
	}
	return out, warnings
}

// countRobustOutliers counts values with |0.6745*(x-median)/MAD| above thr.
func countRobustOutliers(vals []float64, thr float64) int {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	median := stat.Quantile(0.5, stat.LinInterp, cp, nil)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad := stat.Quantile(0.5, stat.LinInterp, dev, nil)
	if mad == 0 {
		return 0
	}
	n := 0
	for _, v := range vals {
		if math.Abs(0.6745*(v-median)/mad) > thr {
			n++
		}
	}
	return n
}

// Markdown renders the profile as a compact report.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if p.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", p.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(p.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(" - min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.Outliers > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d", c.Outliers))
			}
		case "categorical":
			b.WriteString(" - top: ")
			for i, kv := range c.TopValues {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
			}
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		case "text":
			if len(c.ExampleTexts) > 0 {
				b.WriteString(" - e.g., ")
				for i, ex := range c.ExampleTexts {
					if i > 0 {
						b.WriteString(" | ")
					}
					b.WriteString(safeVal(ex))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(p.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range p.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Means))
			for k := range g.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", k, g.Means[k]))
			}
		}
	}

	if len(p.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n| ")
		for i, c := range p.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range p.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range p.Samples {
			b.WriteString("| ")
			for i := range p.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(p.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range p.Warnings {
			b.WriteString("- " + w + "\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
