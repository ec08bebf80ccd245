// Package genes locates gene rows in an expression matrix whose row keys may be
// symbols, decorated symbols, or numeric Entrez ids.
package genes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
)

// Method names how a gene row was found.
type Method string

const (
	MethodExact     Method = "exact"
	MethodSubstring Method = "substring"
	MethodEntrez    Method = "entrez"
)

// Hit is a resolved gene row.
type Hit struct {
	Symbol string
	Row    int
	Key    string
	Method Method
}

// ResolutionError lists which genes could not be located, with a sample of row keys for diagnosis.
type ResolutionError struct {
	Resolved   map[string]string
	Unresolved []string
	SampleKeys []string
}

func (e *ResolutionError) Error() string {
	res := make([]string, 0, len(e.Resolved))
	for sym, key := range e.Resolved {
		res = append(res, fmt.Sprintf("%s=%s", sym, key))
	}
	sort.Strings(res)
	return fmt.Sprintf("cannot locate genes %s in expression table (resolved: %s; row keys include: %s)",
		strings.Join(e.Unresolved, ", "), strings.Join(res, ", "), strings.Join(e.SampleKeys, ", "))
}

// Find resolves one symbol against row keys: case-insensitive exact match, then
// the first key containing the symbol, then the known Entrez id in integer or string form.
func Find(symbol string, rowKeys []string) (Hit, bool) {
	want := strings.ToUpper(strings.TrimSpace(symbol))
	if want == "" {
		return Hit{}, false
	}
	for i, k := range rowKeys {
		if strings.ToUpper(strings.TrimSpace(k)) == want {
			return Hit{Symbol: symbol, Row: i, Key: k, Method: MethodExact}, true
		}
	}
	for i, k := range rowKeys {
		if strings.Contains(strings.ToUpper(k), want) {
			return Hit{Symbol: symbol, Row: i, Key: k, Method: MethodSubstring}, true
		}
	}
	id, ok := EntrezID(want)
	if !ok {
		return Hit{}, false
	}
	str := strconv.Itoa(id)
	for i, k := range rowKeys {
		k = strings.TrimSpace(k)
		if k == str {
			return Hit{Symbol: symbol, Row: i, Key: k, Method: MethodEntrez}, true
		}
	}
	for i, k := range rowKeys {
		if f, err := strconv.ParseFloat(strings.TrimSpace(k), 64); err == nil && f == float64(id) {
			return Hit{Symbol: symbol, Row: i, Key: k, Method: MethodEntrez}, true
		}
	}
	return Hit{}, false
}

// Extract resolves every symbol. Any unresolved symbol fails the whole call.
func Extract(m *dataset.ExpressionMatrix, symbols []string) ([]Hit, error) {
	hits := make([]Hit, 0, len(symbols))
	resolved := map[string]string{}
	var missing []string
	for _, s := range symbols {
		h, ok := Find(s, m.RowKeys)
		if !ok {
			missing = append(missing, s)
			continue
		}
		hits = append(hits, h)
		resolved[s] = h.Key
	}
	if len(missing) > 0 {
		n := len(m.RowKeys)
		if n > 20 {
			n = 20
		}
		return nil, &ResolutionError{Resolved: resolved, Unresolved: missing, SampleKeys: append([]string(nil), m.RowKeys[:n]...)}
	}
	return hits, nil
}
