package dataset

import (
	"math"
	"strconv"
	"strings"
)

// missingTokens are cell values treated as absent data.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NAN":  {},
	"NULL": {},
	"NONE": {},
	"-":    {},
	"#N/A": {},
}

// IsMissing reports whether a raw cell value denotes missing data.
func IsMissing(v string) bool {
	_, ok := missingTokens[strings.ToUpper(strings.TrimSpace(v))]
	return ok
}

// ParseValue parses a numeric cell. Missing tokens and unparsable text yield
// (NaN, false). A comma is accepted as decimal separator when no dot is present.
func ParseValue(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if IsMissing(raw) {
		return math.NaN(), false
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if strings.Contains(raw, ",") && !strings.Contains(raw, ".") && strings.Count(raw, ",") == 1 {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return math.NaN(), false
	}
	return f, true
}
