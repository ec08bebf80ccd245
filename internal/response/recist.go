// Package response tests whether the composite score separates treatment
// responders from non-responders in immunotherapy cohorts.
package response

import "strings"

// recistBinary maps RECIST best response to responder (1) or non-responder (0).
// PRCR is the combined CR/PR call used by some GEO deposits.
var recistBinary = map[string]float64{
	"CR":   1,
	"PR":   1,
	"PRCR": 1,
	"SD":   0,
	"PD":   0,
}

// recistOrdinal orders responses from progression (1) to complete response (4).
var recistOrdinal = map[string]float64{
	"CR":   4,
	"PR":   3,
	"PRCR": 3.5,
	"SD":   2,
	"PD":   1,
}

// Binary returns 1 for CR/PR, 0 for SD/PD. Any other value, including NE, is unknown.
func Binary(resp string) (float64, bool) {
	v, ok := recistBinary[strings.ToUpper(strings.TrimSpace(resp))]
	return v, ok
}

// Ordinal returns the RECIST rank. Unknown values report ok=false.
func Ordinal(resp string) (float64, bool) {
	v, ok := recistOrdinal[strings.ToUpper(strings.TrimSpace(resp))]
	return v, ok
}
