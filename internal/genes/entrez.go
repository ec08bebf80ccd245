package genes

import "strings"

// entrezIDs maps the symbols used by the score and signature gene sets to NCBI
// Entrez Gene ids, for matrices whose rows are keyed numerically.
var entrezIDs = map[string]int{
	"HK2":    3099,
	"BCL2L1": 598,
	"TSPO":   706,
	"CD8A":   925,
	"IFNG":   3458,
	"CXCL10": 3627,
	"GZMB":   3002,
	"PRF1":   5551,
	"CD274":  29126,
	"TP53":   7157,
	"ENPP1":  5167,
	"TREX1":  11277,
	"CGAS":   115004,
	"STING1": 340061,
	"CCL5":   6352,
	"IFNB1":  3456,
	"IDO1":   3620,
	"TGFB1":  7040,
	"IL6":    3569,
	"ARG1":   383,
	"NOS2":   4843,
	"HAVCR2": 84868,
	"LAG3":   3902,
	"PDCD1":  5133,
	"TIGIT":  201633,
}

// EntrezID returns the Entrez id for a known symbol. Unknown symbols report ok=false.
func EntrezID(symbol string) (int, bool) {
	id, ok := entrezIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	return id, ok
}
