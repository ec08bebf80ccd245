package strata

import (
	"math"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
)

// Labels emitted by ClassifyMSI.
const (
	MSIHigh    = "MSI-H"
	MSIStable  = "MSS"
	MSIUnknown = "UNKNOWN"
)

var (
	msiAxis = Axis{Covariate: dataset.KeyMSI, Categories: map[string][]string{
		"MSS":  {"MSS", "MSI-L", "MSI_L", "LOW", "STABLE"},
		"MSIH": {"MSI-H", "MSI_H", "HIGH"},
	}}
	tp53Axis = Axis{Covariate: dataset.KeyTP53, Categories: map[string][]string{
		"TP53wt":  {"WT", "WILDTYPE", "WILD-TYPE", "WILD_TYPE", "0", "NO", "FALSE"},
		"TP53mut": {"MUT", "MUTANT", "MUTATED", "1", "YES", "TRUE"},
	}}
	visitAxis = Axis{Covariate: dataset.KeyVisit, Categories: map[string][]string{
		"Pre": {"PRE", "PRE-TREATMENT", "PRETREATMENT", "BASELINE"},
		"On":  {"ON", "ON-TREATMENT", "ONTREATMENT"},
	}}
	responseAxis = Axis{Covariate: dataset.KeyResponse, Categories: map[string][]string{
		"Responder":    {"CR", "PR", "PRCR"},
		"NonResponder": {"SD", "PD"},
	}}
)

func copyAxis(a Axis) Axis {
	c := Axis{Covariate: a.Covariate, Categories: make(map[string][]string, len(a.Categories))}
	for k, v := range a.Categories {
		c.Categories[k] = append([]string(nil), v...)
	}
	return c
}

var presets = map[string]func() *DecisionTable{
	"msi_tp53": func() *DecisionTable {
		return &DecisionTable{
			Name: "msi_tp53",
			Axes: []Axis{copyAxis(msiAxis), copyAxis(tp53Axis)},
			Strata: []Stratum{
				{Label: "MSS_TP53wt", Description: "MSS/MSI-L + TP53-wt", When: []string{"MSS", "TP53wt"}},
				{Label: "MSS_TP53mut", Description: "MSS/MSI-L + TP53-mut", When: []string{"MSS", "TP53mut"}},
				{Label: "MSIH_TP53wt", Description: "MSI-H + TP53-wt", When: []string{"MSIH", "TP53wt"}},
				{Label: "MSIH_TP53mut", Description: "MSI-H + TP53-mut", When: []string{"MSIH", "TP53mut"}},
			},
		}
	},
	"visit": func() *DecisionTable {
		return &DecisionTable{
			Name: "visit",
			Axes: []Axis{copyAxis(visitAxis)},
			Strata: []Stratum{
				{Label: "Pre", Description: "Pre-treatment", When: []string{"Pre"}},
				{Label: "On", Description: "On-treatment", When: []string{"On"}},
			},
		}
	},
	"visit_response": func() *DecisionTable {
		return &DecisionTable{
			Name: "visit_response",
			Axes: []Axis{copyAxis(visitAxis), copyAxis(responseAxis)},
			Strata: []Stratum{
				{Label: "Pre_Responder", Description: "Pre-treatment, CR/PR", When: []string{"Pre", "Responder"}},
				{Label: "Pre_NonResponder", Description: "Pre-treatment, SD/PD", When: []string{"Pre", "NonResponder"}},
				{Label: "On_Responder", Description: "On-treatment, CR/PR", When: []string{"On", "Responder"}},
				{Label: "On_NonResponder", Description: "On-treatment, SD/PD", When: []string{"On", "NonResponder"}},
			},
		}
	},
	"none": func() *DecisionTable {
		return &DecisionTable{
			Name:   "none",
			Strata: []Stratum{{Label: "ALL", Description: "All samples", When: []string{}}},
		}
	},
}

// ClassifyMSI derives an MSI call from a consensus label, falling back to the
// MANTIS score (> 0.4 is MSI-H) and then the MSIsensor score (> 10 is MSI-H).
// Missing scores are NaN.
func ClassifyMSI(consensus string, mantis, msisensor float64) string {
	c := strings.ToUpper(strings.TrimSpace(consensus))
	switch {
	case strings.Contains(c, "MSI-H") || c == "MSI_H" || c == "HIGH":
		return MSIHigh
	case c == "MSS" || c == "MSI-L" || c == "MSI_L" || c == "LOW":
		return MSIStable
	}
	if !math.IsNaN(mantis) {
		if mantis > 0.4 {
			return MSIHigh
		}
		return MSIStable
	}
	if !math.IsNaN(msisensor) {
		if msisensor > 10 {
			return MSIHigh
		}
		return MSIStable
	}
	return MSIUnknown
}

// MSIColumns names the clinical columns ClassifyMSI reads from a record.
type MSIColumns struct {
	Consensus string `mapstructure:"consensus" yaml:"consensus"`
	Mantis    string `mapstructure:"mantis" yaml:"mantis"`
	Sensor    string `mapstructure:"sensor" yaml:"sensor"`
}

// DefaultMSIColumns matches the cBioPortal attribute names.
func DefaultMSIColumns() MSIColumns {
	return MSIColumns{
		Consensus: "MSI_STATUS_7_CATEGORY_CONSENSUS_CALLS",
		Mantis:    "MSI_SCORE_MANTIS",
		Sensor:    "MSI_SENSOR_SCORE",
	}
}

// FillMSI sets MSIStatus on records without one, using the score columns when present.
// It returns the number of records it classified.
func FillMSI(records []*dataset.SampleRecord, cols MSIColumns) int {
	n := 0
	for _, r := range records {
		if strings.TrimSpace(r.MSIStatus) != "" {
			continue
		}
		mantis, ok := r.Value(cols.Mantis)
		if !ok {
			mantis = math.NaN()
		}
		sensor, ok := r.Value(cols.Sensor)
		if !ok {
			sensor = math.NaN()
		}
		call := ClassifyMSI(r.Covariate(cols.Consensus), mantis, sensor)
		if call == MSIUnknown {
			continue
		}
		r.MSIStatus = call
		n++
	}
	return n
}
