package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/correlate"
	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/normalize"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// WeightTolerance bounds how far score gene weights may sum away from 1.
const WeightTolerance = 1e-9

// ScoreGene is one weighted component of the composite score.
type ScoreGene struct {
	Symbol string  `mapstructure:"symbol" yaml:"symbol"`
	Weight float64 `mapstructure:"weight" yaml:"weight"`
}

// Settings is the run configuration.
type Settings struct {
	ScoreGenes    []ScoreGene `mapstructure:"score_genes" yaml:"score_genes"`
	Normalization string      `mapstructure:"normalization" yaml:"normalization"`
	Markers       []string    `mapstructure:"markers" yaml:"markers"`
	MinSamples    int         `mapstructure:"min_samples" yaml:"min_samples"`
	Alpha         float64     `mapstructure:"alpha" yaml:"alpha"`
	Correction    string      `mapstructure:"correction" yaml:"correction"`

	Strata       string `mapstructure:"strata" yaml:"strata"`
	CustomStrata string `mapstructure:"custom_strata" yaml:"custom_strata,omitempty"` // path to a YAML decision table

	Signatures       bool   `mapstructure:"signatures" yaml:"signatures"`
	ResponseAnalysis bool   `mapstructure:"response_analysis" yaml:"response_analysis"`
	GroupBy          string `mapstructure:"group_by" yaml:"group_by,omitempty"`

	// AlignmentThreshold is the coverage below which the next identifier strategy is tried.
	AlignmentThreshold float64 `mapstructure:"alignment_threshold" yaml:"alignment_threshold"`

	Columns    dataset.ColumnMap `mapstructure:"columns" yaml:"columns"`
	MSIColumns strata.MSIColumns `mapstructure:"msi_columns" yaml:"msi_columns"`
	StudiesDir string            `mapstructure:"studies_dir" yaml:"studies_dir"`
}

// DefaultScoreGenes is the tGJS gene set.
func DefaultScoreGenes() []ScoreGene {
	return []ScoreGene{{"HK2", 0.4}, {"BCL2L1", 0.3}, {"TSPO", 0.3}}
}

// DefaultMarkers are the immune and STING pathway markers.
var DefaultMarkers = []string{
	"immune_proxy", "CD8A", "IFNG", "CXCL10", "GZMB", "PRF1",
	"exhaustion_score", "ee_ratio", "HAVCR2", "LAG3", "PDCD1", "TIGIT",
	"ENPP1", "TREX1", "CD274", "CGAS", "STING1",
	"acute_sting", "chronic_sting", "sting_ratio",
}

// Default returns the built-in settings without reading any file or environment.
func Default() *Settings {
	return &Settings{
		ScoreGenes:         DefaultScoreGenes(),
		Normalization:      string(normalize.ZScore),
		Markers:            append([]string(nil), DefaultMarkers...),
		MinSamples:         correlate.DefaultOptions().MinSamples,
		Alpha:              correlate.DefaultOptions().Alpha,
		Correction:         string(correlate.Bonferroni),
		Strata:             "msi_tp53",
		Signatures:         true,
		AlignmentThreshold: 0.5,
		Columns:            dataset.DefaultColumnMap(),
		MSIColumns:         strata.DefaultMSIColumns(),
	}
}

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field   string
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Problem)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Problem: fmt.Sprintf(format, args...)}
}

// Validate checks the settings before any data is read. It does not touch the
// filesystem; a custom strata file is checked when DecisionTable loads it.
func (s *Settings) Validate() error {
	if len(s.ScoreGenes) == 0 {
		return invalid("score_genes", "at least one gene is required")
	}
	seen := map[string]bool{}
	sum := 0.0
	for i, g := range s.ScoreGenes {
		sym := strings.ToUpper(strings.TrimSpace(g.Symbol))
		if sym == "" {
			return invalid("score_genes", "gene %d has no symbol", i+1)
		}
		if seen[sym] {
			return invalid("score_genes", "duplicate gene %s", g.Symbol)
		}
		seen[sym] = true
		if math.IsNaN(g.Weight) || math.IsInf(g.Weight, 0) || g.Weight < 0 {
			return invalid("score_genes", "weight of %s must be a finite non-negative number", g.Symbol)
		}
		sum += g.Weight
	}
	if math.Abs(sum-1) > WeightTolerance {
		return invalid("score_genes", "weights sum to %.10g, want 1", sum)
	}
	if _, err := normalize.ParseMode(s.Normalization); err != nil {
		return invalid("normalization", "%v", err)
	}
	if _, err := correlate.ParseCorrection(s.Correction); err != nil {
		return invalid("correction", "%v", err)
	}
	if s.CustomStrata == "" {
		if _, err := strata.Preset(s.Strata); err != nil {
			return invalid("strata", "%v", err)
		}
	}
	if s.MinSamples < 3 {
		return invalid("min_samples", "must be at least 3, got %d", s.MinSamples)
	}
	if !(s.Alpha > 0 && s.Alpha < 1) {
		return invalid("alpha", "must be in (0, 1), got %g", s.Alpha)
	}
	if !(s.AlignmentThreshold > 0 && s.AlignmentThreshold <= 1) {
		return invalid("alignment_threshold", "must be in (0, 1], got %g", s.AlignmentThreshold)
	}
	if strings.TrimSpace(s.Columns.SampleID) == "" {
		return invalid("columns.sample_id", "must name the sample id column")
	}
	return nil
}

// Symbols returns the score gene symbols in order.
func (s *Settings) Symbols() []string {
	out := make([]string, len(s.ScoreGenes))
	for i, g := range s.ScoreGenes {
		out[i] = g.Symbol
	}
	return out
}

// Weights returns the score gene weights in order.
func (s *Settings) Weights() []float64 {
	out := make([]float64, len(s.ScoreGenes))
	for i, g := range s.ScoreGenes {
		out[i] = g.Weight
	}
	return out
}

// DecisionTable loads the custom strata table when set, else the named preset.
// A missing or malformed custom table is reported as a ValidationError.
func (s *Settings) DecisionTable() (*strata.DecisionTable, error) {
	if s.CustomStrata == "" {
		d, err := strata.Preset(s.Strata)
		if err != nil {
			return nil, invalid("strata", "%v", err)
		}
		return d, nil
	}
	data, err := os.ReadFile(s.CustomStrata)
	if err != nil {
		return nil, invalid("custom_strata", "%v", err)
	}
	d, err := strata.Parse(data)
	if err != nil {
		return nil, invalid("custom_strata", "%s: %v", s.CustomStrata, err)
	}
	return d, nil
}

// Dir returns the configuration directory, ~/.tgjs.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tgjs"), nil
}

// Save writes the given settings to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tgjs/config.yaml, creating the directory if necessary.
func Save(s *Settings, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	genes := make([]map[string]any, 0, len(d.ScoreGenes))
	for _, g := range d.ScoreGenes {
		genes = append(genes, map[string]any{"symbol": g.Symbol, "weight": g.Weight})
	}
	v.SetDefault("score_genes", genes)
	v.SetDefault("normalization", d.Normalization)
	v.SetDefault("markers", d.Markers)
	v.SetDefault("min_samples", d.MinSamples)
	v.SetDefault("alpha", d.Alpha)
	v.SetDefault("correction", d.Correction)
	v.SetDefault("strata", d.Strata)
	v.SetDefault("custom_strata", "")
	v.SetDefault("signatures", d.Signatures)
	v.SetDefault("response_analysis", false)
	v.SetDefault("group_by", "")
	v.SetDefault("alignment_threshold", d.AlignmentThreshold)

	cm := d.Columns
	v.SetDefault("columns.sample_id", cm.SampleID)
	v.SetDefault("columns.title", cm.Title)
	v.SetDefault("columns.aliases", []string{})
	v.SetDefault("columns.patient", cm.Patient)
	v.SetDefault("columns.cancer_type", cm.CancerType)
	v.SetDefault("columns.msi", cm.MSI)
	v.SetDefault("columns.tp53", cm.TP53)
	v.SetDefault("columns.visit", cm.Visit)
	v.SetDefault("columns.response", cm.Response)

	mc := d.MSIColumns
	v.SetDefault("msi_columns.consensus", mc.Consensus)
	v.SetDefault("msi_columns.mantis", mc.Mantis)
	v.SetDefault("msi_columns.sensor", mc.Sensor)
	v.SetDefault("studies_dir", "")
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied by the caller.
func Load(cfgFile string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("TGJS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if s.StudiesDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		s.StudiesDir = filepath.Join(dir, "studies")
	}
	return &s, nil
}
