package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tgjs configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := currentSettings()
		if err != nil {
			return err
		}
		b, err := yaml.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		fmt.Print(string(b))
		if err := s.Validate(); err != nil {
			fmt.Printf("⚠ %v\n", err)
		} else if _, err := s.DecisionTable(); err != nil {
			fmt.Printf("⚠ %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		s, err := currentSettings()
		if err != nil {
			return err
		}
		if err := setKey(s, key, val); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if _, err := s.DecisionTable(); err != nil {
			return err
		}
		if err := cfgpkg.Save(s, cfgFile); err != nil {
			return err
		}
		cfg = s
		fmt.Println("✓ Saved config")
		return nil
	},
}

func setKey(s *cfgpkg.Settings, key, val string) error {
	switch key {
	case "score_genes":
		genes, err := parseScoreGenes(val)
		if err != nil {
			return err
		}
		s.ScoreGenes = genes
	case "normalization":
		s.Normalization = strings.ToLower(val)
	case "correction":
		s.Correction = strings.ToLower(val)
	case "strata":
		s.Strata = val
	case "custom_strata":
		s.CustomStrata = val
	case "markers":
		s.Markers = splitList(val)
	case "min_samples":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for min_samples: %v", val)
		}
		s.MinSamples = i
	case "alpha", "alignment_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		if key == "alpha" {
			s.Alpha = f
		} else {
			s.AlignmentThreshold = f
		}
	case "signatures", "response_analysis":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		if key == "signatures" {
			s.Signatures = b
		} else {
			s.ResponseAnalysis = b
		}
	case "group_by":
		s.GroupBy = val
	case "studies_dir":
		s.StudiesDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// parseScoreGenes reads "HK2:0.4,BCL2L1:0.3,TSPO:0.3".
func parseScoreGenes(val string) ([]cfgpkg.ScoreGene, error) {
	var out []cfgpkg.ScoreGene
	for _, part := range splitList(val) {
		sym, w, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid score gene %q (use SYMBOL:WEIGHT)", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %v", sym, w)
		}
		out = append(out, cfgpkg.ScoreGene{Symbol: strings.TrimSpace(sym), Weight: f})
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
