package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/pipeline"
	"github.com/KaramelBytes/tgjs-cli/internal/report"
	"github.com/spf13/cobra"
)

var (
	scClinical   string
	scExpr       string
	scName       string
	scOutputDir  string
	scSheetName  string
	scSheetIndex int
	scDelimiter  string
	scFlags      runFlags
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one cohort and correlate the score with markers per stratum",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scClinical == "" || scExpr == "" {
			return fmt.Errorf("--clinical and --expr are required")
		}
		s, table, err := scFlags.settingsFor(cmd)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(scDelimiter)
		if err != nil {
			return err
		}
		name := scName
		if name == "" {
			base := filepath.Base(scClinical)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		opt := dataset.ReadOptions{Delimiter: delim, SheetName: scSheetName, SheetIndex: scSheetIndex}
		in, err := readInput(name, scClinical, scExpr, opt, s.Columns)
		if err != nil {
			return err
		}
		in.Strata = table
		res, err := pipeline.Run(in, s, logger)
		if err != nil {
			return err
		}

		if scOutputDir == "" {
			fmt.Println(res.Document(s).Markdown())
			return nil
		}
		written, err := report.WriteAll(scOutputDir, res.Bundle(s))
		if err != nil {
			return err
		}
		printWarnings(res.Warnings)
		fmt.Printf("✓ Scored %d samples (%s alignment), %d significant correlations\n",
			res.Summary.ScoredSamples, res.Alignment.Strategy, len(res.Summary.Significant))
		fmt.Printf("✓ Wrote %d files to %s\n", len(written), scOutputDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVar(&scClinical, "clinical", "", "clinical table (CSV/TSV/XLSX/XLS, optionally .gz/.xz)")
	scoreCmd.Flags().StringVar(&scExpr, "expr", "", "expression matrix: genes as rows, samples as columns")
	scoreCmd.Flags().StringVar(&scName, "name", "", "cohort name used in reports (default: clinical file name)")
	scoreCmd.Flags().StringVarP(&scOutputDir, "output", "o", "", "directory for CSV/JSON/Markdown outputs (default: print report)")
	scoreCmd.Flags().StringVar(&scSheetName, "sheet-name", "", "XLSX: clinical sheet name")
	scoreCmd.Flags().IntVar(&scSheetIndex, "sheet-index", 1, "XLSX: 1-based clinical sheet index (used if --sheet-name not provided)")
	scoreCmd.Flags().StringVar(&scDelimiter, "delimiter", "", "clinical CSV delimiter: ',' | ';' | 'tab'")
	scFlags.bind(scoreCmd)
}
