package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/KaramelBytes/tgjs-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	inOutputPath string
	inDelimiter  string
	inSampleRows int
	inGroupBy    string
	inOutlierThr float64
	inSheetName  string
	inSheetIndex int
	inQuiet      bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <files...>",
	Short: "Profile clinical or expression tables before scoring",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandGlobs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		delim, err := parseDelimiter(inDelimiter)
		if err != nil {
			return err
		}
		ropt := dataset.ReadOptions{Delimiter: delim, SheetName: inSheetName, SheetIndex: inSheetIndex}
		popt := dataset.DefaultProfileOptions()
		if cmd.Flags().Changed("sample-rows") {
			popt.SampleRows = inSampleRows
		}
		popt.GroupBy = inGroupBy
		if cmd.Flags().Changed("outlier-threshold") {
			popt.OutlierThreshold = inOutlierThr
		}

		var out strings.Builder
		total := len(files)
		for i, path := range files {
			if !inQuiet && total > 1 {
				fmt.Fprintf(os.Stderr, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := dataset.ReadTable(path, ropt)
			if err != nil {
				return err
			}
			if i > 0 {
				out.WriteString("\n")
			}
			out.WriteString(dataset.ProfileTable(t, popt).Markdown())
		}

		if inOutputPath != "" {
			if err := utils.WriteAtomic(inOutputPath, []byte(out.String())); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote profile to %s\n", inOutputPath)
			return nil
		}
		fmt.Println(out.String())
		return nil
	},
}

// expandGlobs resolves shell-style patterns, keeping literal paths that exist, deduplicated and sorted.
func expandGlobs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVarP(&inOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	inspectCmd.Flags().StringVar(&inDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	inspectCmd.Flags().IntVar(&inSampleRows, "sample-rows", 5, "number of sample rows to include")
	inspectCmd.Flags().StringVar(&inGroupBy, "group-by", "", "summarise numeric columns per value of this column")
	inspectCmd.Flags().Float64Var(&inOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based, 0 disables)")
	inspectCmd.Flags().StringVar(&inSheetName, "sheet-name", "", "XLSX: sheet name to inspect")
	inspectCmd.Flags().IntVar(&inSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	inspectCmd.Flags().BoolVar(&inQuiet, "quiet", false, "suppress progress output")
}
