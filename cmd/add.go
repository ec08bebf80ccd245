package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tgjs-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	addStudyName  string
	addClinical   string
	addExpr       string
	addSheetName  string
	addCohortDesc string
)

var addCmd = &cobra.Command{
	Use:   "add <cohort>",
	Short: "Register a cohort (clinical table + expression matrix) in a study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addClinical == "" || addExpr == "" {
			return fmt.Errorf("--clinical and --expr are required")
		}
		s, err := loadStudy(addStudyName)
		if err != nil {
			return err
		}
		settings, err := currentSettings()
		if err != nil {
			return err
		}
		c, err := s.AddCohort(args[0], addClinical, addExpr, addCohortDesc, settings.Columns, dataset.ReadOptions{SheetName: addSheetName})
		if err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Cohort added: %s (%d samples, %d genes x %d columns)\n", c.Name, c.Samples, c.Genes, c.ExprColumns)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addStudyName, "study", "s", "", "study name (default: study enclosing the working directory)")
	addCmd.Flags().StringVar(&addClinical, "clinical", "", "clinical table path")
	addCmd.Flags().StringVar(&addExpr, "expr", "", "expression matrix path")
	addCmd.Flags().StringVar(&addSheetName, "sheet-name", "", "XLSX: clinical sheet name")
	addCmd.Flags().StringVar(&addCohortDesc, "desc", "", "cohort description")
}
