package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	stStudy string
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Inspect or edit a study",
}

var studyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a study's cohorts and past runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudy(stStudy)
		if err != nil {
			return err
		}
		fmt.Printf("Study: %s\n", s.Name)
		if s.Description != "" {
			fmt.Printf("Description: %s\n", s.Description)
		}
		fmt.Printf("Directory: %s\n", s.RootDir())
		fmt.Printf("Cohorts: %d\n", len(s.Cohorts))
		for _, name := range s.CohortNames() {
			c := s.Cohorts[name]
			fmt.Printf("- %s [%s]\n  clinical: %s\n  expression: %s\n", c.Name, c.ID, c.ClinicalPath, c.ExpressionPath)
		}
		fmt.Printf("Runs: %d\n", len(s.Runs))
		for _, r := range s.Runs {
			fmt.Printf("- %s %s: %d cohorts, %d failed\n", r.StartedAt.Format("2006-01-02 15:04"), r.ID, r.Cohorts, r.Failed)
		}
		return nil
	},
}

var studyRemoveCohortCmd = &cobra.Command{
	Use:   "remove-cohort <cohort>",
	Short: "Unregister a cohort (files on disk are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudy(stStudy)
		if err != nil {
			return err
		}
		if err := s.RemoveCohort(args[0]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Removed cohort %s from %s\n", args[0], s.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyShowCmd)
	studyCmd.AddCommand(studyRemoveCohortCmd)

	studyCmd.PersistentFlags().StringVarP(&stStudy, "study", "s", "", "study name (default: study enclosing the working directory)")
}
