package cmd

import (
	"fmt"

	"github.com/KaramelBytes/tgjs-cli/internal/study"
	"github.com/spf13/cobra"
)

var (
	listStudies   bool
	listCohorts   bool
	listStudyName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List studies or the cohorts of a study",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listStudies == listCohorts { // either both true or both false
			return fmt.Errorf("specify exactly one of --studies or --cohorts")
		}
		if listStudies {
			return listAllStudies()
		}
		s, err := loadStudy(listStudyName)
		if err != nil {
			return err
		}
		names := s.CohortNames()
		if len(names) == 0 {
			fmt.Println("(no cohorts)")
			return nil
		}
		for _, name := range names {
			c := s.Cohorts[name]
			fmt.Printf("- %s: %d samples, %d genes (%s)\n", c.Name, c.Samples, c.Genes, c.Description)
		}
		return nil
	},
}

func listAllStudies() error {
	root, err := defaultStudiesDir()
	if err != nil {
		return err
	}
	names, err := study.List(root)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("(no studies)")
		return nil
	}
	for _, n := range names {
		fmt.Printf("- %s\n", n)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listStudies, "studies", false, "list studies")
	listCmd.Flags().BoolVar(&listCohorts, "cohorts", false, "list cohorts in a study")
	listCmd.Flags().StringVarP(&listStudyName, "study", "s", "", "study name for --cohorts")
}
