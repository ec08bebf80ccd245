package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/pipeline"
	"github.com/KaramelBytes/tgjs-cli/internal/report"
	"github.com/KaramelBytes/tgjs-cli/internal/strata"
	"github.com/KaramelBytes/tgjs-cli/internal/study"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runStudyName string
	runCohort    string
	runQuiet     bool
	runFlagSet   runFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score every cohort of a study and record a run manifest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, table, err := runFlagSet.settingsFor(cmd)
		if err != nil {
			return err
		}
		s, err := loadStudy(runStudyName)
		if err != nil {
			return err
		}
		names := s.CohortNames()
		if runCohort != "" {
			if _, err := s.Cohort(runCohort); err != nil {
				return err
			}
			names = []string{runCohort}
		}
		if len(names) == 0 {
			return fmt.Errorf("study %s has no cohorts; add one with `tgjs add`", s.Name)
		}

		m := s.NewRun(*settings)
		log := logger.WithField("run", m.ID)
		total := len(names)
		for i, name := range names {
			if !runQuiet {
				fmt.Printf("[%d/%d] Scoring %s...\n", i+1, total, name)
			}
			cr, err := scoreCohort(s.Cohorts[name], m, settings, table, log)
			m.Record(cr, err)
			if err != nil {
				fmt.Printf("⚠ %s failed: %v\n", name, err)
				continue
			}
			if !runQuiet {
				fmt.Printf("✓ %s: %d scored, %d significant (%s alignment)\n", name, cr.Scored, cr.Significant, cr.Strategy)
			}
		}
		if err := s.Finish(m); err != nil {
			return err
		}
		fmt.Printf("✓ Run %s written to %s\n", m.ID, m.Dir())
		if n := m.Failed(); n > 0 {
			return fmt.Errorf("%d of %d cohorts failed", n, total)
		}
		return nil
	},
}

// scoreCohort runs the pipeline on one registered cohort and writes its outputs under the run directory.
func scoreCohort(c *study.Cohort, m *study.Manifest, settings *cfgpkg.Settings, table *strata.DecisionTable, log logrus.FieldLogger) (study.CohortRun, error) {
	cr := study.CohortRun{Cohort: c.Name}
	in, err := readInput(c.Name, c.ClinicalPath, c.ExpressionPath, c.ReadOptions(), settings.Columns)
	if err != nil {
		return cr, err
	}
	in.Strata = table
	res, err := pipeline.Run(in, settings, log)
	if err != nil {
		return cr, err
	}
	cr.Strategy = string(res.Alignment.Strategy)
	cr.Scored = res.Summary.ScoredSamples
	cr.Significant = len(res.Summary.Significant)
	cr.Outputs, err = report.WriteAll(m.CohortDir(c.Name), res.Bundle(settings))
	return cr, err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runStudyName, "study", "s", "", "study name (default: study enclosing the working directory)")
	runCmd.Flags().StringVar(&runCohort, "cohort", "", "score only this cohort")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "suppress progress output")
	runFlagSet.bind(runCmd)
}
