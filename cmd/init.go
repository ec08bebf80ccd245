package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/tgjs-cli/internal/study"
	"github.com/spf13/cobra"
)

var (
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <study-name>",
	Short: "Initialize a new study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		studyDir, err := resolveStudyDirByName(name)
		if err != nil {
			return err
		}
		// Refuse to overwrite an existing study.
		if info, err := os.Stat(studyDir); err == nil && info.IsDir() {
			if _, err := os.Stat(filepath.Join(studyDir, study.FileName)); err == nil {
				return fmt.Errorf("study already exists at %s", studyDir)
			}
			entries, err := os.ReadDir(studyDir)
			if err != nil {
				return fmt.Errorf("inspect study directory: %w", err)
			}
			if len(entries) > 0 {
				return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize study", studyDir)
			}
		} else if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("stat study directory: %w", err)
		}
		s := study.New(name, initDescription, studyDir)
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Study initialized: %s\n", studyDir)
		return nil
	},
}

// loadStudy opens a study by name, or the study enclosing the working directory when name is empty.
func loadStudy(name string) (*study.Study, error) {
	if name == "" {
		root, err := study.FindRoot("")
		if errors.Is(err, study.ErrNoStudy) {
			return nil, fmt.Errorf("--study is required outside a study directory")
		}
		if err != nil {
			return nil, err
		}
		return study.Load(root)
	}
	dir, err := resolveStudyDirByName(name)
	if err != nil {
		return nil, err
	}
	return study.Load(dir)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "study description")
}
