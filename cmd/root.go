package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/tgjs-cli/internal/config"
	"github.com/KaramelBytes/tgjs-cli/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Settings

	logger = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "tgjs",
	Short: "tGJS: composite expression score and stratified marker correlations",
	Long: `tgjs scores tumour samples with a weighted composite of HK2, BCL2L1 and TSPO expression,
splits them into molecular strata and correlates the score with immune and STING markers inside
each stratum, with multiple-testing correction.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tgjs/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "diagnostic log format: text|json")
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
}

func loadConfig() {
	setupLogger()
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

func setupLogger() {
	if strings.EqualFold(logFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	switch {
	case debug:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.WarnLevel)
	}
}

// currentSettings returns a copy of the loaded settings, loading them on demand
// when the command runs without Execute (tests).
func currentSettings() (*cfgpkg.Settings, error) {
	if cfg != nil {
		c := *cfg
		return &c, nil
	}
	return cfgpkg.Load(cfgFile)
}

func defaultStudiesDir() (string, error) {
	s, err := currentSettings()
	if err != nil {
		return "", err
	}
	dir := s.StudiesDir
	if dir == "" {
		base, err := cfgpkg.Dir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "studies")
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dir = strings.TrimPrefix(dir, "~")
		dir = strings.TrimPrefix(dir, string(os.PathSeparator))
		dir = strings.TrimPrefix(dir, "/")
		dir = filepath.Join(home, dir)
	}
	dir = filepath.Clean(dir)
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func resolveStudyDirByName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("study name is required")
	}
	root, err := defaultStudiesDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}
