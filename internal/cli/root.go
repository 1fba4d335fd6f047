package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"museumtopics/config"
	"museumtopics/internal/domain"
	"museumtopics/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "museumtopics",
	Short: "Topic modeling for museum visitor surveys",
	Long: `museumtopics reads a survey export, groups the open-ended answers of each
question into topics, labels every topic with its most distinctive words and
tallies the engagement question.

Example usage:
  museumtopics analyze                          # Analyze the bundled sample survey
  museumtopics analyze responses.csv -o out.csv # Analyze an export, write topics
  museumtopics stopwords                        # Print the stop-word policy`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return &domain.ConfigurationError{Path: cfgFile, Err: fmt.Errorf("failed to load config: %w", err)}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the command line and exits non-zero on any error.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./museumtopics.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "working directory for relative paths (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// resolve makes a config-relative path absolute against the root directory.
func resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}
