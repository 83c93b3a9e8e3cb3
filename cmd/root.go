package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/config"
	"github.com/dt-pm-tools/burndown-sync/internal/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	appConfig config.Config
	version   = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:     "burndown",
	Short:   "JIRA effort to sprint burndown sync tool",
	Long:    `A CLI tool that recomputes sprint burndowns from JIRA. Each sync derives the planned goal, burned effort per day and unplanned worklog hours from the issues of the sprint's fix version.`,
	Version: version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.burndown.yaml)")
}

// loadConfig loads and validates configuration. Commands that need JIRA access call this.
func loadConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'burndown config' to set up credentials", err)
	}
	appConfig = cfg
	return nil
}

// loadLocalConfig loads configuration without requiring JIRA credentials.
// Commands that only touch the sprint database call this.
func loadLocalConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	appConfig = cfg
	return nil
}

// openStore opens the sprint database named by the loaded config.
func openStore() (*store.Store, *time.Location, error) {
	loc, err := appConfig.Location()
	if err != nil {
		return nil, nil, err
	}
	path := appConfig.Database
	if path == "" {
		path = config.DefaultDatabasePath()
	}
	st, err := store.Open(path, loc)
	if err != nil {
		return nil, nil, err
	}
	return st, loc, nil
}
