package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kaizen/internal/config"
	"kaizen/internal/envelope"
	"kaizen/internal/paths"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kaizen configuration",
	Long: `View and manage the configuration stored in <data-dir>/config.json.
Every value can be overridden with a KAIZEN_ environment variable, for
example KAIZEN_SEARCH_MAXRESULTS=20.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := paths.GetDataDir(dataDirFlag)
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(dataDir)
		if err != nil {
			return err
		}
		_, statErr := os.Stat(config.Path(dataDir))
		return printResponse(envelope.Operational(map[string]interface{}{
			"configPath":   config.Path(dataDir),
			"usedDefaults": os.IsNotExist(statErr),
			"config":       cfg,
		}))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := paths.GetDataDir(dataDirFlag)
		if err != nil {
			return err
		}
		path := config.Path(dataDir)
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(dataDir); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset [section]",
	Short: "Restore defaults for one section or the whole file",
	Long: `Restore default values and save the configuration. With a section
argument (search, knowledge, logging, api, mcp) only that section is reset.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, err := paths.GetDataDir(dataDirFlag)
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(dataDir)
		if err != nil {
			// An unreadable file is replaced wholesale by a full reset.
			if len(args) > 0 {
				return err
			}
			cfg = config.DefaultConfig()
		}
		section := ""
		if len(args) > 0 {
			section = args[0]
		}
		if err := cfg.Reset(section); err != nil {
			return err
		}
		if err := cfg.Save(dataDir); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		return printResponse(envelope.Operational(map[string]interface{}{
			"configPath": config.Path(dataDir),
			"reset":      section,
			"config":     cfg,
		}))
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
