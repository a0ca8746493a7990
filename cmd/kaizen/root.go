package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaizen/internal/version"
)

var (
	dataDirFlag  string
	formatFlag   string
	verboseCount int
	quietFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "kaizen",
	Short: "Kaizen - scoped knowledge retrieval",
	Long: `Kaizen stores knowledge entries in a graph of inheriting scopes and returns
the entries relevant to a task, ranked and filtered, from the most specific
scope outward.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch OutputFormat(formatFlag) {
		case FormatJSON, FormatHuman:
			return nil
		default:
			return fmt.Errorf("unsupported format %q: expected json or human", formatFlag)
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate("kaizen version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "",
		"Data directory (default: $KAIZEN_HOME or ~/.kaizen)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, human)")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "Only log errors")
}
