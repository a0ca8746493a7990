package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/seed"
)

var (
	exportNamespaces []string
	importDryRun     bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a seed bundle",
	Long: `Create the namespaces, scopes, entries and conflicts described by a seed
bundle. The format follows the extension: .yaml, .yml, .toml or .json,
optionally followed by .zst for zstd compression. Existing namespaces are
reused; existing scopes are an error.

Examples:
  kaizen import seeds/acme.yaml
  kaizen import backup.json.zst --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write namespaces to a seed bundle",
	Long: `Export namespaces with their scopes, entries and conflicts. Without
--namespace every namespace is exported.

Examples:
  kaizen export backup.yaml.zst
  kaizen export acme.toml --namespace acme`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the bundle without writing")
	exportCmd.Flags().StringSliceVar(&exportNamespaces, "namespace", nil, "Namespace to export (repeatable)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	b, err := seed.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	if importDryRun {
		summary := b.Summary()
		return printResponse(envelope.New().
			Data(map[string]interface{}{"file": args[0], "bundle": summary}).
			Warning("dry run, nothing was written").
			Build())
	}

	return withApp(func(a *app) (*envelope.Response, error) {
		counts, err := seed.NewImporter(a.repos, a.logger).WithGuard(a.guard).Apply(newContext(), b)
		if err != nil {
			return nil, err
		}
		return envelope.Operational(map[string]interface{}{"file": args[0], "created": counts}), nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withApp(func(a *app) (*envelope.Response, error) {
		b, err := seed.NewImporter(a.repos, a.logger).Export(newContext(), exportNamespaces)
		if err != nil {
			return nil, err
		}
		if err := seed.Write(args[0], b); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		return envelope.Operational(map[string]interface{}{"file": args[0], "exported": b.Summary()}), nil
	})
}
