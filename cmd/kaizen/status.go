package main

import (
	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/storage"
)

var statusCheck bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store statistics",
	Long: `Show row counts, schema version and database size. With --check the
full-text index is verified against the knowledge table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			ctx := newContext()
			stats, err := a.db.Stats(ctx)
			if err != nil {
				return nil, err
			}
			b := envelope.New().Data(stats)
			if statusCheck {
				if err := storage.NewFTSManager(a.db).IntegrityCheck(ctx); err != nil {
					a.logger.Warn("Full-text index check failed", "error", err.Error())
					b.WarningWithCode("FTS_INCONSISTENT", "full-text index does not match the knowledge table: "+err.Error()).
						Suggest("kaizen reindex", nil, "rebuild the full-text index")
				}
			}
			return b.Suggest("kaizen namespace list", nil, "data dir "+a.dataDir).Build(), nil
		})
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild and optimize the full-text index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			ctx := newContext()
			fts := storage.NewFTSManager(a.db)
			if err := fts.Rebuild(ctx); err != nil {
				return nil, err
			}
			if err := fts.Optimize(ctx); err != nil {
				return nil, err
			}
			stats, err := fts.GetStats(ctx)
			if err != nil {
				return nil, err
			}
			a.logger.Info("Full-text index rebuilt", "entries", stats.IndexedEntries)
			return envelope.Operational(stats), nil
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "Verify the full-text index")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reindexCmd)
}
