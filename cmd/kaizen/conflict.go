package main

import (
	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Manage conflict records",
	Long: `A conflict record keeps one entry active and hides the suppressed entries
from every resolution in which the active entry is visible.

Examples:
  kaizen conflict create <active-id> <suppressed-id>...
  kaizen conflict list`,
}

var conflictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conflict records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			list, err := a.repos.Conflicts.List(newContext())
			return envelope.Operational(list), err
		})
	},
}

var conflictCreateCmd = &cobra.Command{
	Use:   "create <active-id> <suppressed-id>...",
	Short: "Record that one entry supersedes others",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			c, err := a.repos.Conflicts.Create(newContext(), args[0], args[1:])
			return envelope.Operational(c), err
		})
	},
}

var conflictDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conflict record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			if err := a.repos.Conflicts.Delete(newContext(), args[0]); err != nil {
				return nil, err
			}
			return envelope.Operational(map[string]string{"deleted": args[0]}), nil
		})
	},
}

func init() {
	conflictCmd.AddCommand(conflictListCmd)
	conflictCmd.AddCommand(conflictCreateCmd)
	conflictCmd.AddCommand(conflictDeleteCmd)
	rootCmd.AddCommand(conflictCmd)
}
