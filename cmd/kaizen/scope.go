package main

import (
	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
)

var (
	scopeNamespace    string
	scopeDescription  string
	scopeTier         string
	scopeParents      []string
	scopeRename       string
	scopeAddParents   []string
	scopeRemoveParent []string
)

var scopeCmd = &cobra.Command{
	Use:   "scope",
	Short: "Manage scopes and their inheritance",
	Long: `Scopes are named <namespace>:<name>. A scope inherits the knowledge of its
parents; every scope except global:default has at least its namespace default
as a parent.

Examples:
  kaizen scope create acme:web --description "Web frontend" --parent acme:platform
  kaizen scope update acme:web --add-parent acme:security
  kaizen scope list --namespace acme`,
}

var scopeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scopes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			scopes, err := a.repos.Scopes.List(newContext(), scopeNamespace)
			if err != nil {
				return nil, err
			}
			return envelope.Operational(scopes), nil
		})
	},
}

var scopeGetCmd = &cobra.Command{
	Use:   "get <scope>",
	Short: "Show a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			s, err := a.repos.Scopes.Get(newContext(), args[0])
			if err != nil {
				return nil, err
			}
			return envelope.Operational([]*knowledge.Scope{s}), nil
		})
	},
}

var scopeCreateCmd = &cobra.Command{
	Use:   "create <scope>",
	Short: "Create a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			s, err := a.repos.Scopes.Create(newContext(), &knowledge.ScopeInput{
				ID:          args[0],
				Description: scopeDescription,
				Tier:        scopeTier,
				Parents:     scopeParents,
			})
			return envelope.Operational(s), err
		})
	},
}

var scopeUpdateCmd = &cobra.Command{
	Use:   "update <scope>",
	Short: "Rename a scope or change its description, tier or parents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		in := &knowledge.ScopeUpdate{
			ID:            args[0],
			AddParents:    scopeAddParents,
			RemoveParents: scopeRemoveParent,
		}
		if flags.Changed("rename") {
			in.NewName = &scopeRename
		}
		if flags.Changed("description") {
			in.Description = &scopeDescription
		}
		if flags.Changed("tier") {
			in.Tier = &scopeTier
		}
		if flags.Changed("parents") {
			in.Parents = &scopeParents
		}
		if in.NewName == nil && in.Description == nil && in.Tier == nil && in.Parents == nil &&
			len(in.AddParents) == 0 && len(in.RemoveParents) == 0 {
			return errNothingToUpdate("--rename", "--description", "--tier", "--parents", "--add-parent", "--remove-parent")
		}
		return withApp(func(a *app) (*envelope.Response, error) {
			s, err := a.repos.Scopes.Update(newContext(), in)
			return envelope.Operational(s), err
		})
	},
}

var scopeDeleteCmd = &cobra.Command{
	Use:   "delete <scope>",
	Short: "Delete a scope and its knowledge",
	Long: `Delete a scope with every entry it owns. Scopes that are still the parent of
another scope, and default scopes, cannot be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			n, err := a.repos.Scopes.Delete(newContext(), args[0])
			if err != nil {
				return nil, err
			}
			return envelope.Operational(map[string]interface{}{
				"scope":          args[0],
				"deletedEntries": n,
			}), nil
		})
	},
}

func init() {
	scopeListCmd.Flags().StringVar(&scopeNamespace, "namespace", "", "Only scopes of this namespace")

	scopeCreateCmd.Flags().StringVar(&scopeDescription, "description", "", "Description (required)")
	scopeCreateCmd.Flags().StringVar(&scopeTier, "tier", "", "Tier (GENERAL, PRODUCT, GROUP, PROJECT)")
	scopeCreateCmd.Flags().StringSliceVar(&scopeParents, "parent", nil, "Parent scope (repeatable)")
	_ = scopeCreateCmd.MarkFlagRequired("description")

	scopeUpdateCmd.Flags().StringVar(&scopeRename, "rename", "", "New name within the namespace")
	scopeUpdateCmd.Flags().StringVar(&scopeDescription, "description", "", "New description")
	scopeUpdateCmd.Flags().StringVar(&scopeTier, "tier", "", "New tier")
	scopeUpdateCmd.Flags().StringSliceVar(&scopeParents, "parents", nil, "Replace the parent set")
	scopeUpdateCmd.Flags().StringSliceVar(&scopeAddParents, "add-parent", nil, "Add a parent (repeatable)")
	scopeUpdateCmd.Flags().StringSliceVar(&scopeRemoveParent, "remove-parent", nil, "Remove a parent (repeatable)")

	scopeCmd.AddCommand(scopeListCmd)
	scopeCmd.AddCommand(scopeGetCmd)
	scopeCmd.AddCommand(scopeCreateCmd)
	scopeCmd.AddCommand(scopeUpdateCmd)
	scopeCmd.AddCommand(scopeDeleteCmd)
	rootCmd.AddCommand(scopeCmd)
}
