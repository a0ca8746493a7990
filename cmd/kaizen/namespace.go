package main

import (
	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
)

var (
	nsWithScopes  bool
	nsDescription string
	nsRename      string
)

var namespaceCmd = &cobra.Command{
	Use:     "namespace",
	Aliases: []string{"ns"},
	Short:   "Manage namespaces",
	Long: `Create, list, rename and delete namespaces. Every namespace owns a default
scope that inherits from global:default.

Examples:
  kaizen namespace create acme --description "Acme Corp"
  kaizen namespace list --scopes
  kaizen namespace update acme --rename acme-corp
  kaizen namespace delete acme-corp`,
}

var namespaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List namespaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			list, err := a.repos.Namespaces.List(newContext(), nsWithScopes)
			return envelope.Operational(list), err
		})
	},
}

var namespaceGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a namespace with its scopes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			ns, err := a.repos.Namespaces.Get(newContext(), args[0], true)
			if err != nil {
				return nil, err
			}
			return envelope.Operational([]*knowledge.Namespace{ns}), nil
		})
	},
}

var namespaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a namespace and its default scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			ns, err := a.repos.Namespaces.Create(newContext(), &knowledge.NamespaceInput{
				Name:        args[0],
				Description: nsDescription,
			})
			return envelope.Operational(ns), err
		})
	},
}

var namespaceUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Rename a namespace or change its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := &knowledge.NamespaceUpdate{Name: args[0]}
		if cmd.Flags().Changed("rename") {
			in.NewName = &nsRename
		}
		if cmd.Flags().Changed("description") {
			in.Description = &nsDescription
		}
		if in.NewName == nil && in.Description == nil {
			return errNothingToUpdate("--rename", "--description")
		}
		return withApp(func(a *app) (*envelope.Response, error) {
			ns, err := a.repos.Namespaces.Update(newContext(), in)
			return envelope.Operational(ns), err
		})
	},
}

var namespaceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a namespace with its scopes and knowledge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			res, err := a.repos.Namespaces.Delete(newContext(), args[0])
			return envelope.Operational(res), err
		})
	},
}

func init() {
	namespaceListCmd.Flags().BoolVar(&nsWithScopes, "scopes", false, "Include scopes")
	namespaceCreateCmd.Flags().StringVar(&nsDescription, "description", "", "Description (required)")
	_ = namespaceCreateCmd.MarkFlagRequired("description")
	namespaceUpdateCmd.Flags().StringVar(&nsRename, "rename", "", "New name")
	namespaceUpdateCmd.Flags().StringVar(&nsDescription, "description", "", "New description")

	namespaceCmd.AddCommand(namespaceListCmd)
	namespaceCmd.AddCommand(namespaceGetCmd)
	namespaceCmd.AddCommand(namespaceCreateCmd)
	namespaceCmd.AddCommand(namespaceUpdateCmd)
	namespaceCmd.AddCommand(namespaceDeleteCmd)
	rootCmd.AddCommand(namespaceCmd)
}
