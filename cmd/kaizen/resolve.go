package main

import (
	"time"

	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
)

var (
	resolveTaskSize string
	resolveGrouped  bool
	lookupTaskSize  string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <scope> <query>...",
	Short: "Resolve the knowledge relevant to a task",
	Long: `Search the scope and every ancestor scope for entries matching the queries.
Entries are ranked by relevance; ties go to the more specific scope.

Examples:
  kaizen resolve acme:web "add endpoint" "error handling"
  kaizen resolve acme:web testing --task-size S --grouped`,
	Args: cobra.MinimumNArgs(2),
	RunE: runResolve,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <scope> <keyword>...",
	Short: "Look up one entry per exact keyword",
	Long: `Return, for each keyword, the single matching entry from the most specific
scope in the chain.

Examples:
  kaizen lookup acme:web "release process" "code review"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLookup,
}

var chainCmd = &cobra.Command{
	Use:   "chain <scope>",
	Short: "Show the inheritance chain of a scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runChain,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveTaskSize, "task-size", "", "Task size filter (XS, S, M, L, XL)")
	resolveCmd.Flags().BoolVar(&resolveGrouped, "grouped", false, "Group results by owning scope")
	lookupCmd.Flags().StringVar(&lookupTaskSize, "task-size", "", "Task size filter (XS, S, M, L, XL)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(chainCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := a.engine.Resolve(newContext(), knowledge.ResolveRequest{
		Scope:    args[0],
		Queries:  args[1:],
		TaskSize: resolveTaskSize,
	})
	if err != nil {
		return err
	}

	resp := envelope.ForResolve(res, time.Since(start))
	if resolveGrouped {
		resp.Data = groupedResult{
			Scope:  res.Scope,
			Chain:  res.Chain,
			Groups: knowledge.GroupedByScope(res),
		}
	}
	return printResponse(resp)
}

func runLookup(cmd *cobra.Command, args []string) error {
	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res, err := a.engine.Lookup(newContext(), knowledge.LookupRequest{
		Scope:    args[0],
		Keywords: args[1:],
		TaskSize: lookupTaskSize,
	})
	if err != nil {
		return err
	}
	return printResponse(envelope.ForLookup(res, time.Since(start)))
}

func runChain(cmd *cobra.Command, args []string) error {
	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	chain, err := a.engine.ResolveChain(newContext(), args[0])
	if err != nil {
		return err
	}
	return printResponse(envelope.ForChain(chain))
}
