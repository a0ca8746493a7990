package main

import (
	"strings"

	"github.com/spf13/cobra"

	"kaizen/internal/envelope"
	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
)

var (
	entryContent   string
	entryContext   string
	entryTaskSize  string
	entryClearSize bool
	entryMeta      []string
	entryMoveTo    string
)

var knowledgeCmd = &cobra.Command{
	Use:     "knowledge",
	Aliases: []string{"kn"},
	Short:   "Manage knowledge entries",
	Long: `Write, update and delete knowledge entries. An entry without a task size is
a principle and applies to every task.

Examples:
  kaizen knowledge write acme:web --context "code review" \
      --content "Attach a screenshot to UI changes" --task-size S \
      --meta source=retro --meta owner=web-team
  kaizen knowledge list acme:web
  kaizen knowledge update <id> --clear-task-size`,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list <scope>",
	Short: "List the entries a scope owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			entries, err := a.repos.Entries.List(newContext(), args[0])
			return envelope.Operational(entries), err
		})
	},
}

var knowledgeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			e, err := a.repos.Entries.Get(newContext(), args[0])
			return envelope.Operational(e), err
		})
	},
}

var knowledgeWriteCmd = &cobra.Command{
	Use:   "write <scope>",
	Short: "Write an entry into a scope",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := parseMeta(entryMeta)
		if err != nil {
			return err
		}
		return withApp(func(a *app) (*envelope.Response, error) {
			findings, err := a.guard.Check(secrets.EntryFields(&entryContent, &entryContext, meta)...)
			if err != nil {
				return nil, err
			}
			e, err := a.repos.Entries.Create(newContext(), &knowledge.EntryInput{
				ScopeID:       args[0],
				Content:       entryContent,
				Context:       entryContext,
				TaskSize:      entryTaskSize,
				Metaknowledge: meta,
			})
			return envelope.ForEntryWrite(e, findings), err
		})
	},
}

var knowledgeUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		in := &knowledge.EntryUpdate{ID: args[0], ClearTaskSize: entryClearSize}
		if flags.Changed("content") {
			in.Content = &entryContent
		}
		if flags.Changed("context") {
			in.Context = &entryContext
		}
		if flags.Changed("scope") {
			in.ScopeID = &entryMoveTo
		}
		if flags.Changed("task-size") {
			in.TaskSize = &entryTaskSize
		}
		if flags.Changed("meta") {
			meta, err := parseMeta(entryMeta)
			if err != nil {
				return err
			}
			in.Metaknowledge = &meta
		}
		if in.Content == nil && in.Context == nil && in.ScopeID == nil && in.TaskSize == nil &&
			in.Metaknowledge == nil && !in.ClearTaskSize {
			return errNothingToUpdate("--content", "--context", "--scope", "--task-size", "--clear-task-size", "--meta")
		}
		return withApp(func(a *app) (*envelope.Response, error) {
			var meta knowledge.Metaknowledge
			if in.Metaknowledge != nil {
				meta = *in.Metaknowledge
			}
			findings, err := a.guard.Check(secrets.EntryFields(in.Content, in.Context, meta)...)
			if err != nil {
				return nil, err
			}
			e, err := a.repos.Entries.Update(newContext(), in)
			return envelope.ForEntryWrite(e, findings), err
		})
	},
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			if err := a.repos.Entries.Delete(newContext(), args[0]); err != nil {
				return nil, err
			}
			return envelope.Operational(map[string]string{"deleted": args[0]}), nil
		})
	},
}

// parseMeta turns label=text flags into metaknowledge, keeping flag order
func parseMeta(flags []string) (knowledge.Metaknowledge, error) {
	var meta knowledge.Metaknowledge
	for _, f := range flags {
		label, text, ok := strings.Cut(f, "=")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			return nil, errors.NewInvalidParameterError("meta", "expected label=text, got "+f)
		}
		meta = append(meta, knowledge.MetaField{Label: label, Text: strings.TrimSpace(text)})
	}
	return meta, nil
}

func init() {
	knowledgeWriteCmd.Flags().StringVar(&entryContent, "content", "", "Entry content (required)")
	knowledgeWriteCmd.Flags().StringVar(&entryContext, "context", "", "Keywords the entry is matched on (required)")
	knowledgeWriteCmd.Flags().StringVar(&entryTaskSize, "task-size", "", "Task size (XS, S, M, L, XL)")
	knowledgeWriteCmd.Flags().StringArrayVar(&entryMeta, "meta", nil, "Metaknowledge label=text (repeatable)")
	_ = knowledgeWriteCmd.MarkFlagRequired("content")
	_ = knowledgeWriteCmd.MarkFlagRequired("context")

	knowledgeUpdateCmd.Flags().StringVar(&entryContent, "content", "", "New content")
	knowledgeUpdateCmd.Flags().StringVar(&entryContext, "context", "", "New context")
	knowledgeUpdateCmd.Flags().StringVar(&entryMoveTo, "scope", "", "Move the entry to another scope")
	knowledgeUpdateCmd.Flags().StringVar(&entryTaskSize, "task-size", "", "New task size")
	knowledgeUpdateCmd.Flags().BoolVar(&entryClearSize, "clear-task-size", false, "Make the entry a principle")
	knowledgeUpdateCmd.Flags().StringArrayVar(&entryMeta, "meta", nil, "Replace metaknowledge with label=text pairs")

	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeGetCmd)
	knowledgeCmd.AddCommand(knowledgeWriteCmd)
	knowledgeCmd.AddCommand(knowledgeUpdateCmd)
	knowledgeCmd.AddCommand(knowledgeDeleteCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
