package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
	"kaizen/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats an envelope according to the specified format
func FormatResponse(resp *envelope.Response, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// printResponse writes an envelope to stdout in the selected format
func printResponse(resp *envelope.Response) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// formatJSON formats the response as JSON
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman renders known payloads as text and falls back to JSON
func formatHuman(resp *envelope.Response) (string, error) {
	var b strings.Builder

	switch v := resp.Data.(type) {
	case *knowledge.ResolveResult:
		formatResolveHuman(&b, v)
	case groupedResult:
		formatGroupedHuman(&b, v)
	case *knowledge.LookupResult:
		formatLookupHuman(&b, v)
	case []*knowledge.Scope:
		formatChainHuman(&b, v)
	case []*knowledge.Namespace:
		formatNamespacesHuman(&b, v)
	case *storage.Stats:
		formatStatsHuman(&b, v)
	default:
		data, err := formatJSON(resp.Data)
		if err != nil {
			return "", err
		}
		b.WriteString(data)
		b.WriteString("\n")
	}

	if resp.Meta != nil && resp.Meta.Truncation != nil && resp.Meta.Truncation.IsTruncated {
		t := resp.Meta.Truncation
		fmt.Fprintf(&b, "\n(showing %d of %d, %s)\n", t.Shown, t.Total, t.Reason)
	}
	for _, w := range resp.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w.Message)
	}
	for _, s := range resp.SuggestedNextCalls {
		fmt.Fprintf(&b, "hint: %s (%s)\n", s.Reason, s.Tool)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatResolveHuman(b *strings.Builder, res *knowledge.ResolveResult) {
	fmt.Fprintf(b, "Scope: %s\n", res.Scope)
	fmt.Fprintf(b, "Chain: %s\n", strings.Join(res.Chain, " > "))
	if !res.TaskSize.IsNone() {
		fmt.Fprintf(b, "Task size: %s\n", res.TaskSize)
	}
	b.WriteString(strings.Repeat("=", 60) + "\n")
	if len(res.Entries) == 0 {
		b.WriteString("No matching knowledge.\n")
		return
	}
	for i, e := range res.Entries {
		writeEntry(b, i+1, e)
	}
}

// groupedResult is the --grouped presentation of a resolution
type groupedResult struct {
	Scope  string                 `json:"scope"`
	Chain  []string               `json:"chain"`
	Groups []knowledge.ScopeGroup `json:"groups"`
}

func formatGroupedHuman(b *strings.Builder, g groupedResult) {
	fmt.Fprintf(b, "Chain: %s\n", strings.Join(g.Chain, " > "))
	if len(g.Groups) == 0 {
		b.WriteString("No matching knowledge.\n")
		return
	}
	for _, group := range g.Groups {
		fmt.Fprintf(b, "\n%s\n%s\n", group.Scope, strings.Repeat("-", len(group.Scope)))
		for i, e := range group.Entries {
			writeEntry(b, i+1, e)
		}
	}
}

func formatLookupHuman(b *strings.Builder, res *knowledge.LookupResult) {
	fmt.Fprintf(b, "Chain: %s\n", strings.Join(res.Chain, " > "))
	for _, m := range res.Matches {
		fmt.Fprintf(b, "\n%s:\n", m.Keyword)
		if m.Entry == nil {
			b.WriteString("  (no match)\n")
			continue
		}
		writeEntry(b, 0, *m.Entry)
	}
}

func writeEntry(b *strings.Builder, n int, e knowledge.ResolvedEntry) {
	prefix := "  "
	if n > 0 {
		prefix = fmt.Sprintf("%2d. ", n)
	}
	size := ""
	if !e.TaskSize.IsNone() {
		size = " [" + e.TaskSize.String() + "]"
	}
	fmt.Fprintf(b, "%s%s%s  (%s, rank %.2f)\n", prefix, e.Context, size, e.ScopeID, e.Rank)
	fmt.Fprintf(b, "    %s\n", e.Content)
	for _, m := range e.Metaknowledge {
		fmt.Fprintf(b, "    %s: %s\n", m.Label, m.Text)
	}
	fmt.Fprintf(b, "    id: %s\n", e.EntryID)
}

func formatChainHuman(b *strings.Builder, chain []*knowledge.Scope) {
	for i, s := range chain {
		fmt.Fprintf(b, "%d. %-32s %-8s %s\n", i, s.ID, s.Tier, s.Description)
	}
}

func formatNamespacesHuman(b *strings.Builder, list []*knowledge.Namespace) {
	if len(list) == 0 {
		b.WriteString("No namespaces.\n")
		return
	}
	for _, ns := range list {
		fmt.Fprintf(b, "%-24s %s\n", ns.Name, ns.Description)
		for _, s := range ns.Scopes {
			parents := ""
			if len(s.Parents) > 0 {
				parents = " <- " + strings.Join(s.Parents, ", ")
			}
			fmt.Fprintf(b, "  %-22s %-8s%s\n", s.Name, s.Tier, parents)
		}
	}
}

func formatStatsHuman(b *strings.Builder, s *storage.Stats) {
	fmt.Fprintf(b, "Namespaces:     %d\n", s.Namespaces)
	fmt.Fprintf(b, "Scopes:         %d\n", s.Scopes)
	fmt.Fprintf(b, "Entries:        %d\n", s.Entries)
	fmt.Fprintf(b, "Conflicts:      %d\n", s.Conflicts)
	fmt.Fprintf(b, "Schema version: %d\n", s.SchemaVersion)
	fmt.Fprintf(b, "Database size:  %s\n", formatBytes(s.SizeBytes+s.WALSizeBytes))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
