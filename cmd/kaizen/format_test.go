package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/envelope"
	"kaizen/internal/knowledge"
	"kaizen/internal/storage"
	"kaizen/internal/testutil"
)

func TestFormatHumanGolden(t *testing.T) {
	tests := []struct {
		name string
		resp *envelope.Response
	}{
		{
			name: "resolve_human",
			resp: &envelope.Response{
				Data: &knowledge.ResolveResult{
					Scope:    "acme:web",
					Chain:    []string{"acme:web", "acme:default", "global:default"},
					TaskSize: knowledge.TaskSizeS,
					Entries: []knowledge.ResolvedEntry{
						{
							EntryID:       "e1",
							ScopeID:       "acme:web",
							Content:       "Attach a screenshot to UI changes",
							Context:       "code review",
							TaskSize:      knowledge.TaskSizeS,
							Metaknowledge: knowledge.Metaknowledge{{Label: "source", Text: "retro"}},
							Rank:          0.75,
						},
						{
							EntryID:    "e2",
							ScopeID:    "global:default",
							Content:    "Keep pull requests small",
							Context:    "code review",
							Rank:       0.5,
							Precedence: 2,
						},
					},
					TotalMatches: 5,
					Truncated:    true,
				},
				Meta: &envelope.Meta{Truncation: &envelope.Truncation{
					IsTruncated: true, Shown: 2, Total: 5, Reason: "max-results",
				}},
				Warnings:           []envelope.Warning{{Message: "scope acme:legacy is not reachable"}},
				SuggestedNextCalls: []envelope.SuggestedCall{{Tool: "lookup", Reason: "exact keyword match"}},
			},
		},
		{
			name: "lookup_human",
			resp: envelope.Operational(&knowledge.LookupResult{
				Scope: "acme:web",
				Chain: []string{"acme:web", "global:default"},
				Matches: []knowledge.KeywordMatch{
					{Keyword: "deploy", Entry: &knowledge.ResolvedEntry{
						EntryID: "e3",
						ScopeID: "acme:web",
						Content: "Deploy behind a feature flag",
						Context: "deploy",
						Rank:    1,
					}},
					{Keyword: "caching"},
				},
			}),
		},
		{
			name: "namespaces_human",
			resp: envelope.Operational([]*knowledge.Namespace{{
				Name:        "acme",
				Description: "Acme Corp",
				Scopes: []*knowledge.Scope{
					{ID: "acme:default", Name: "default", Tier: knowledge.TierProduct, Parents: []string{"global:default"}},
					{ID: "acme:web", Name: "web", Tier: knowledge.TierProject, Parents: []string{"acme:default", "acme:security"}},
				},
			}}),
		},
		{
			name: "stats_human",
			resp: envelope.Operational(&storage.Stats{
				Namespaces:    2,
				Scopes:        7,
				Entries:       41,
				Conflicts:     3,
				SchemaVersion: 1,
				SizeBytes:     4096,
				WALSizeBytes:  2048,
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FormatResponse(tt.resp, FormatHuman)
			require.NoError(t, err)
			testutil.CompareGolden(t, tt.name, out)
		})
	}
}

func TestFormatHumanFallsBackToJSON(t *testing.T) {
	out, err := FormatResponse(envelope.Operational(map[string]string{"deleted": "e1"}), FormatHuman)
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleted":"e1"}`, out)
}

func TestFormatJSON(t *testing.T) {
	resp := envelope.New().Data(map[string]int{"entries": 3}).Warning("partial").Build()

	out, err := FormatResponse(resp, FormatJSON)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, map[string]interface{}{"entries": float64(3)}, decoded["data"])
	assert.Len(t, decoded["warnings"], 1)
}

func TestFormatUnsupported(t *testing.T) {
	_, err := FormatResponse(envelope.Operational(nil), OutputFormat("yaml"))
	assert.Error(t, err)
}

func TestFormatEmptyResolution(t *testing.T) {
	out, err := FormatResponse(envelope.Operational(&knowledge.ResolveResult{
		Scope: "global:default",
		Chain: []string{"global:default"},
	}), FormatHuman)
	require.NoError(t, err)
	assert.Contains(t, out, "No matching knowledge.")
	assert.NotContains(t, out, "Task size")
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}

func TestParseMeta(t *testing.T) {
	meta, err := parseMeta([]string{"source=retro", " owner = web-team ", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, knowledge.Metaknowledge{
		{Label: "source", Text: "retro"},
		{Label: "owner", Text: "web-team"},
		{Label: "note", Text: "a=b"},
	}, meta)

	_, err = parseMeta([]string{"no-separator"})
	assert.Error(t, err)
	_, err = parseMeta([]string{"=text"})
	assert.Error(t, err)
}
