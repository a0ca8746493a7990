package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
	"kaizen/internal/secrets"
	"kaizen/internal/slogutil"
	"kaizen/internal/storage"
)

const sampleYAML = `
namespaces:
  - name: acme
    description: Acme Corp
    scopes:
      - name: default
        entries:
          - key: style
            content: Prefer small pull requests
            context: code review
      - name: web
        description: Web frontend
        parents: [acme:platform]
        entries:
          - key: review
            content: Web reviews need a screenshot
            context: code review
            taskSize: S
            metaknowledge:
              - label: source
                text: retro
              - label: author
                text: ops
      - name: platform
        description: Shared platform
        tier: GROUP
conflicts:
  - active: acme:web/review
    suppressed: [acme:default/style]
`

func newImporter(t *testing.T) (*Importer, *storage.DB) {
	t.Helper()
	logger := slogutil.NewDiscardLogger()
	db, err := storage.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewImporter(storage.NewRepositories(db), logger), db
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path       string
		format     Format
		compressed bool
		wantErr    bool
	}{
		{"seed.yaml", FormatYAML, false, false},
		{"dir/seed.YML", FormatYAML, false, false},
		{"seed.toml.zst", FormatTOML, true, false},
		{"seed.json", FormatJSON, false, false},
		{"seed.txt", "", false, true},
		{"seed.zst", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, compressed, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.compressed, compressed)
		})
	}
}

func TestDecode(t *testing.T) {
	b, err := Decode([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)
	require.NoError(t, b.Validate())
	assert.Equal(t, Counts{Namespaces: 1, Scopes: 3, Entries: 2, Conflicts: 1}, b.Summary())

	meta := b.Namespaces[0].Scopes[1].Entries[0].Metaknowledge
	require.Len(t, meta, 2)
	assert.Equal(t, "source", meta[0].Label, "metaknowledge keeps its order")

	_, err = Decode([]byte("namespaces: []\nextra: 1\n"), FormatYAML)
	assert.Error(t, err, "unknown YAML fields are rejected")

	_, err = Decode([]byte("[[namespaces]]\nname = \"acme\"\ndescription = \"Acme\"\nbogus = true\n"), FormatTOML)
	assert.Error(t, err, "unknown TOML fields are rejected")

	tomlBundle, err := Decode([]byte(`
[[namespaces]]
name = "acme"
description = "Acme Corp"

[[namespaces.scopes]]
name = "web"
description = "Web frontend"

[[namespaces.scopes.entries]]
key = "review"
content = "Web reviews need a screenshot"
context = "code review"
`), FormatTOML)
	require.NoError(t, err)
	assert.Equal(t, "review", tomlBundle.Namespaces[0].Scopes[0].Entries[0].Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		bundle Bundle
	}{
		{"unknown conflict ref", Bundle{
			Namespaces: []Namespace{{Name: "acme", Description: "Acme"}},
			Conflicts:  []Conflict{{Active: "acme:web/a", Suppressed: []string{"acme:web/b"}}},
		}},
		{"duplicate scope", Bundle{
			Namespaces: []Namespace{{Name: "acme", Scopes: []Scope{{Name: "web"}, {Name: "web"}}}},
		}},
		{"qualified scope name", Bundle{
			Namespaces: []Namespace{{Name: "acme", Scopes: []Scope{{Name: "acme:web"}}}},
		}},
		{"duplicate key", Bundle{
			Namespaces: []Namespace{{Name: "acme", Scopes: []Scope{{Name: "web", Entries: []Entry{{Key: "k"}, {Key: "k"}}}}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.bundle.Validate())
		})
	}
}

func TestApply(t *testing.T) {
	im, db := newImporter(t)
	ctx := context.Background()

	b, err := Decode([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	counts, err := im.Apply(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Namespaces: 1, Scopes: 2, Entries: 2, Conflicts: 1}, counts,
		"the default scope comes with its namespace")

	web, err := im.repos.Scopes.Get(ctx, "acme:web")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"acme:default", "acme:platform"}, web.Parents)

	engine := knowledge.NewEngine(db, knowledge.DefaultConfig(), slogutil.NewDiscardLogger())
	res, err := engine.Resolve(ctx, knowledge.ResolveRequest{Queries: []string{"code review"}, Scope: "acme:web"})
	require.NoError(t, err)
	require.Len(t, res.Entries, 1, "the suppressed default entry is hidden")
	assert.Equal(t, "acme:web", res.Entries[0].ScopeID)

	t.Run("existing namespace is reused", func(t *testing.T) {
		again := &Bundle{Namespaces: []Namespace{{Name: "acme", Scopes: []Scope{{Name: "api", Description: "API"}}}}}
		counts, err := im.Apply(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, 0, counts.Namespaces)
		assert.Equal(t, 1, counts.Scopes)
	})

	t.Run("existing scope fails", func(t *testing.T) {
		dup := &Bundle{Namespaces: []Namespace{{Name: "acme", Scopes: []Scope{{Name: "api", Description: "API"}}}}}
		_, err := im.Apply(ctx, dup)
		assert.True(t, errors.Is(err, errors.AlreadyExists), "got %v", err)
	})
}

func TestApplyRejectsCycles(t *testing.T) {
	im, _ := newImporter(t)
	b := &Bundle{Namespaces: []Namespace{{
		Name:        "acme",
		Description: "Acme Corp",
		Scopes: []Scope{
			{Name: "a", Description: "Scope A", Parents: []string{"acme:b"}},
			{Name: "b", Description: "Scope B", Parents: []string{"acme:a"}},
		},
	}}}
	_, err := im.Apply(context.Background(), b)
	assert.True(t, errors.Is(err, errors.CycleRejected), "got %v", err)
}

func TestExportRoundTrip(t *testing.T) {
	src, _ := newImporter(t)
	ctx := context.Background()

	b, err := Decode([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)
	_, err = src.Apply(ctx, b)
	require.NoError(t, err)

	exported, err := src.Export(ctx, []string{"acme"})
	require.NoError(t, err)
	require.Len(t, exported.Namespaces, 1)
	require.Len(t, exported.Conflicts, 1)
	assert.Equal(t, Counts{Namespaces: 1, Scopes: 3, Entries: 2, Conflicts: 1}, exported.Summary())

	for _, name := range []string{"bundle.yaml.zst", "bundle.toml", "bundle.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, Write(path, exported))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Positive(t, info.Size())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, exported.Summary(), loaded.Summary())

			dst, _ := newImporter(t)
			counts, err := dst.Apply(ctx, loaded)
			require.NoError(t, err)
			assert.Equal(t, 2, counts.Entries)
			assert.Equal(t, 1, counts.Conflicts)

			platform, err := dst.repos.Scopes.Get(ctx, "acme:platform")
			require.NoError(t, err)
			assert.Equal(t, knowledge.TierGroup, platform.Tier)
		})
	}

	_, err = src.Export(ctx, []string{"missing"})
	assert.True(t, errors.Is(err, errors.NamespaceNotFound))
}

func TestApplySecretGuard(t *testing.T) {
	b := &Bundle{Namespaces: []Namespace{{
		Name:        "acme",
		Description: "Acme Corp",
		Scopes: []Scope{{
			Name: "default",
			Entries: []Entry{{
				Key:     "deploy",
				Content: "Deploy with ghp_" + "u8jzPde0IgxLd6GncfBAepfJBd0Kh8oOOL8d",
				Context: "deployment",
			}},
		}},
	}}}

	t.Run("reject writes nothing", func(t *testing.T) {
		im, _ := newImporter(t)
		im.WithGuard(secrets.NewGuard(secrets.PolicyReject, slogutil.NewDiscardLogger()))
		_, err := im.Apply(context.Background(), b)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.SecretDetected))
		assert.Contains(t, err.Error(), "acme:default/deploy")

		_, err = im.repos.Namespaces.Get(context.Background(), "acme", false)
		assert.True(t, errors.Is(err, errors.NamespaceNotFound))
	})

	t.Run("warn counts flagged entries", func(t *testing.T) {
		im, _ := newImporter(t)
		im.WithGuard(secrets.NewGuard(secrets.PolicyWarn, slogutil.NewDiscardLogger()))
		counts, err := im.Apply(context.Background(), b)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Secrets)
		assert.Equal(t, 1, counts.Entries)
	})
}
