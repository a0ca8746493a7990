package knowledge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaizen/internal/errors"
)

func TestParseTaskSize(t *testing.T) {
	tests := []struct {
		in   string
		want TaskSize
		err  bool
	}{
		{"", TaskSizeNone, false},
		{"XS", TaskSizeXS, false},
		{" s ", TaskSizeS, false},
		{"m", TaskSizeM, false},
		{"L", TaskSizeL, false},
		{"xl", TaskSizeXL, false},
		{"XXL", TaskSizeNone, true},
		{"medium", TaskSizeNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTaskSize(tt.in)
			if tt.err {
				require.Error(t, err)
				assert.Equal(t, errors.InvalidTaskSizeFilter, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSizeFilterAdmits(t *testing.T) {
	ceiling := SizeFilter{Size: TaskSizeM, Mode: SizeModeCeiling}
	assert.True(t, ceiling.Admits(TaskSizeNone))
	assert.True(t, ceiling.Admits(TaskSizeXS))
	assert.True(t, ceiling.Admits(TaskSizeM))
	assert.False(t, ceiling.Admits(TaskSizeL))

	exact := SizeFilter{Size: TaskSizeM, Mode: SizeModeExact}
	assert.True(t, exact.Admits(TaskSizeNone))
	assert.True(t, exact.Admits(TaskSizeM))
	assert.False(t, exact.Admits(TaskSizeS))

	none := SizeFilter{}
	for s := TaskSizeNone; s <= TaskSizeXL; s++ {
		assert.True(t, none.Admits(s))
	}
}

func TestTierRoundTrip(t *testing.T) {
	for _, tier := range []Tier{TierGeneral, TierProduct, TierGroup, TierProject} {
		parsed, err := ParseTier(tier.String())
		require.NoError(t, err)
		assert.Equal(t, tier, parsed)
	}
	_, err := ParseTier("TEAM")
	assert.Error(t, err)
	assert.True(t, TierProject > TierGroup && TierGroup > TierProduct && TierProduct > TierGeneral)
}

func TestScopeJSON(t *testing.T) {
	s := Scope{ID: "acme:api", Namespace: "acme", Name: "api", Tier: TierGroup}
	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tier":"GROUP"`)

	var back Scope
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, TierGroup, back.Tier)
}

func TestEntryJSONTaskSize(t *testing.T) {
	b, err := json.Marshal(Entry{ID: "1", TaskSize: TaskSizeL})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"taskSize":"L"`)

	b, err = json.Marshal(Entry{ID: "2"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "taskSize")
}

func TestSplitScopeID(t *testing.T) {
	ns, name, err := SplitScopeID("shopcraft:frontend-team")
	require.NoError(t, err)
	assert.Equal(t, "shopcraft", ns)
	assert.Equal(t, "frontend-team", name)

	for _, bad := range []string{"shopcraft", "Shop:x1", "a:bb", "shop:", "shop:has space"} {
		_, _, err := SplitScopeID(bad)
		assert.Error(t, err, bad)
	}
}

func TestConflictRecordValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  ConflictRecord
		ok   bool
	}{
		{"valid", ConflictRecord{ActiveID: "a", SuppressedIDs: []string{"b", "c"}}, true},
		{"empty suppressed", ConflictRecord{ActiveID: "a"}, false},
		{"self suppression", ConflictRecord{ActiveID: "a", SuppressedIDs: []string{"b", "a"}}, false},
		{"missing active", ConflictRecord{SuppressedIDs: []string{"b"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.ConflictRecordInvalid, errors.CodeOf(err))
		})
	}
}

func TestConflictRecordNormalize(t *testing.T) {
	rec := ConflictRecord{ActiveID: "a", SuppressedIDs: []string{"c", " b ", "c", ""}}
	rec.Normalize()
	assert.Equal(t, []string{"b", "c"}, rec.SuppressedIDs)

	empty := ConflictRecord{ActiveID: "a", SuppressedIDs: []string{"  "}}
	empty.Normalize()
	assert.Error(t, empty.Validate())
}

func TestMetaknowledgeGet(t *testing.T) {
	m := Metaknowledge{{Label: "REASON", Text: "outage"}, {Label: "INCIDENT_ID", Text: "INC-42"}}
	v, ok := m.Get("INCIDENT_ID")
	assert.True(t, ok)
	assert.Equal(t, "INC-42", v)
	_, ok = m.Get("OWNER")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	bad := "XXL"
	tests := []struct {
		name  string
		input interface{}
		code  errors.ErrorCode
	}{
		{"namespace ok", &NamespaceInput{Name: "shopcraft", Description: "Online shop"}, ""},
		{"namespace pattern", &NamespaceInput{Name: "Shop Craft", Description: "Online shop"}, errors.InvalidParameter},
		{"namespace short", &NamespaceInput{Name: "s", Description: "Online shop"}, errors.InvalidParameter},
		{"scope ok", &ScopeInput{ID: "shopcraft:web", Description: "Web team", Tier: "group"}, ""},
		{"scope id", &ScopeInput{ID: "web", Description: "Web team"}, errors.InvalidParameter},
		{"scope tier", &ScopeInput{ID: "shopcraft:web", Description: "Web team", Tier: "TEAM"}, errors.InvalidParameter},
		{"scope parent", &ScopeInput{ID: "shopcraft:web", Description: "Web team", Parents: []string{"nope"}}, errors.InvalidParameter},
		{"entry ok", &EntryInput{ScopeID: "shopcraft:web", Content: "c", Context: "x", TaskSize: "M"}, ""},
		{"entry size", &EntryInput{ScopeID: "shopcraft:web", Content: "c", Context: "x", TaskSize: "XXL"}, errors.InvalidTaskSizeFilter},
		{"entry blank", &EntryInput{ScopeID: "shopcraft:web", Content: "  ", Context: "x"}, errors.InvalidParameter},
		{"update size", &EntryUpdate{ID: "1", TaskSize: &bad}, errors.InvalidTaskSizeFilter},
		{"update set and clear", &EntryUpdate{ID: "1", TaskSize: strPtr("S"), ClearTaskSize: true}, errors.InvalidParameter},
		{"scope update parents", &ScopeUpdate{ID: "shopcraft:web", Parents: &[]string{"bad"}}, errors.InvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func strPtr(s string) *string { return &s }

func TestCustomValidationsRegistered(t *testing.T) {
	tests := []struct {
		tag       string
		good, bad string
	}{
		{"kzname", "shopcraft", "Shop Craft"},
		{"scopeid", "shopcraft:web", "web"},
		{"tier", "project", "team"},
		{"tasksize", "XL", "XXL"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			require.NotPanics(t, func() { _ = validate.Var(tt.good, tt.tag) })
			assert.NoError(t, validate.Var(tt.good, tt.tag))
			assert.Error(t, validate.Var(tt.bad, tt.tag))
		})
	}
}
