package yamldoc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// TestWriteLoadRoundtrip checks that every key written comes back with the same structure.
func TestWriteLoadRoundtrip(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	want := Document{
		"environment_args": map[string]any{
			"bootstrap": "bootstrap.sh",
		},
		"serving_args": map[string]any{
			"model_id":      "42",
			"model_name":    "m1",
			"model_version": "v3",
			"endpoint_id":   "1001",
			"random":        "0a1b",
		},
	}

	require.NoError(t, Write(fsys, want, "/cfg/nested/fedml.yaml"))

	got, err := Load(fsys, "/cfg/nested/fedml.yaml")
	require.NoError(t, err)

	if diff := cmp.Diff(map[string]any(want), map[string]any(got)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestParse_RejectsNonMapping verifies scalar and list documents are refused.
func TestParse_RejectsNonMapping(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("- a\n- b\n"))
	require.ErrorIs(t, err, ErrNotMapping)

	_, err = Parse([]byte("just text"))
	require.ErrorIs(t, err, ErrNotMapping)

	doc, err := Parse(nil)
	require.NoError(t, err)
	require.Empty(t, doc)
}

// TestAccessors covers typed lookups along key paths.
func TestAccessors(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(`
job: |
  echo hi
computing:
  minimum_num_gpus: 2
  maximum_cost_per_hour: $1.75
  ratio: 0.5
expert_mode:
serving_args:
  model_version: 3
`))
	require.NoError(t, err)

	require.Equal(t, "echo hi\n", doc.String("job"))
	require.Equal(t, 2, doc.Int(0, "computing", "minimum_num_gpus"))
	require.Equal(t, 7, doc.Int(7, "computing", "missing"))
	require.Equal(t, "$1.75", doc.String("computing", "maximum_cost_per_hour"))
	require.Equal(t, "0.5", doc.String("computing", "ratio"))
	require.Equal(t, "3", doc.String("serving_args", "model_version"))
	require.Equal(t, "gpu", doc.StringOr("gpu", "computing", "device_type"))
	require.Empty(t, doc.String("computing"))
	require.False(t, doc.Has("expert_mode"))
	require.True(t, doc.Has("computing"))
	require.Nil(t, doc.Section("expert_mode"))
	require.NotNil(t, doc.Section("computing"))
}

// TestMerge_DoesNotAlias ensures Merge leaves both inputs untouched.
func TestMerge_DoesNotAlias(t *testing.T) {
	t.Parallel()

	base := Document{
		"environment_args": map[string]any{"bootstrap": "old.sh", "keep": "yes"},
		"train_args":       map[string]any{"epochs": 3},
	}
	overlay := Nested("bootstrap.sh", "environment_args", "bootstrap")

	merged, err := Merge(base, overlay)
	require.NoError(t, err)

	require.Equal(t, "bootstrap.sh", merged.String("environment_args", "bootstrap"))
	require.Equal(t, "yes", merged.String("environment_args", "keep"))
	require.Equal(t, 3, merged.Int(0, "train_args", "epochs"))

	require.Equal(t, "old.sh", base.String("environment_args", "bootstrap"))
	require.Equal(t, "bootstrap.sh", overlay.String("environment_args", "bootstrap"))
}

// TestMerge_AddsMissingSections covers overlays introducing new top-level keys.
func TestMerge_AddsMissingSections(t *testing.T) {
	t.Parallel()

	merged, err := Merge(nil, Nested("bootstrap.sh", "environment_args", "bootstrap"))
	require.NoError(t, err)
	require.Equal(t, "bootstrap.sh", merged.String("environment_args", "bootstrap"))

	merged, err = Merge(Document{"a": 1}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, merged.Int(0, "a"))
}
