package knowledge

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func TestParse_KeepsDocumentOrder(t *testing.T) {
	src := `
Potency:
  CellTherapy:
    Phase1:
      Global:
        Guidance Summary: [g]
      EU:
        Guidance Summary: [e]
      US:
        Guidance Summary: [u]
        Common pitfalls:
          - p1
          - p2
`
	tree, err := Parse([]byte(src), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, []string{"Global", "EU", "US"}, tree.Regions("Potency", "CellTherapy", "Phase1"))

	b, ok := tree.TryGet("Potency", "CellTherapy", "Phase1", "US")
	require.True(t, ok)
	assert.Equal(t, []string{"Guidance Summary", "Common pitfalls"}, []string{b[0].Name, b[1].Name})
	assert.Equal(t, []string{"p1", "p2"}, b.Items("Common pitfalls"))
}

func TestParse_CoercesAndWarns(t *testing.T) {
	src := `
Stability:
  General:
    General:
      us (fda-centric):
        Stability expectations: single scalar item
        Mystery section: [m]
        Checklist:
          - kept
          - 42
          - {nested: map}
      APAC:
        Checklist: [a]
  Broken: just a string
`
	var logs bytes.Buffer
	tree, err := Parse([]byte(src), testLogger(&logs))
	require.NoError(t, err)

	b, ok := tree.TryGet("Stability", General, General, "US")
	require.True(t, ok, "region keys are normalized")
	assert.Equal(t, []string{"single scalar item"}, b.Items("Stability expectations"))
	assert.Equal(t, []string{"kept"}, b.Items("Checklist"))
	assert.Equal(t, []string{"m"}, b.Items("Mystery section"))

	_, ok = tree.TryGet("Stability", General, General, "APAC")
	assert.True(t, ok, "unknown regions still load")

	out := logs.String()
	assert.Contains(t, out, "unknown section name")
	assert.Contains(t, out, "dropping non-string item")
	assert.Contains(t, out, "unknown region key")
	assert.Contains(t, out, "expected a mapping")
}

func TestParse_JSON(t *testing.T) {
	src := `{"Potency": {"CellTherapy": {"Phase1": {"US": {"Guidance Summary": ["X"]}}}}}`
	tree, err := Parse([]byte(src), nil)
	require.NoError(t, err)

	b, ok := tree.TryGet("Potency", "CellTherapy", "Phase1", "US")
	require.True(t, ok)
	assert.Equal(t, []string{"X"}, b.Items("Guidance Summary"))
}

func TestParse_RejectsNonMappingRoot(t *testing.T) {
	_, err := Parse([]byte("- a\n- b\n"), slog.New(slog.DiscardHandler))
	assert.Error(t, err)

	_, err = Parse([]byte("Potency: [unclosed"), slog.New(slog.DiscardHandler))
	assert.Error(t, err)

	tree, err := Parse(nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Zero(t, tree.Leaves())
}

func TestLoad_DegradesToDefault(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	want := Default().Leaves()
	require.Positive(t, want)

	assert.Equal(t, want, Load(filepath.Join(t.TempDir(), "missing.yaml"), log).Leaves())

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("Potency: [unclosed"), 0o644))
	assert.Equal(t, want, Load(bad, log).Leaves())

	good := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(good, []byte("Container:\n  General:\n    General:\n      EU:\n        Checklist: [x]\n"), 0o644))
	assert.Equal(t, 1, Load(good, log).Leaves())
}

func TestDefault_CoversRoutedIntents(t *testing.T) {
	tree := Default()
	for _, intent := range []string{
		"Potency", "ReportResults", "SpecJustification", "PPQ", "Module3",
		"Stability", "Container", "Replication", "Comparability",
		"Fundamentals", "RegionContext",
	} {
		assert.NotEmpty(t, tree.Products(intent), intent)
	}

	// LVV shares the viral vector block through a YAML alias.
	aav, ok := tree.TryGet("Fundamentals", "AAV", General, "Global")
	require.True(t, ok)
	lvv, ok := tree.TryGet("Fundamentals", "LVV", General, "Global")
	require.True(t, ok)
	assert.Equal(t, aav, lvv)
}

func TestParseRegion(t *testing.T) {
	cases := map[string]Region{
		"US (FDA‑centric)": US,
		"EU (EMA‑centric)": EU,
		"Global (general)": Global,
		"global":           Global,
		"FDA":              US,
		"  eu ":            EU,
		"APAC":             Region("APAC"),
		"":                 Region(""),
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseRegion(in), in)
	}
	assert.True(t, US.Known())
	assert.False(t, Region("APAC").Known())
	assert.Equal(t, EU, US.Counterpart())
	assert.Equal(t, US, EU.Counterpart())
	assert.Equal(t, US, Global.Counterpart())
}

func TestSectionRegistry(t *testing.T) {
	assert.True(t, KnownSection("Guidance Summary"))
	assert.False(t, KnownSection("Lab notes"))
	RegisterSection("Lab notes")
	assert.True(t, KnownSection("Lab notes"))
}
