package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpusYAML = `documents:
  - id: shipping
    title: Cold chain shipping
    publisher: PDA
    year: 2022
    text: Shipping lanes are qualified with data loggers across seasonal extremes.
`

func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{
		"--no-color",
		"--knowledge", filepath.Join(dir, "knowledge.yaml"),
		"--corpus", filepath.Join(dir, "corpus.yaml"),
		"--index", filepath.Join(dir, "index.json"),
	}
	cmd.SetArgs(append(args[:1:1], append(base, args[1:]...)...))
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "resolve", "potency", "-p", "CAR-T", "-s", "Phase 1", "-r", "US (FDA-centric)")
	require.NoError(t, err)
	assert.Contains(t, out, "CellTherapy/Phase1/US (miss)")
	assert.Contains(t, out, "CellTherapy/Phase1/Global (fallback:any-region)")
	assert.Contains(t, out, "Guidance Summary")

	out, err = run(t, dir, "resolve", "potency", "-p", "CAR-T", "-s", "Phase 1", "-r", "US", "--json")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "fallback:any-region", got["outcome"])

	out, err = run(t, dir, "resolve", "potency", "-p", "CAR-T", "-s", "Phase 1", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "hit", got["outcome"], "no region means Global")
}

func TestAskCommand(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "ask", "what", "shelf", "life", "is", "expected?")
	require.NoError(t, err)
	assert.Contains(t, out, "### Stability expectations")
	assert.Contains(t, out, "### Disclaimer")

	_, err = run(t, dir, "ask", "potency", "--mode", "chatty")
	assert.Error(t, err)
}

func TestRebuildAndIndexCommands(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "corpus.yaml"), []byte(corpusYAML), 0o644))

	out, err := run(t, dir, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "no index")

	out, err = run(t, dir, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "completed: 1 documents, 1 chunks")

	out, err = run(t, dir, "rebuild")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, err = run(t, dir, "index", "--json")
	require.NoError(t, err)
	var got struct {
		Available bool `json:"available"`
		Index     struct {
			Chunks  int    `json:"chunks"`
			Backend string `json:"backend"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Available)
	assert.Equal(t, 1, got.Index.Chunks)
	assert.Equal(t, "termweight", got.Index.Backend)

	out, err = run(t, dir, "ask", "--mode", "open-text", "shipping", "lanes", "data", "loggers")
	require.NoError(t, err)
	assert.Contains(t, out, "Cold chain shipping")
}
