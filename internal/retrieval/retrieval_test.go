package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/cmcguide/internal/corpus"
)

func chunk(id, title string, weight float64, text string) corpus.Chunk {
	return corpus.Chunk{ID: id, Text: text, SourceID: title, Weight: weight, Meta: corpus.Meta{Title: title}}
}

func TestTerms(t *testing.T) {
	got := Terms("The shipper validation of the IFN-γ assay")
	assert.Equal(t, []string{
		"shipper", "validation", "ifn-γ", "assay",
		"shipper validation", "validation ifn-γ", "ifn-γ assay",
	}, got)
	assert.Empty(t, Terms("of the and"))
}

func TestScore_ProvenanceWeightBreaksEqualSimilarity(t *testing.T) {
	text := "Shipper validation should follow a documented protocol."
	chunks := []corpus.Chunk{
		chunk("its#0", "Inspection Theme Summary", corpus.InformalWeight, text),
		chunk("ga#0", "Guideline A", 1.0, text),
		chunk("ga#1", "Guideline A", 1.0, text),
	}

	for _, backend := range []SimilarityBackend{TermWeightBackend{}, DenseEmbeddingBackend{Dims: 64}} {
		idx := Build(chunks, backend, "h")
		ranked := idx.Score("shipper validation")
		require.Len(t, ranked, 3, backend.Name())

		assert.Equal(t, []string{"ga#0", "ga#1", "its#0"}, IDs(ranked), backend.Name())
		assert.InDelta(t, ranked[0].Similarity, ranked[2].Similarity, 1e-9, backend.Name())
		assert.InDelta(t, ranked[0].Score*corpus.InformalWeight, ranked[2].Score, 1e-9, backend.Name())
	}
}

func TestScore_RanksRelevantFirst(t *testing.T) {
	idx := Build([]corpus.Chunk{
		chunk("a", "A", 1, "Container closure integrity testing is expected by BLA."),
		chunk("b", "B", 1, "Potency assays should be linked to the mechanism of action."),
		chunk("c", "C", 1, "Stability studies define shelf life."),
	}, TermWeightBackend{}, "h")

	ranked := idx.Score("potency assay mechanism")
	assert.Equal(t, "b", ranked[0].Chunk.ID)
	assert.Greater(t, ranked[0].Score, 0.0)
	assert.Zero(t, ranked[2].Score)

	for _, r := range idx.Score("zebra unicorn") {
		assert.Zero(t, r.Score)
	}
}

func TestSelect_SkipsExactDuplicate(t *testing.T) {
	dup := "Shipper validation must cover worst case summer lanes."
	chunks := []corpus.Chunk{
		chunk("a", "A", 1, dup),
		chunk("a2", "A", 1, dup),
		chunk("b", "B", 1, "Temperature excursion during shipper qualification requires impact assessment."),
	}
	for _, backend := range []SimilarityBackend{TermWeightBackend{}, DenseEmbeddingBackend{Dims: 384}} {
		t.Run(backend.Name(), func(t *testing.T) {
			idx := Build(chunks, backend, "h")
			scored := idx.Score("shipper validation lanes")
			require.Equal(t, "b", scored[2].Chunk.ID, "the distinct chunk is the least relevant")
			require.Positive(t, scored[2].Score)

			for _, lambda := range []float64{0, 0.5, 0.7, 0.9, 0.99} {
				sel := Select(idx, scored, 2, lambda, 30)
				assert.Equal(t, []string{"a", "b"}, IDs(sel), "λ=%v", lambda)
			}

			sel := Select(idx, scored, 3, 0.7, 30)
			assert.Equal(t, []string{"a", "b", "a2"}, IDs(sel), "a duplicate fills a slot once nothing else is left")

			sel = Select(idx, scored, 2, 1, 30)
			assert.Equal(t, []string{"a", "a2"}, IDs(sel), "λ=1 is plain top-k")
		})
	}
}

func TestSelect_Bounds(t *testing.T) {
	idx := &Index{
		Vectors: []Vector{{Dense: []float64{1, 0}}, {Dense: []float64{0, 1}}, {Dense: []float64{1, 1}}},
	}
	cands := []ScoredChunk{
		{Index: 0, Chunk: corpus.Chunk{ID: "x"}, Score: 0.9},
		{Index: 1, Chunk: corpus.Chunk{ID: "y"}, Score: 0.4},
		{Index: 2, Chunk: corpus.Chunk{ID: "z"}, Score: 0},
	}

	assert.Nil(t, Select(idx, cands, 0, 0.7, 10))
	assert.Equal(t, []string{"x", "y"}, IDs(Select(idx, cands, 5, 0.7, 10)), "zero scores never enter the pool")
	assert.Equal(t, []string{"x"}, IDs(Select(idx, cands, 5, 0.7, 1)), "pool bounds the candidates")
	assert.Equal(t, []string{"x", "y"}, IDs(Select(idx, cands, 2, -3, 10)), "λ is clamped")
	assert.Nil(t, Select(idx, nil, 3, 0.5, 10))
}

func TestBuild_Idempotent(t *testing.T) {
	chunks := []corpus.Chunk{
		chunk("a", "A", 1, "Potency assays evolve from qualified to validated."),
		chunk("b", "B", 0.6, "Inspection themes include potency assay drift."),
	}
	for _, backend := range []SimilarityBackend{TermWeightBackend{}, DenseEmbeddingBackend{Dims: 32}} {
		first := Build(chunks, backend, "h")
		second := Build(chunks, backend, "h")
		assert.Equal(t, first.Model, second.Model)
		assert.Equal(t, first.Vectors, second.Vectors)
		assert.Equal(t, first.Chunks, second.Chunks)
		assert.NotEqual(t, first.ID, second.ID)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.json")
	idx := Build([]corpus.Chunk{
		chunk("a#0", "A", 1, "Comparability protocols support method changes."),
		chunk("b#0", "B", 0.6, "Bridging studies were missing after the change."),
	}, TermWeightBackend{}, "hash-1")

	require.NoError(t, Save(path, idx))
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp file is renamed away")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	loaded, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, idx.ID, loaded.ID)
	assert.Equal(t, "hash-1", loaded.CorpusHash)
	want, got := idx.Score("method change bridging"), loaded.Score("method change bridging")
	assert.Equal(t, IDs(want), IDs(got))
	for i := range want {
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-12)
	}
}

func TestSave_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx := Build([]corpus.Chunk{
				chunk("a#0", "A", 1, strings.Repeat("Comparability protocols support method changes. ", 50*(i+1))),
			}, TermWeightBackend{}, "hash")
			errs[i] = Save(path, idx)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	loaded, err := LoadIndex(path)
	require.NoError(t, err, "the artifact is always one writer's complete output")
	assert.Len(t, loaded.Chunks, 1)
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLoadIndex_RejectsBadShape(t *testing.T) {
	dir := t.TempDir()
	mismatch := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(mismatch, []byte(`{"backend":"termweight","chunks":[{"id":"x"}],"vectors":[]}`), 0o644))
	_, err := LoadIndex(mismatch)
	assert.Error(t, err)

	unknown := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(unknown, []byte(`{"backend":"bm25","chunks":[],"vectors":[]}`), 0o644))
	_, err = LoadIndex(unknown)
	assert.Error(t, err)
}

func TestStore_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	log := slog.New(slog.DiscardHandler)
	s := NewStore(path, TermWeightBackend{}, log)

	_, err := s.EnsureLoaded()
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.Nil(t, s.Current())

	chunks := []corpus.Chunk{chunk("a#0", "A", 1, "Hold time studies support shelf life.")}
	built, err := s.Rebuild(context.Background(), chunks, corpus.Links{"Doc": "https://example.org/doc"}, "h1")
	require.NoError(t, err)
	assert.Same(t, built, s.Current())

	fresh := NewStore(path, TermWeightBackend{}, log)
	loaded, err := fresh.EnsureLoaded()
	require.NoError(t, err)
	assert.Equal(t, built.ID, loaded.ID)
	assert.Equal(t, "https://example.org/doc", loaded.Links.URLFor("doc"))

	s.Invalidate()
	assert.Nil(t, s.Current())
	again, err := s.EnsureLoaded()
	require.NoError(t, err)
	assert.Equal(t, built.ID, again.ID)

	dense := NewStore(path, DenseEmbeddingBackend{Dims: 16}, log)
	_, err = dense.EnsureLoaded()
	assert.True(t, errors.Is(err, ErrIndexUnavailable), "backend mismatch is unavailable")
}

func TestStore_ConcurrentRebuilds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	s := NewStore(path, TermWeightBackend{}, slog.New(slog.DiscardHandler))
	chunks := []corpus.Chunk{
		chunk("a#0", "A", 1, "CCIT is expected for the final container."),
		chunk("b#0", "B", 1, "Cryo shipping needs qualification."),
	}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Rebuild(context.Background(), chunks, nil, "h")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	loaded, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, s.Current().ID, loaded.ID, "the artifact matches the last swap")
	assert.Len(t, loaded.Chunks, 2)
}

func TestStore_RebuildHonorsCancel(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.json"), TermWeightBackend{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Rebuild(ctx, nil, nil, "h")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, s.Current())
}

func TestBackendFor(t *testing.T) {
	b, err := BackendFor("termweight", 0)
	require.NoError(t, err)
	assert.Equal(t, BackendTermWeight, b.Name())

	b, err = BackendFor("dense", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultDenseDims, b.(DenseEmbeddingBackend).Dims)

	_, err = BackendFor("bm25", 0)
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	a := Vector{Sparse: map[string]float64{"x": 1}}
	b := Vector{Sparse: map[string]float64{"x": 2, "y": 0}}
	assert.InDelta(t, 1.0, Cosine(a, b), 1e-9)
	assert.Zero(t, Cosine(a, Vector{Sparse: map[string]float64{"z": 1}}))
	assert.Zero(t, Cosine(Vector{Dense: []float64{1}}, Vector{Dense: []float64{1, 0}}))
}
