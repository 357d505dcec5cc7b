// Package retrieval scores corpus chunks against a query, re-ranks them for
// diversity, and keeps the built index on disk and in memory.
package retrieval

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/cmcguide/internal/corpus"
)

// Index is an immutable vector index over corpus chunks.
type Index struct {
	ID         string         `json:"id"`
	Backend    string         `json:"backend"`
	CorpusHash string         `json:"corpus_hash"`
	BuiltAt    time.Time      `json:"built_at"`
	Model      Model          `json:"model"`
	Chunks     []corpus.Chunk `json:"chunks"`
	Vectors    []Vector       `json:"vectors"`
	Links      corpus.Links   `json:"links,omitempty"`

	backend SimilarityBackend
}

// ScoredChunk is one chunk's result for a query. Score is Similarity times
// the chunk's provenance weight.
type ScoredChunk struct {
	Index      int          `json:"index"`
	Chunk      corpus.Chunk `json:"chunk"`
	Similarity float64      `json:"similarity"`
	Score      float64      `json:"score"`
}

// Info summarizes an index for status endpoints.
type Info struct {
	ID         string    `json:"id"`
	Backend    string    `json:"backend"`
	CorpusHash string    `json:"corpus_hash"`
	Chunks     int       `json:"chunks"`
	Sources    int       `json:"sources"`
	BuiltAt    time.Time `json:"built_at"`
}

// Build fits the backend over the chunks. The same chunks and backend always
// produce the same model and vectors.
func Build(chunks []corpus.Chunk, backend SimilarityBackend, corpusHash string) *Index {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	model, vecs := backend.Fit(texts)

	return &Index{
		ID:         uuid.New().String(),
		Backend:    backend.Name(),
		CorpusHash: corpusHash,
		BuiltAt:    time.Now().UTC(),
		Model:      model,
		Chunks:     append([]corpus.Chunk(nil), chunks...),
		Vectors:    vecs,
		backend:    backend,
	}
}

// Score ranks every chunk by similarity times weight, highest first. Equal
// scores keep chunk order.
func (idx *Index) Score(query string) []ScoredChunk {
	if idx == nil || len(idx.Chunks) == 0 {
		return nil
	}
	q := idx.backend.Encode(idx.Model, query)

	out := make([]ScoredChunk, len(idx.Chunks))
	for i, c := range idx.Chunks {
		sim := Cosine(q, idx.Vectors[i])
		out[i] = ScoredChunk{Index: i, Chunk: c, Similarity: sim, Score: sim * c.Weight}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// Retrieve scores the query and re-ranks the top of the list for diversity.
func (idx *Index) Retrieve(query string, k int, lambda float64, pool int) []ScoredChunk {
	return Select(idx, idx.Score(query), k, lambda, pool)
}

// Info returns the index summary.
func (idx *Index) Info() Info {
	sources := make(map[string]struct{})
	for _, c := range idx.Chunks {
		sources[c.SourceID] = struct{}{}
	}
	return Info{
		ID:         idx.ID,
		Backend:    idx.Backend,
		CorpusHash: idx.CorpusHash,
		Chunks:     len(idx.Chunks),
		Sources:    len(sources),
		BuiltAt:    idx.BuiltAt,
	}
}
