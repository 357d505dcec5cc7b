package retrieval

import (
	"fmt"
	"hash/fnv"
	"maps"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Vector is a chunk or query embedding. Exactly one of Sparse and Dense is
// set, depending on the backend that produced it. Both are L2-normalized.
type Vector struct {
	Sparse map[string]float64 `json:"sparse,omitempty"`
	Dense  []float64          `json:"dense,omitempty"`
}

// Model is the fitted state a backend needs to encode queries later.
type Model struct {
	Backend string             `json:"backend"`
	IDF     map[string]float64 `json:"idf,omitempty"`
	Dims    int                `json:"dims,omitempty"`
}

// SimilarityBackend turns text into vectors whose cosine is the similarity
// used for scoring and for redundancy.
type SimilarityBackend interface {
	Name() string
	Fit(texts []string) (Model, []Vector)
	Encode(m Model, text string) Vector
}

const (
	BackendTermWeight = "termweight"
	BackendDense      = "dense"
)

// BackendFor returns the backend registered under name.
func BackendFor(name string, dims int) (SimilarityBackend, error) {
	switch strings.ToLower(name) {
	case BackendTermWeight, "tfidf", "":
		return TermWeightBackend{}, nil
	case BackendDense:
		if dims <= 0 {
			dims = DefaultDenseDims
		}
		return DenseEmbeddingBackend{Dims: dims}, nil
	default:
		return nil, fmt.Errorf("unknown similarity backend %q", name)
	}
}

// Cosine returns the cosine similarity of two vectors from the same backend.
func Cosine(a, b Vector) float64 {
	if a.Dense != nil || b.Dense != nil {
		if len(a.Dense) == 0 || len(a.Dense) != len(b.Dense) {
			return 0
		}
		na, nb := floats.Norm(a.Dense, 2), floats.Norm(b.Dense, 2)
		if na == 0 || nb == 0 {
			return 0
		}
		return floats.Dot(a.Dense, b.Dense) / (na * nb)
	}

	small, large := a.Sparse, b.Sparse
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for _, t := range slices.Sorted(maps.Keys(small)) {
		dot += small[t] * large[t]
	}
	na, nb := sparseNorm(a.Sparse), sparseNorm(b.Sparse)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// TermWeightBackend weights unigram and bigram counts by smoothed inverse
// document frequency.
type TermWeightBackend struct{}

func (TermWeightBackend) Name() string { return BackendTermWeight }

func (TermWeightBackend) Fit(texts []string) (Model, []Vector) {
	counts := make([]map[string]float64, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		tf := termCounts(text)
		counts[i] = tf
		for t := range tf {
			df[t]++
		}
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(df))
	for t, d := range df {
		idf[t] = math.Log((1+n)/(1+float64(d))) + 1
	}

	vecs := make([]Vector, len(texts))
	for i, tf := range counts {
		vecs[i] = weigh(tf, idf)
	}
	return Model{Backend: BackendTermWeight, IDF: idf}, vecs
}

// Encode ignores terms the model has never seen.
func (TermWeightBackend) Encode(m Model, text string) Vector {
	return weigh(termCounts(text), m.IDF)
}

func termCounts(text string) map[string]float64 {
	tf := make(map[string]float64)
	for _, t := range Terms(text) {
		tf[t]++
	}
	return tf
}

func weigh(tf, idf map[string]float64) Vector {
	v := make(map[string]float64, len(tf))
	for t, c := range tf {
		if w, ok := idf[t]; ok {
			v[t] = c * w
		}
	}
	if norm := sparseNorm(v); norm > 0 {
		for t := range v {
			v[t] /= norm
		}
	}
	return Vector{Sparse: v}
}

// sparseNorm sums in key order so the result does not depend on map
// iteration order.
func sparseNorm(v map[string]float64) float64 {
	var sum float64
	for _, t := range slices.Sorted(maps.Keys(v)) {
		sum += v[t] * v[t]
	}
	return math.Sqrt(sum)
}

// BackendFingerprint names a backend and the settings that change its
// vectors.
func BackendFingerprint(b SimilarityBackend) string {
	if d, ok := b.(DenseEmbeddingBackend); ok {
		return fmt.Sprintf("%s dims=%d", d.Name(), d.dims())
	}
	return b.Name()
}

// DefaultDenseDims is the embedding width when none is configured.
const DefaultDenseDims = 384

// DenseEmbeddingBackend hashes terms into a fixed-width signed vector. It
// is local and deterministic; nearby wording shares buckets, so it
// tolerates inflections a little better than exact term matching.
type DenseEmbeddingBackend struct {
	Dims int
}

func (b DenseEmbeddingBackend) Name() string { return BackendDense }

func (b DenseEmbeddingBackend) Fit(texts []string) (Model, []Vector) {
	m := Model{Backend: BackendDense, Dims: b.dims()}
	vecs := make([]Vector, len(texts))
	for i, text := range texts {
		vecs[i] = b.Encode(m, text)
	}
	return m, vecs
}

func (b DenseEmbeddingBackend) Encode(m Model, text string) Vector {
	dims := m.Dims
	if dims <= 0 {
		dims = b.dims()
	}
	vec := make([]float64, dims)
	for _, t := range Terms(text) {
		h := hashTerm(t)
		sign := 1.0
		if h>>63 == 1 {
			sign = -1
		}
		vec[int(h%uint64(dims))] += sign
	}
	if norm := floats.Norm(vec, 2); norm > 0 {
		floats.Scale(1/norm, vec)
	}
	return Vector{Dense: vec}
}

func (b DenseEmbeddingBackend) dims() int {
	if b.Dims <= 0 {
		return DefaultDenseDims
	}
	return b.Dims
}

func hashTerm(t string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(t))
	return h.Sum64()
}
