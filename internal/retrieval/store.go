package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dgallion1/cmcguide/internal/corpus"
)

// ErrIndexUnavailable means no usable index has been built yet.
var ErrIndexUnavailable = errors.New("retrieval index unavailable")

// Store is the process-wide index holder. Queries read the current index
// without locking; loads and rebuilds are serialized.
type Store struct {
	path    string
	backend SimilarityBackend
	log     *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[Index]
}

func NewStore(path string, backend SimilarityBackend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{path: path, backend: backend, log: log}
}

// Backend returns the configured similarity backend.
func (s *Store) Backend() SimilarityBackend { return s.backend }

// Current returns the loaded index, or nil.
func (s *Store) Current() *Index {
	return s.current.Load()
}

// EnsureLoaded returns the current index, reading the artifact from disk on
// first use. A missing artifact, or one built with a different backend,
// yields ErrIndexUnavailable.
func (s *Store) EnsureLoaded() (*Index, error) {
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.current.Load(); idx != nil {
		return idx, nil
	}

	idx, err := LoadIndex(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: no index at %s", ErrIndexUnavailable, s.path)
	}
	if err != nil {
		s.log.Warn("index artifact unusable", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	if idx.Backend != s.backend.Name() {
		s.log.Warn("index built with another backend", "path", s.path, "index_backend", idx.Backend, "configured", s.backend.Name())
		return nil, fmt.Errorf("%w: index built with %s, configured %s", ErrIndexUnavailable, idx.Backend, s.backend.Name())
	}

	s.current.Store(idx)
	s.log.Info("index loaded", "path", s.path, "id", idx.ID, "chunks", len(idx.Chunks))
	return idx, nil
}

// Rebuild builds an index over chunks, persists it and swaps it in. links
// travels with the artifact so citations resolve without the manifest.
// Concurrent calls wait for each other.
func (s *Store) Rebuild(ctx context.Context, chunks []corpus.Chunk, links corpus.Links, corpusHash string) (*Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := Build(chunks, s.backend, corpusHash)
	idx.Links = links
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path != "" {
		if err := Save(s.path, idx); err != nil {
			return nil, err
		}
	}

	s.current.Store(idx)
	s.log.Info("index rebuilt", "id", idx.ID, "backend", idx.Backend, "chunks", len(chunks), "corpus_hash", corpusHash)
	return idx, nil
}

// Invalidate drops the in-memory index; the next EnsureLoaded rereads disk.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.current.Store(nil)
	s.mu.Unlock()
}
