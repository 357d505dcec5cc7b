package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/cmcguide/internal/chunker"
	"github.com/dgallion1/cmcguide/internal/corpus"
	"github.com/dgallion1/cmcguide/internal/retrieval"
)

// Indexer is the index holder a rebuild swaps into. *retrieval.Store
// satisfies it.
type Indexer interface {
	Backend() retrieval.SimilarityBackend
	EnsureLoaded() (*retrieval.Index, error)
	Rebuild(ctx context.Context, chunks []corpus.Chunk, links corpus.Links, corpusHash string) (*retrieval.Index, error)
}

// Worker runs one rebuild job at a time.
type Worker struct {
	corpusPath string
	loadOpts   corpus.LoadOptions
	chunkCfg   chunker.Config
	index      Indexer
	onRebuilt  func(*retrieval.Index)
	log        *slog.Logger
}

func NewWorker(corpusPath string, loadOpts corpus.LoadOptions, chunkCfg chunker.Config, index Indexer, onRebuilt func(*retrieval.Index), log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if loadOpts.Log == nil {
		loadOpts.Log = log
	}
	return &Worker{
		corpusPath: corpusPath,
		loadOpts:   loadOpts,
		chunkCfg:   chunkCfg,
		index:      index,
		onRebuilt:  onRebuilt,
		log:        log,
	}
}

// Process loads the corpus, skips the rebuild when the live index already
// covers the same corpus built with the same chunk and backend settings, and
// otherwise chunks, indexes and swaps.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "force", job.Force)

	// Phase 1: Load
	job.SetStatus(StatusLoading, "loading corpus")
	records, links, err := corpus.Load(ctx, w.corpusPath, w.loadOpts)
	if err != nil {
		log.Error("corpus load failed", "path", w.corpusPath, "error", err)
		job.AddError(fmt.Sprintf("load: %s", err))
		job.SetStatus(StatusFailed, "loading")
		return
	}
	job.SetDocuments(len(records))
	hash := corpus.Hash(records, w.chunkCfg.Fingerprint(), retrieval.BackendFingerprint(w.index.Backend()))

	if !job.Force {
		if cur, err := w.index.EnsureLoaded(); err == nil && cur.CorpusHash == hash {
			log.Info("corpus unchanged, keeping index", "index_id", cur.ID, "corpus_hash", hash)
			job.SetChunks(len(cur.Chunks))
			job.SetResult(hash, cur.ID)
			job.SetStatus(StatusUnchanged, "unchanged")
			return
		}
	}

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := corpus.Build(records, w.chunkCfg)
	job.SetChunks(len(chunks))
	log.Info("chunked corpus", "documents", len(records), "chunks", len(chunks))
	if len(chunks) == 0 {
		log.Warn("corpus produced no chunks, building an empty index")
	}

	// Phase 3: Index
	job.SetStatus(StatusIndexing, "indexing")
	idx, err := w.index.Rebuild(ctx, chunks, links, hash)
	if err != nil {
		log.Error("index rebuild failed", "error", err)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}
	job.SetResult(hash, idx.ID)
	if w.onRebuilt != nil {
		w.onRebuilt(idx)
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("rebuild complete", "index_id", idx.ID, "chunks", len(chunks))
}
