package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/cmcguide/internal/chunker"
	"github.com/dgallion1/cmcguide/internal/config"
	"github.com/dgallion1/cmcguide/internal/corpus"
	"github.com/dgallion1/cmcguide/internal/parser"
	"github.com/dgallion1/cmcguide/internal/retrieval"
)

var (
	ErrQueueFull = errors.New("rebuild queue is full")
	ErrStopped   = errors.New("rebuild pipeline stopped")
)

// Orchestrator queues rebuild jobs for a single worker, so rebuilds never
// overlap.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	worker *Worker
	log    *slog.Logger

	cleanupEvery time.Duration

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOrchestrator creates the pipeline. onRebuilt runs after every
// successful swap; callers use it to drop cached answers.
func NewOrchestrator(cfg config.Config, index Indexer, onRebuilt func(*retrieval.Index), log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	w := NewWorker(
		cfg.CorpusPath,
		corpus.LoadOptions{
			Parser:      parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
			Concurrency: cfg.MaxParseConcurrency,
			Log:         log,
		},
		chunker.Config{
			MaxChars: cfg.ChunkMaxChars,
			Splitter: chunker.SplitterFor(cfg.SentenceSplitter),
		},
		index, onRebuilt, log,
	)
	queueSize := cfg.MaxQueueSize
	if queueSize <= 0 {
		queueSize = 8
	}
	return &Orchestrator{
		jobs:         NewJobStore(cfg.JobTTL),
		queue:        make(chan *Job, queueSize),
		worker:       w,
		log:          log,
		cleanupEvery: 5 * time.Minute,
	}
}

// Start launches the worker and the job store cleanup loop.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case job, ok := <-o.queue:
				if !ok {
					return
				}
				o.worker.Process(workerCtx, job)
			}
		}
	}()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(o.cleanupEvery)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop cancels the running job and waits for the goroutines to exit. Jobs
// still queued are marked failed.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
	for job := range o.queue {
		job.SetStatus(StatusFailed, "shutdown")
	}
}

// Submit queues a rebuild. force rebuilds even when the corpus is unchanged.
func (o *Orchestrator) Submit(force bool) (*Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return nil, ErrStopped
	}

	job := NewJob(force)
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		o.log.Info("rebuild queued", "job_id", job.ID, "force", force, "depth", len(o.queue))
		return job, nil
	default:
		job.AddError("queue full")
		job.SetStatus(StatusFailed, "queue_full")
		return job, fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

// Run processes a rebuild on the calling goroutine, bypassing the queue.
func (o *Orchestrator) Run(ctx context.Context, force bool) *Job {
	job := NewJob(force)
	o.jobs.Put(job)
	o.worker.Process(ctx, job)
	return job
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
