package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/davharte/docbridge/internal/store"
)

// ServiceConfig bounds the async driver.
type ServiceConfig struct {
	Workers      int
	MaxQueueSize int
	JobTTL       time.Duration
	Snapshot     Snapshot // routing defaults captured per job at submit time
}

// Service runs the asynchronous ingestion driver: a bounded queue of jobs
// drained by a fixed worker pool, each job processed by the orchestrator and
// persisted to the store.
type Service struct {
	orch  *Orchestrator
	db    *store.Store
	jobs  *JobStore
	queue chan *Job
	cfg   ServiceConfig
	log   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(orch *Orchestrator, db *store.Store, cfg ServiceConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	return &Service{
		orch:  orch,
		db:    db,
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		cfg:   cfg,
		log:   log,
	}
}

// Orchestrator exposes the underlying router for synchronous callers.
func (s *Service) Orchestrator() *Orchestrator { return s.orch }

// Store exposes the persistence layer for read handlers.
func (s *Service) Store() *store.Store { return s.db }

// DefaultSnapshot returns a copy of the service's routing defaults.
func (s *Service) DefaultSnapshot() Snapshot { return s.cfg.Snapshot }

// Start launches worker goroutines and the job store janitor.
func (s *Service) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for range s.cfg.Workers {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-s.queue:
					if !ok {
						return
					}
					s.run(workerCtx, job)
				}
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				s.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the worker pool.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	close(s.queue)
	s.wg.Wait()
}

// Submit queues a new job for processing.
func (s *Service) Submit(job *Job) error {
	s.jobs.Put(job)
	select {
	case s.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", s.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (s *Service) GetJob(id string) *Job {
	return s.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (s *Service) QueueDepth() int {
	return len(s.queue)
}

// run processes one job end to end. Every status transition is visible to
// the status endpoint while the job is in flight.
func (s *Service) run(ctx context.Context, job *Job) {
	job.SetStatus(StatusParsing, "parsing")

	data, options := job.FileData()
	req := Request{
		Filename:      job.Filename,
		Data:          data,
		Options:       options,
		CorrelationID: job.CorrelationID,
	}

	snap := s.cfg.Snapshot
	if chain, ok := ChainFor(job.Filename); ok {
		snap.Backends = chain
	}

	res, err := s.orch.Process(ctx, req, snap)
	if err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "processing")
		s.log.Error("ingestion failed", "job_id", job.ID, "err", err)
		return
	}
	job.SetOutcome(res.Parser, res.Strategy, len(res.Chunks))
	for _, w := range res.Warnings {
		job.AddError(w)
	}

	job.SetStatus(StatusStoring, "storing")
	rec := store.DocumentRecord{
		ID:            job.DocID,
		Name:          job.Filename,
		Parser:        res.Parser,
		CorrelationID: res.CorrelationID,
		Content:       res.Doc.Content(),
	}
	if err := s.db.SaveDocument(ctx, rec, res.Chunks); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "storing")
		s.log.Error("persist failed", "job_id", job.ID, "doc_id", job.DocID, "err", err)
		return
	}
	job.SetChunksStored(len(res.Chunks))

	// Release the raw bytes; the job record may outlive them by hours.
	job.SetFileData(nil, nil)

	if res.Sanitized {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	s.log.Info("ingestion finished",
		"job_id", job.ID,
		"doc_id", job.DocID,
		"status", job.Snapshot().Status,
		"chunks", len(res.Chunks))
}
