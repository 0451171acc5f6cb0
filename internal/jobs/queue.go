package jobs

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/doc-translator/pkg/log"
)

const defaultRetention = 1000

// Executor runs one job. A returned error marks the job failed; a result
// with per-unit failures still counts as a finished job.
type Executor func(ctx context.Context, job *TranslationJob) (*Result, error)

// Queue runs translation jobs on a fixed number of workers. Every state
// change is written through to the Store, so pending work survives a restart.
type Queue struct {
	workers   int
	retention int
	store     Store

	mu      sync.RWMutex
	jobs    map[string]*TranslationJob
	dedupe  map[string]string // dedupe key -> id of the unfinished job
	started bool

	pending chan string
	ctx     context.Context
	cancel  context.CancelFunc
	stop    sync.Once
	wg      sync.WaitGroup
}

type QueueOption func(*Queue)

// WithRetention caps how many jobs are kept. Oldest finished jobs go first.
func WithRetention(n int) QueueOption {
	return func(q *Queue) {
		q.retention = n
	}
}

// NewQueue creates a queue and loads the jobs left in store. Jobs that were
// running when the process stopped are pending again.
func NewQueue(workers int, store Store, opts ...QueueOption) *Queue {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		workers:   workers,
		retention: defaultRetention,
		store:     store,
		jobs:      make(map[string]*TranslationJob),
		dedupe:    make(map[string]string),
		pending:   make(chan string, 1024),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.restore()
	return q
}

// Enqueue adds a job. While an unfinished job with the same non-empty
// dedupe key exists, that job is returned instead and created is false.
func (q *Queue) Enqueue(req EnqueueRequest) (job *TranslationJob, created bool) {
	q.mu.Lock()
	if id, ok := q.dedupe[req.DedupeKey]; ok && req.DedupeKey != "" {
		if existing, ok := q.jobs[id]; ok {
			snapshot := cloneJob(existing)
			q.mu.Unlock()
			return snapshot, false
		}
		delete(q.dedupe, req.DedupeKey)
	}

	now := time.Now()
	j := &TranslationJob{
		ID:        "job-" + uuid.NewString(),
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   req.Payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.jobs[j.ID] = j
	if j.DedupeKey != "" {
		q.dedupe[j.DedupeKey] = j.ID
	}
	started := q.started
	snapshot := cloneJob(j)
	q.mu.Unlock()

	q.save(snapshot)
	if started {
		q.schedule(j.ID)
	}
	return snapshot, true
}

func (q *Queue) Get(id string) (*TranslationJob, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// List returns copies of all jobs, oldest first.
func (q *Queue) List() []*TranslationJob {
	q.mu.RLock()
	ret := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		ret = append(ret, cloneJob(job))
	}
	q.mu.RUnlock()

	slices.SortFunc(ret, func(a, b *TranslationJob) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ret
}

// Summaries lists jobs without payloads or results.
func (q *Queue) Summaries() []JobSummary {
	jobs := q.List()
	ret := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		ret = append(ret, job.Summary())
	}
	return ret
}

// Start launches the workers and schedules every pending job. Calling it
// twice is a no-op.
func (q *Queue) Start(exec Executor) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	var pending []*TranslationJob
	for _, job := range q.jobs {
		if job.Status == StatusPending {
			pending = append(pending, job)
		}
	}
	slices.SortFunc(pending, func(a, b *TranslationJob) int { return a.CreatedAt.Compare(b.CreatedAt) })
	q.mu.Unlock()

	for _, job := range pending {
		q.schedule(job.ID)
	}
	for range q.workers {
		q.wg.Add(1)
		go q.work(exec)
	}
}

// Stop cancels running jobs and waits for the workers to exit. Cancelled
// jobs stay pending.
func (q *Queue) Stop() {
	q.stop.Do(func() {
		q.cancel()
		q.wg.Wait()
	})
}

func (q *Queue) work(exec Executor) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.pending:
			q.process(exec, id)
		}
	}
}

func (q *Queue) process(exec Executor, id string) {
	job, ok := q.transition(id, func(j *TranslationJob) bool {
		if j.Status != StatusPending {
			return false
		}
		j.Status = StatusRunning
		return true
	})
	if !ok {
		return
	}

	result, err := q.execute(exec, job)
	switch {
	case err != nil && q.ctx.Err() != nil:
		q.transition(id, func(j *TranslationJob) bool {
			j.Status = StatusPending
			return true
		})
	case err != nil:
		q.finish(id, func(j *TranslationJob) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
	default:
		q.finish(id, func(j *TranslationJob) {
			j.Status = StatusSuccess
			j.Error = ""
			j.Result = result
		})
	}
}

func (q *Queue) execute(exec Executor, job *TranslationJob) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return exec(q.ctx, job)
}

func (q *Queue) schedule(id string) {
	select {
	case q.pending <- id:
	default:
		go func() {
			select {
			case q.pending <- id:
			case <-q.ctx.Done():
			}
		}()
	}
}

// transition applies fn to the job under the lock and persists the result
// when fn reports a change.
func (q *Queue) transition(id string, fn func(*TranslationJob) bool) (*TranslationJob, bool) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || !fn(job) {
		q.mu.Unlock()
		return nil, false
	}
	job.UpdatedAt = time.Now()
	snapshot := cloneJob(job)
	q.mu.Unlock()

	q.save(snapshot)
	return snapshot, true
}

// finish moves a job to a terminal state, frees its dedupe key and trims
// old finished jobs.
func (q *Queue) finish(id string, fn func(*TranslationJob)) {
	var evicted []string
	q.transition(id, func(j *TranslationJob) bool {
		fn(j)
		j.UpdatedAt = time.Now()
		q.releaseKey(j)
		evicted = q.evictLocked()
		return true
	})
	for _, id := range evicted {
		if q.store == nil {
			break
		}
		if err := q.store.DeleteJob(context.Background(), id); err != nil {
			log.Error("Failed to delete evicted job %s: %v", id, err)
		}
	}
}

func (q *Queue) releaseKey(job *TranslationJob) {
	if job.DedupeKey == "" {
		return
	}
	if id, ok := q.dedupe[job.DedupeKey]; ok && id == job.ID {
		delete(q.dedupe, job.DedupeKey)
	}
}

// evictLocked drops the oldest finished jobs beyond the retention limit.
func (q *Queue) evictLocked() []string {
	excess := len(q.jobs) - q.retention
	if q.retention <= 0 || excess <= 0 {
		return nil
	}

	finished := make([]*TranslationJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status == StatusSuccess || job.Status == StatusFailed {
			finished = append(finished, job)
		}
	}
	slices.SortFunc(finished, func(a, b *TranslationJob) int { return a.UpdatedAt.Compare(b.UpdatedAt) })

	evicted := make([]string, 0, min(excess, len(finished)))
	for _, job := range finished[:min(excess, len(finished))] {
		q.releaseKey(job)
		delete(q.jobs, job.ID)
		evicted = append(evicted, job.ID)
	}
	return evicted
}

func (q *Queue) restore() {
	if q.store == nil {
		return
	}
	loaded, err := q.store.LoadJobs(context.Background())
	if err != nil {
		log.Error("Failed to load jobs from store: %v", err)
		return
	}

	var requeued []*TranslationJob
	q.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		job := cloneJob(raw)
		if job.Status == StatusRunning {
			job.Status = StatusPending
			job.UpdatedAt = time.Now()
			requeued = append(requeued, cloneJob(job))
		}
		q.jobs[job.ID] = job
		if job.Status == StatusPending && job.DedupeKey != "" {
			q.dedupe[job.DedupeKey] = job.ID
		}
	}
	q.mu.Unlock()

	for _, job := range requeued {
		q.save(job)
	}
	if len(loaded) > 0 {
		log.Info("Restored %d jobs (%d interrupted)", len(loaded), len(requeued))
	}
}

func (q *Queue) save(job *TranslationJob) {
	if q.store == nil {
		return
	}
	if err := q.store.UpsertJob(context.Background(), job); err != nil {
		log.Error("Failed to persist job %s: %v", job.ID, err)
	}
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
