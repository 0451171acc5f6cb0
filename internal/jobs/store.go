package jobs

import "context"

// Store keeps every job state change so the queue can be rebuilt after a
// restart. Implemented by persistence.SQLiteStore.
type Store interface {
	LoadJobs(ctx context.Context) ([]*TranslationJob, error)
	UpsertJob(ctx context.Context, job *TranslationJob) error
	DeleteJob(ctx context.Context, jobID string) error
}
