package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/doc-translator/internal/document"
)

func waitStatus(t *testing.T, q *Queue, id string, want Status) *TranslationJob {
	t.Helper()
	var got *TranslationJob
	require.Eventually(t, func() bool {
		j, ok := q.Get(id)
		got = j
		return ok && j.Status == want
	}, time.Second, 10*time.Millisecond)
	return got
}

func TestQueue_Enqueue_DedupesUnfinishedJobs(t *testing.T) {
	q := NewQueue(1, nil)

	first, created := q.Enqueue(EnqueueRequest{Source: "api", DedupeKey: "/docs/app.json|openai|gpt-4o-mini|fr"})
	require.True(t, created)
	again, created := q.Enqueue(EnqueueRequest{Source: "cli", DedupeKey: "/docs/app.json|openai|gpt-4o-mini|fr"})
	require.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "api", again.Source)

	other, created := q.Enqueue(EnqueueRequest{Source: "api", DedupeKey: "/docs/app.json|openai|gpt-4o-mini|de"})
	require.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestQueue_Enqueue_EmptyKeyNeverDedupes(t *testing.T) {
	q := NewQueue(1, nil)

	a, createdA := q.Enqueue(EnqueueRequest{Source: "api"})
	b, createdB := q.Enqueue(EnqueueRequest{Source: "api"})

	assert.True(t, createdA)
	assert.True(t, createdB)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, q.List(), 2)
}

func TestQueue_Enqueue_RetryAfterFinish(t *testing.T) {
	q := NewQueue(1, nil)

	var attempts int
	q.Start(func(_ context.Context, _ *TranslationJob) (*Result, error) {
		attempts++
		if attempts == 1 {
			return nil, assert.AnError
		}
		return &Result{Success: true}, nil
	})
	defer q.Stop()

	first, _ := q.Enqueue(EnqueueRequest{Source: "api", DedupeKey: "retry"})
	failed := waitStatus(t, q, first.ID, StatusFailed)
	assert.Equal(t, assert.AnError.Error(), failed.Error)

	second, created := q.Enqueue(EnqueueRequest{Source: "api", DedupeKey: "retry"})
	require.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
	waitStatus(t, q, second.ID, StatusSuccess)

	third, created := q.Enqueue(EnqueueRequest{Source: "api", DedupeKey: "retry"})
	require.True(t, created)
	assert.NotEqual(t, second.ID, third.ID)
}

func TestQueue_RetentionEvictsOldestFinished(t *testing.T) {
	store := newMemoryStore()
	q := NewQueue(1, store, WithRetention(2))
	q.Start(func(_ context.Context, _ *TranslationJob) (*Result, error) { return &Result{Success: true}, nil })
	defer q.Stop()

	var ids []string
	for range 3 {
		job, _ := q.Enqueue(EnqueueRequest{Source: "api"})
		waitStatus(t, q, job.ID, StatusSuccess)
		ids = append(ids, job.ID)
	}

	_, ok := q.Get(ids[0])
	assert.False(t, ok)
	assert.Len(t, q.List(), 2)
	require.Eventually(t, func() bool {
		_, ok := store.get(ids[0])
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestJob_SummaryCountsFailedUnits(t *testing.T) {
	job := &TranslationJob{
		ID:     "job-x",
		Status: StatusSuccess,
		Payload: JobPayload{
			Units:          []document.TextUnit{{Path: document.Path{"a"}}, {Path: document.Path{"b"}}},
			SourceFilePath: "/docs/app.json",
		},
		Result: &Result{TranslatedUnits: []document.TranslatedUnit{
			{Path: document.Path{"a"}, Success: true},
			{Path: document.Path{"b"}, Success: false},
		}},
	}

	s := job.Summary()
	assert.Equal(t, 2, s.Units)
	assert.Equal(t, 1, s.FailedUnits)
	assert.Equal(t, "/docs/app.json", s.SourceFilePath)
}
