package persistence

import (
	"context"
	"encoding/json"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/jobs"
)

func (s *SQLiteStore) LoadJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source, dedupe_key, payload_json, result_json, status, error, created_at, updated_at
		 FROM jobs
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, storageErr(err, "load jobs")
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		var (
			item        jobs.TranslationJob
			status      string
			payloadJSON string
			resultJSON  string
		)
		if err := rows.Scan(
			&item.ID,
			&item.Source,
			&item.DedupeKey,
			&payloadJSON,
			&resultJSON,
			&status,
			&item.Error,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, storageErr(err, "scan job")
		}
		if err := json.Unmarshal([]byte(payloadJSON), &item.Payload); err != nil {
			return nil, apperr.Wrap(err, apperr.KindStorage, "decode payload of job %s", item.ID)
		}
		if resultJSON != "" {
			var result jobs.Result
			if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
				return nil, apperr.Wrap(err, apperr.KindStorage, "decode result of job %s", item.ID)
			}
			item.Result = &result
		}
		item.Status = jobs.Status(status)
		ret = append(ret, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "load jobs")
	}
	return ret, nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return storageErr(err, "delete job")
	}
	return nil
}

// UpsertJob persists the job. The API key is never written; a restored job
// falls back to the configured key.
func (s *SQLiteStore) UpsertJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return apperr.New(apperr.KindValidation, "job is nil")
	}
	payload := job.Payload
	payload.Config.APIKey = ""
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "encode payload of job %s", job.ID)
	}
	resultJSON := ""
	if job.Result != nil {
		b, err := json.Marshal(job.Result)
		if err != nil {
			return apperr.Wrap(err, apperr.KindStorage, "encode result of job %s", job.ID)
		}
		resultJSON = string(b)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
			id, source, dedupe_key, payload_json, result_json, status, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source=excluded.source,
			dedupe_key=excluded.dedupe_key,
			payload_json=excluded.payload_json,
			result_json=excluded.result_json,
			status=excluded.status,
			error=excluded.error,
			updated_at=excluded.updated_at`,
		job.ID,
		job.Source,
		job.DedupeKey,
		string(payloadJSON),
		resultJSON,
		string(job.Status),
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return storageErr(err, "upsert job")
	}
	return nil
}
