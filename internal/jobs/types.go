package jobs

import (
	"time"

	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/document"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

// JobPayload is one TranslateTextArray request.
type JobPayload struct {
	Config         config.TranslationConfig `json:"config"`
	Units          []document.TextUnit      `json:"units"`
	SourceFilePath string                   `json:"source_file_path,omitempty"`
}

// Result is the outcome of a finished job.
type Result struct {
	TranslatedUnits []document.TranslatedUnit `json:"translated_units"`
	Success         bool                      `json:"success"`
	Message         string                    `json:"message,omitempty"`
}

type TranslationJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	Result    *Result    `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Summary drops the payload and result for listings.
func (j *TranslationJob) Summary() JobSummary {
	s := JobSummary{
		ID:             j.ID,
		Source:         j.Source,
		Status:         j.Status,
		Error:          j.Error,
		Units:          len(j.Payload.Units),
		SourceFilePath: j.Payload.SourceFilePath,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
	if j.Result != nil {
		for _, u := range j.Result.TranslatedUnits {
			if !u.Success {
				s.FailedUnits++
			}
		}
	}
	return s
}

type JobSummary struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Status         Status    `json:"status"`
	Error          string    `json:"error,omitempty"`
	Units          int       `json:"units"`
	FailedUnits    int       `json:"failed_units"`
	SourceFilePath string    `json:"source_file_path,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
