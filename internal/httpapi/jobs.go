package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/doc-translator/internal/jobs"
)

type enqueueJobRequest struct {
	Source string `json:"source"`
	translateRequest
}

type enqueueJobResponse struct {
	Created bool            `json:"created"`
	Job     jobs.JobSummary `json:"job"`
}

// jobDetailResponse never carries the request config, which may hold an API key.
type jobDetailResponse struct {
	Job    jobs.JobSummary `json:"job"`
	Result *jobs.Result    `json:"result,omitempty"`
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.Summaries())
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	job, created, err := s.svc.EnqueueTranslation(s.queue, req.Source, jobs.JobPayload{
		Config:         req.Config,
		Units:          req.Units,
		SourceFilePath: req.SourceFilePath,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, enqueueJobResponse{
		Created: created,
		Job:     job.Summary(),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, jobDetailResponse{
		Job:    job.Summary(),
		Result: job.Result,
	})
}
