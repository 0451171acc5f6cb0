package persistence

import (
	"time"
)

// FileInfo is a source document a cache entry was first seen in.
type FileInfo struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
}

// CacheEntry is the canonical translation of one distinct source text.
// FileInfoID is nil once the file record has been deleted.
type CacheEntry struct {
	ID             int64     `json:"id"`
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	Success        bool      `json:"success"`
	Model          string    `json:"model"`
	FileInfoID     *int64    `json:"file_info_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HistoryRecord is one immutable translation attempt.
type HistoryRecord struct {
	ID            int64     `json:"id"`
	TranslationID int64     `json:"translation_id"`
	Source        string    `json:"source"`
	Target        string    `json:"target"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Model         string    `json:"model"`
	CreatedAt     time.Time `json:"created_at"`
}

// UpsertParams describes one translation attempt.
type UpsertParams struct {
	Source     string
	Target     string
	Success    bool
	Model      string
	Error      string
	FileInfoID *int64
}

// Query filters and paginates cache entries.
type Query struct {
	Page       int
	PageSize   int
	Search     string // substring of source or target
	Success    *bool
	FileInfoID *int64
}

// Page is one page of cache entries.
type Page struct {
	Items    []CacheEntry `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

// ExportEntry is the portable form of a successful cache entry.
type ExportEntry struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Model  string `json:"model,omitempty" yaml:"model,omitempty"`
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

type Stats struct {
	Entries    int `json:"entries"`
	Successful int `json:"successful"`
	History    int `json:"history"`
	Files      int `json:"files"`
}
