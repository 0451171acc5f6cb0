package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/MimeLyc/doc-translator/internal/apperr"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
	manualModel     = "manual"
	importModel     = "import"
)

const entryColumns = `id, source, target, success, model, file_info_id, created_at, last_accessed_at, updated_at`

// upsertSQL keeps a successful target, model and file unless the new attempt
// also succeeded, so a provider outage never overwrites a known-good translation.
const upsertSQL = `INSERT INTO translation (
		source, target, success, model, file_info_id, created_at, last_accessed_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source) DO UPDATE SET
		target = CASE WHEN excluded.success = 1 OR translation.success = 0 THEN excluded.target ELSE translation.target END,
		model = CASE WHEN excluded.success = 1 OR translation.success = 0 THEN excluded.model ELSE translation.model END,
		success = MAX(translation.success, excluded.success),
		file_info_id = CASE WHEN excluded.success = 1 OR translation.success = 0
			THEN COALESCE(excluded.file_info_id, translation.file_info_id)
			ELSE translation.file_info_id END,
		last_accessed_at = excluded.last_accessed_at,
		updated_at = excluded.updated_at
	RETURNING id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (CacheEntry, error) {
	var (
		e       CacheEntry
		success int
		fileID  sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Source, &e.Target, &success, &e.Model, &fileID, &e.CreatedAt, &e.LastAccessedAt, &e.UpdatedAt); err != nil {
		return CacheEntry{}, err
	}
	e.Success = success == 1
	e.FileInfoID = idPtr(fileID)
	return e, nil
}

// Lookup returns the entry for source and touches its last_accessed_at.
func (s *SQLiteStore) Lookup(ctx context.Context, source string) (*CacheEntry, bool, error) {
	var entry *CacheEntry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE translation SET last_accessed_at = ? WHERE source = ?`, time.Now().UTC(), source)
		if err != nil {
			return storageErr(err, "touch translation")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		e, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM translation WHERE source = ?`, source))
		if err != nil {
			return storageErr(err, "read translation")
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return entry, entry != nil, nil
}

// Upsert records one attempt: a single insert-or-update keyed by source plus
// an appended history row, in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, p UpsertParams) (int64, error) {
	if p.Source == "" {
		return 0, apperr.New(apperr.KindValidation, "source text is required")
	}
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = upsertTx(ctx, tx, p, time.Now().UTC())
		return err
	})
	return id, err
}

func upsertTx(ctx context.Context, tx *sql.Tx, p UpsertParams, now time.Time) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, upsertSQL,
		p.Source,
		p.Target,
		boolToInt(p.Success),
		p.Model,
		nullableID(p.FileInfoID),
		now,
		now,
		now,
	).Scan(&id); err != nil {
		return 0, storageErr(err, "upsert translation")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO translation_history (translation_id, source, target, success, error, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Source, p.Target, boolToInt(p.Success), p.Error, p.Model, now,
	); err != nil {
		return 0, storageErr(err, "append history")
	}
	return id, nil
}

func (s *SQLiteStore) GetTranslation(ctx context.Context, id int64) (*CacheEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM translation WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "translation %d not found", id)
	}
	if err != nil {
		return nil, storageErr(err, "read translation")
	}
	return &e, nil
}

// Query lists entries, most recently updated first.
func (s *SQLiteStore) Query(ctx context.Context, q Query) (Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}

	var (
		where []string
		args  []any
	)
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		where = append(where, `(source LIKE ? ESCAPE '\' OR target LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if q.Success != nil {
		where = append(where, `success = ?`)
		args = append(args, boolToInt(*q.Success))
	}
	if q.FileInfoID != nil {
		where = append(where, `file_info_id = ?`)
		args = append(args, *q.FileInfoID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := Page{Page: q.Page, PageSize: q.PageSize, Items: make([]CacheEntry, 0)}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation`+clause, args...).Scan(&page.Total); err != nil {
		return Page{}, storageErr(err, "count translations")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM translation`+clause+` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, q.PageSize, (q.Page-1)*q.PageSize)...,
	)
	if err != nil {
		return Page{}, storageErr(err, "query translations")
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return Page{}, storageErr(err, "scan translation")
		}
		page.Items = append(page.Items, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, storageErr(err, "query translations")
	}
	return page, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetHistory returns the attempt log of one entry, oldest first.
func (s *SQLiteStore) GetHistory(ctx context.Context, translationID int64) ([]HistoryRecord, error) {
	if _, err := s.GetTranslation(ctx, translationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, translation_id, source, target, success, error, model, created_at
		 FROM translation_history
		 WHERE translation_id = ?
		 ORDER BY id ASC`,
		translationID,
	)
	if err != nil {
		return nil, storageErr(err, "query history")
	}
	defer rows.Close()

	ret := make([]HistoryRecord, 0)
	for rows.Next() {
		var (
			h       HistoryRecord
			success int
		)
		if err := rows.Scan(&h.ID, &h.TranslationID, &h.Source, &h.Target, &success, &h.Error, &h.Model, &h.CreatedAt); err != nil {
			return nil, storageErr(err, "scan history")
		}
		h.Success = success == 1
		ret = append(ret, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "query history")
	}
	return ret, nil
}

// UpdateTranslation sets a manual target and records it as a successful attempt.
func (s *SQLiteStore) UpdateTranslation(ctx context.Context, id int64, target string) (*CacheEntry, error) {
	if strings.TrimSpace(target) == "" {
		return nil, apperr.New(apperr.KindValidation, "target is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var source string
		err := tx.QueryRowContext(ctx,
			`UPDATE translation SET target = ?, success = 1, model = ?, updated_at = ?, last_accessed_at = ?
			 WHERE id = ? RETURNING source`,
			target, manualModel, now, now, id,
		).Scan(&source)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "translation %d not found", id)
		}
		if err != nil {
			return storageErr(err, "update translation")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO translation_history (translation_id, source, target, success, error, model, created_at)
			 VALUES (?, ?, ?, 1, '', ?, ?)`,
			id, source, target, manualModel, now,
		); err != nil {
			return storageErr(err, "append history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTranslation(ctx, id)
}

// Delete removes entries and, by cascade, their history. File records stay.
func (s *SQLiteStore) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, storageErr(err, "delete translations")
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation`)
	if err != nil {
		return 0, storageErr(err, "delete translations")
	}
	return res.RowsAffected()
}

// EnsureFileInfo returns the id of the file record for path, creating it.
func (s *SQLiteStore) EnsureFileInfo(ctx context.Context, path string) (int64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, apperr.New(apperr.KindValidation, "file path is required")
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO file_info (file_name, file_path, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET file_name = excluded.file_name
		 RETURNING id`,
		filepath.Base(path), path, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, storageErr(err, "upsert file info")
	}
	return id, nil
}

func (s *SQLiteStore) GetFileInfo(ctx context.Context, id int64) (*FileInfo, error) {
	var f FileInfo
	err := s.db.QueryRowContext(ctx, `SELECT id, file_name, file_path, created_at FROM file_info WHERE id = ?`, id).
		Scan(&f.ID, &f.FileName, &f.FilePath, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "file %d not found", id)
	}
	if err != nil {
		return nil, storageErr(err, "read file info")
	}
	return &f, nil
}

// DeleteFileInfo removes a file record; dependent entries keep their
// translation with a null file reference.
func (s *SQLiteStore) DeleteFileInfo(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM file_info WHERE id = ?`, id)
	if err != nil {
		return storageErr(err, "delete file info")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.KindNotFound, "file %d not found", id)
	}
	return nil
}

// Export returns every successful entry in insertion order.
func (s *SQLiteStore) Export(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, target, model FROM translation WHERE success = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, storageErr(err, "export translations")
	}
	defer rows.Close()

	ret := make([]ExportEntry, 0)
	for rows.Next() {
		var e ExportEntry
		if err := rows.Scan(&e.Source, &e.Target, &e.Model); err != nil {
			return nil, storageErr(err, "scan translation")
		}
		ret = append(ret, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "export translations")
	}
	return ret, nil
}

// Import upserts entries as successful attempts in one transaction. Entries
// with an empty source or target are skipped.
func (s *SQLiteStore) Import(ctx context.Context, entries []ExportEntry) (ImportResult, error) {
	var result ImportResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, e := range entries {
			if e.Source == "" || strings.TrimSpace(e.Target) == "" {
				result.Skipped++
				continue
			}
			model := e.Model
			if model == "" {
				model = importModel
			}
			if _, err := upsertTx(ctx, tx, UpsertParams{Source: e.Source, Target: e.Target, Success: true, Model: model}, now); err != nil {
				return err
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM translation),
		(SELECT COUNT(*) FROM translation WHERE success = 1),
		(SELECT COUNT(*) FROM translation_history),
		(SELECT COUNT(*) FROM file_info)`,
	).Scan(&st.Entries, &st.Successful, &st.History, &st.Files)
	if err != nil {
		return Stats{}, storageErr(err, "read stats")
	}
	return st, nil
}
