package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/doc-translator/internal/apperr"
	"github.com/MimeLyc/doc-translator/internal/config"
	"github.com/MimeLyc/doc-translator/internal/document"
	"github.com/MimeLyc/doc-translator/internal/persistence"
	"github.com/MimeLyc/doc-translator/internal/service"
	"github.com/MimeLyc/doc-translator/pkg/log"
)

const maxBodyBytes = 32 << 20

type parseRequest struct {
	Content string           `json:"content"`
	Options document.Options `json:"options"`
}

type parseResponse struct {
	Units []document.TextUnit `json:"units"`
}

type applyRequest struct {
	Content         string                    `json:"content"`
	TranslatedUnits []document.TranslatedUnit `json:"translated_units"`
	Options         document.Options          `json:"options"`
}

type applyResponse struct {
	Content string `json:"content"`
}

type translateRequest struct {
	Config         config.TranslationConfig `json:"config"`
	Units          []document.TextUnit      `json:"units"`
	SourceFilePath string                   `json:"source_file_path"`
}

type deleteRequest struct {
	IDs []int64 `json:"ids"`
}

type updateTranslationRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	units, err := s.svc.Parse(req.Content, req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if units == nil {
		units = []document.TextUnit{}
	}
	writeJSON(w, http.StatusOK, parseResponse{Units: units})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := s.svc.ApplyTranslation(req.Content, req.TranslatedUnits, req.Options)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applyResponse{Content: content})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.svc.TranslateTextArray(r.Context(), req.Config, req.Units, req.SourceFilePath)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTranslations(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	page, err := s.svc.GetTranslations(r.Context(), q)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func parseQuery(r *http.Request) (persistence.Query, error) {
	values := r.URL.Query()
	q := persistence.Query{Search: values.Get("search")}

	var err error
	if q.Page, err = intParam(values.Get("page")); err != nil {
		return q, err
	}
	if q.PageSize, err = intParam(values.Get("items_per_page")); err != nil {
		return q, err
	}
	if raw := values.Get("success"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return q, apperr.New(apperr.KindValidation, "invalid success filter %q", raw)
		}
		q.Success = &v
	}
	if raw := values.Get("file_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, apperr.New(apperr.KindValidation, "invalid file_id %q", raw)
		}
		q.FileInfoID = &id
	}
	return q, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.New(apperr.KindValidation, "invalid number %q", raw)
	}
	return v, nil
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.New(apperr.KindValidation, "invalid id %q", raw)
	}
	return id, nil
}

func (s *Server) handleUpdateTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req updateTranslationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := s.svc.UpdateTranslation(r.Context(), id, req.Target)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleTranslationHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	history, err := s.svc.GetTranslationHistory(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDeleteTranslations(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.svc.DeleteTranslations(r.Context(), req.IDs)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleDeleteAllTranslations(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteAllTranslations(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	data, err := s.svc.ExportTranslations(r.Context(), format)
	if err != nil {
		writeAppError(w, err)
		return
	}
	contentType, ext := "application/json", service.FormatJSON
	if f := strings.ToLower(strings.TrimSpace(format)); f == service.FormatYAML || f == "yml" {
		contentType, ext = "application/yaml", service.FormatYAML
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="translations.`+ext+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	result, err := s.svc.ImportTranslations(r.Context(), data, r.URL.Query().Get("format"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := s.svc.DeleteFileInfo(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req config.RuntimeSettings
	if !decodeJSON(w, r, &req) {
		return
	}
	saved, err := s.svc.UpdateSettings(req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindParse, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConfig:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindProviderTransport, apperr.KindProviderRejection:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed: %v", err)
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, status, map[string]any{
			"error": appErr.Message,
			"kind":  appErr.Kind.String(),
		})
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
