// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/storefront/internal/audit"
	"github.com/tomtom215/storefront/internal/cache"
	"github.com/tomtom215/storefront/internal/export"
	"github.com/tomtom215/storefront/internal/logging"
	"github.com/tomtom215/storefront/internal/metrics"
	"github.com/tomtom215/storefront/internal/query"
	"github.com/tomtom215/storefront/internal/validation"
)

// parseLogQuery writes the 400 itself and returns false on failure.
func parseLogQuery(w http.ResponseWriter, r *http.Request) (query.LogQuery, bool) {
	q, err := query.ParseLogQuery(r.URL.Query())
	if err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			apiErr := verr.ToAPIError()
			respondErrorDetails(w, r, http.StatusBadRequest, &APIError{
				Code:    ErrCodeValidation,
				Message: apiErr.Message,
				Details: apiErr.Details,
			})
			return q, false
		}
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid query", err)
		return q, false
	}
	return q, true
}

// ListLogs handles GET /api/v1/logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q, ok := parseLogQuery(w, r)
	if !ok {
		return
	}

	page, err := h.store.Query(r.Context(), q.Filter(), q.PageRequest())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to query logs", err)
		return
	}

	respondPage(w, r, page.Records, PaginationMeta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// LogStats is the stats payload.
type LogStats struct {
	Total      int64          `json:"total"`
	ByAction   []audit.Bucket `json:"byAction"`
	ByEntity   []audit.Bucket `json:"byEntity"`
	BySeverity []audit.Bucket `json:"bySeverity"`
}

// LogStats handles GET /api/v1/logs/stats. Results are cached per filter
// for up to statsCacheTTL (10s), so new records may show up late. ClearLogs
// empties the cache.
func (h *Handler) LogStats(w http.ResponseWriter, r *http.Request) {
	q, ok := parseLogQuery(w, r)
	if !ok {
		return
	}
	filter := q.Filter()
	ctx := r.Context()

	key := cache.Key("logstats", filter)
	if cached, ok := h.stats.Get(key); ok {
		respondData(w, r, http.StatusOK, cached)
		return
	}

	var stats LogStats
	for _, d := range []struct {
		dim audit.Dimension
		out *[]audit.Bucket
	}{
		{audit.DimensionAction, &stats.ByAction},
		{audit.DimensionEntity, &stats.ByEntity},
		{audit.DimensionSeverity, &stats.BySeverity},
	} {
		buckets, err := h.store.AggregateByDimension(ctx, d.dim, filter)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to aggregate logs", err)
			return
		}
		*d.out = buckets
	}
	for _, b := range stats.ByAction {
		stats.Total += b.Count
	}

	h.stats.Add(key, stats)
	respondData(w, r, http.StatusOK, stats)
}

// GetLog handles GET /api/v1/logs/{id}.
func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, audit.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Log entry not found", nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load log entry", err)
	default:
		respondData(w, r, http.StatusOK, rec)
	}
}

// ClearLogs handles DELETE /api/v1/logs/clear?olderThan=<date>.
func (h *Handler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	cutoff, ok := query.ParseDate(r.URL.Query().Get("olderThan"), false)
	if !ok {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidDate, "olderThan must be an ISO 8601 date", nil)
		return
	}

	deleted, err := h.store.PurgeOlderThan(r.Context(), cutoff)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to clear logs", err)
		return
	}
	h.stats.Purge()

	logging.Ctx(r.Context()).Info().
		Time("cutoff", cutoff).
		Int64("deleted", deleted).
		Msg("admin logs cleared")

	respondData(w, r, http.StatusOK, map[string]interface{}{
		"deletedCount": deleted,
		"olderThan":    cutoff,
	})
}

// ExportLogs handles GET /api/v1/logs/export?format=csv|pdf|excel|json.
func (h *Handler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	q, ok := parseLogQuery(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidFormat, "format must be one of csv, pdf, excel, json", nil)
		return
	}

	limit := h.cfg.Export.RowLimit(string(format))
	rows, truncated, err := audit.ExportRows(r.Context(), h.store, q.Filter(), limit)
	if err != nil {
		metrics.RecordExport(string(format), 0, err)
		respondError(w, r, http.StatusInternalServerError, ErrCodeExportFailed, "error generating export", err)
		return
	}

	now := h.now()
	filename := fmt.Sprintf("%s-%d.%s", h.cfg.Export.FilenamePrefix, now.UnixMilli(), format.Extension())

	hdr := w.Header()
	hdr.Set("Content-Type", format.ContentType())
	hdr.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	hdr.Set("Cache-Control", "no-store")
	if truncated {
		hdr.Set("X-Export-Truncated", strconv.Itoa(limit))
	}

	sink := &exportSink{w: w}
	err = export.Write(sink, format, rows, audit.ExportColumns(), export.Options{
		Title:       h.cfg.Export.PDFTitle,
		GeneratedAt: now.UTC(),
	})
	metrics.RecordExport(string(format), len(rows), err)
	if err == nil {
		return
	}

	if !sink.written {
		for _, k := range []string{"Content-Type", "Content-Disposition", "X-Export-Truncated"} {
			hdr.Del(k)
		}
		respondError(w, r, http.StatusInternalServerError, ErrCodeExportFailed, "error generating export", err)
		return
	}
	// Headers are already out; all that is left is to stop.
	logging.Ctx(r.Context()).Warn().Err(err).Str("format", string(format)).Msg("export aborted mid-stream")
}

// exportSink remembers whether any byte reached the client.
type exportSink struct {
	w       http.ResponseWriter
	written bool
}

func (s *exportSink) Write(p []byte) (int, error) {
	if len(p) > 0 {
		s.written = true
	}
	return s.w.Write(p)
}
