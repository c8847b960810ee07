// Storefront - Commerce and CRM Administration Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storefront

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const readinessTimeout = 3 * time.Second

// HealthLive answers 200 while the process runs.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady runs every readiness check and answers 503 if any fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := true
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			ready = false
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	data := map[string]interface{}{"ready": ready, "checks": results}
	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Success: false,
			Data:    data,
			Error:   &APIError{Code: ErrCodeUnavailable, Message: "Service is not ready"},
			Meta:    meta(r),
		})
		return
	}
	respondData(w, r, http.StatusOK, data)
}
