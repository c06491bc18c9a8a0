package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mediaCompressor/api/dto"
	"mediaCompressor/api/middleware"
)

func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimPrefix(r.URL.Path, "/api/status/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, dto.ErrJobNotFound) {
			h.handleError(w, "Job not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get job status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}
