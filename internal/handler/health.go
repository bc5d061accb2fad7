package handler

import (
	"net/http"
)

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
