package handler

import (
	"log/slog"
	"net/http"
	"time"

	"storefront/internal/model"
)

type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
}

// handleGetSession reports the live auth state.
// GET /session
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{Authenticated: h.session.IsAuthenticated(r.Context())}
	if resp.Authenticated {
		if u, ok := h.session.User(); ok {
			resp.User = &u
		}
		if exp := h.session.ExpiresAt(); !exp.IsZero() {
			resp.ExpiresAt = &exp
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// handleLogin signs in and replays the guest basket before responding.
// POST /session/login
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var creds model.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.accounts.Login(ctx, creds)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if res.Sync != nil {
		h.logger.InfoContext(ctx, "login synced",
			slog.Int("succeeded", len(res.Sync.Succeeded)),
			slog.Int("failed", len(res.Sync.Failed)),
		)
	}
	h.writeJSON(w, http.StatusOK, res)
}

// POST /session/register
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decodeJSON(w, r, &reg); err != nil {
		h.writeError(w, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), reg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

// handleLogout ends the session; the guest basket shows again.
// POST /session/logout
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.accounts.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
