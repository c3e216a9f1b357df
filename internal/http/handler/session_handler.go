package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
)

type SessionHandler struct {
	sessions SessionLifecycle
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionLifecycle, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
		return
	}
	views, err := h.sessions.ListActive(r.Context(), claims.Subject, claims.SessionID)
	if err != nil {
		writeServiceError(w, r, h.logger, "sessions.list", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

// Revoke ends one of the caller's own sessions. Sessions owned by someone
// else are reported as not found.
func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
		return
	}
	sessionID := chi.URLParam(r, "id")
	changed, err := h.sessions.RevokeForUser(r.Context(), claims.Subject, sessionID, domain.ReasonUserLogout)
	if err != nil {
		writeServiceError(w, r, h.logger, "sessions.revoke", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"session_id": sessionID, "revoked": changed})
}
