package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
)

type AdminHandler struct {
	sessions SessionLifecycle
	logger   *slog.Logger
}

func NewAdminHandler(sessions SessionLifecycle, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{sessions: sessions, logger: logger}
}

func (h *AdminHandler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	views, err := h.sessions.ListActive(r.Context(), userID, "")
	if err != nil {
		writeServiceError(w, r, h.logger, "admin.sessions.list", err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"user_id": userID, "sessions": views})
}

func (h *AdminHandler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	n, err := h.sessions.RevokeAll(r.Context(), userID, domain.ReasonAdminRevoked)
	if err != nil {
		writeServiceError(w, r, h.logger, "admin.sessions.revoke", err)
		return
	}
	actor := ""
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		actor = claims.Subject
	}
	observability.Audit(r.Context(), slog.LevelInfo, "admin.sessions.revoked",
		"actor_id", actor,
		"user_id", userID,
		"revoked", n,
	)
	response.JSON(w, r, http.StatusOK, map[string]any{"user_id": userID, "revoked": n})
}
