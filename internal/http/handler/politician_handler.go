package handler

import (
	"net/http"

	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
)

type PoliticianHandler struct{}

func NewPoliticianHandler() *PoliticianHandler { return &PoliticianHandler{} }

func (h *PoliticianHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user_id":    claims.Subject,
		"email":      claims.Email,
		"name":       claims.Name,
		"role":       claims.Role,
		"session_id": claims.SessionID,
	})
}
