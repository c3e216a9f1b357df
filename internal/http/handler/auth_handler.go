package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
	"github.com/KabriAcid/ScrynCard-sub001/internal/security"
	"github.com/KabriAcid/ScrynCard-sub001/internal/service"
)

const maxBodyBytes = 1 << 16

type Authenticator interface {
	Login(ctx context.Context, email, password string, meta domain.Metadata) (*service.Issued, error)
}

type SessionLifecycle interface {
	Rotate(ctx context.Context, refreshToken string, meta domain.Metadata) (*service.Issued, error)
	Revoke(ctx context.Context, sessionID, reason string) error
	RevokeForUser(ctx context.Context, userID, sessionID, reason string) (bool, error)
	RevokeAll(ctx context.Context, userID, reason string) (int64, error)
	ListActive(ctx context.Context, userID, currentSessionID string) ([]service.SessionView, error)
}

type AuthHandler struct {
	auth     Authenticator
	sessions SessionLifecycle
	cookies  security.CookieOptions
	logger   *slog.Logger
}

func NewAuthHandler(auth Authenticator, sessions SessionLifecycle, cookies security.CookieOptions, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{auth: auth, sessions: sessions, cookies: cookies, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	SessionID        string      `json:"session_id"`
	UserID           string      `json:"user_id"`
	Role             domain.Role `json:"role"`
	TokenType        string      `json:"token_type"`
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	SessionExpiresAt time.Time   `json:"session_expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, response.CodeBadRequest, "email and password are required", nil)
		return
	}
	issued, err := h.auth.Login(r.Context(), req.Email, req.Password, MetadataFromRequest(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusUnauthorized, response.CodeInvalidCredentials, "invalid email or password", nil)
		case errors.Is(err, service.ErrStoreUnavailable):
			h.logger.ErrorContext(r.Context(), "auth.login.store_unavailable", "error", err)
			response.Error(w, r, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "please try again", nil)
		default:
			h.logger.ErrorContext(r.Context(), "auth.login.failed", "error", err)
			response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "login failed", nil)
		}
		return
	}
	h.writeIssued(w, r, http.StatusOK, issued)
}

// Refresh rotates the caller's refresh token. Every rejection looks the same
// to the client; the reason is only logged.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := security.GetCookie(r, security.RefreshCookieName)
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		response.Error(w, r, http.StatusUnauthorized, response.CodeSessionInvalid, "please sign in again", nil)
		return
	}
	issued, err := h.sessions.Rotate(r.Context(), token, MetadataFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			h.logger.ErrorContext(r.Context(), "auth.refresh.store_unavailable", "error", err)
			response.Error(w, r, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "please try again", nil)
			return
		}
		h.logger.WarnContext(r.Context(), "auth.refresh.rejected", "code", service.CodeOf(err))
		security.ClearTokenCookies(w, h.cookies)
		response.Error(w, r, http.StatusUnauthorized, response.CodeSessionInvalid, "please sign in again", nil)
		return
	}
	h.writeIssued(w, r, http.StatusOK, issued)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
		return
	}
	err := h.sessions.Revoke(r.Context(), claims.SessionID, domain.ReasonUserLogout)
	if err != nil && !errors.Is(err, service.ErrInvalidSession) {
		writeServiceError(w, r, h.logger, "auth.logout", err)
		return
	}
	security.ClearTokenCookies(w, h.cookies)
	response.JSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "authentication required", nil)
		return
	}
	n, err := h.sessions.RevokeAll(r.Context(), claims.Subject, domain.ReasonUserLogoutAll)
	if err != nil {
		writeServiceError(w, r, h.logger, "auth.logout_all", err)
		return
	}
	security.ClearTokenCookies(w, h.cookies)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": n})
}

func (h *AuthHandler) writeIssued(w http.ResponseWriter, r *http.Request, status int, issued *service.Issued) {
	now := time.Now()
	security.SetTokenCookies(w, h.cookies,
		issued.AccessToken, issued.AccessExpiresAt.Sub(now),
		issued.RefreshToken, issued.SessionExpiresAt.Sub(now),
	)
	response.JSON(w, r, status, tokenResponse{
		SessionID:        issued.SessionID,
		UserID:           issued.UserID,
		Role:             issued.Role,
		TokenType:        "Bearer",
		AccessToken:      issued.AccessToken,
		RefreshToken:     issued.RefreshToken,
		AccessExpiresAt:  issued.AccessExpiresAt,
		SessionExpiresAt: issued.SessionExpiresAt,
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, event string, err error) {
	switch {
	case errors.Is(err, service.ErrStoreUnavailable):
		logger.ErrorContext(r.Context(), event+".store_unavailable", "error", err)
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeServiceUnavailable, "please try again", nil)
	case errors.Is(err, service.ErrInvalidSession):
		response.Error(w, r, http.StatusNotFound, response.CodeNotFound, "session not found", nil)
	default:
		logger.ErrorContext(r.Context(), event+".failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, response.CodeInternal, "request failed", nil)
	}
}

// MetadataFromRequest captures display metadata for a session. The remote
// address is expected to be resolved by the RealIP middleware already.
func MetadataFromRequest(r *http.Request) domain.Metadata {
	var meta domain.Metadata
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip != "" {
		meta.IP = &ip
	}
	if ua := r.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}
	if device := strings.TrimSpace(r.Header.Get("X-Device-Name")); device != "" {
		meta.Device = &device
	}
	return meta
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
