package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
	"github.com/KabriAcid/ScrynCard-sub001/internal/security"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type TokenCodec interface {
	IssueAccess(subject, sessionID string, role domain.Role, email, name string) (string, error)
	IssueRefresh(subject, sessionID string) (token string, jti string, err error)
	VerifyRefresh(raw string) (*security.RefreshClaims, error)
	AccessTTL() time.Duration
}

type Policy struct {
	SessionCeiling     time.Duration
	TombstoneRetention time.Duration
	StoreTimeout       time.Duration
}

type LoginSubject struct {
	UserID string
	Role   domain.Role
	Email  string
	Name   string
}

// Issued is a freshly minted token pair bound to one session.
type Issued struct {
	SessionID        string
	UserID           string
	Role             domain.Role
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	SessionExpiresAt time.Time
}

type SessionView struct {
	ID         string      `json:"id"`
	Role       domain.Role `json:"role"`
	CreatedAt  time.Time   `json:"created_at"`
	LastSeenAt time.Time   `json:"last_seen_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
	IP         *string     `json:"ip,omitempty"`
	UserAgent  *string     `json:"user_agent,omitempty"`
	Device     *string     `json:"device,omitempty"`
	IsCurrent  bool        `json:"is_current"`
}

type SessionManager struct {
	store  repository.SessionStore
	codec  TokenCodec
	policy Policy
	logger *slog.Logger
	now    func() time.Time
}

type ManagerOption func(*SessionManager)

func WithClock(now func() time.Time) ManagerOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(store repository.SessionStore, codec TokenCodec, policy Policy, logger *slog.Logger, opts ...ManagerOption) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SessionManager{
		store:  store,
		codec:  codec,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a new ACTIVE session and returns its first token pair.
func (m *SessionManager) Create(ctx context.Context, subject LoginSubject, meta domain.Metadata) (*Issued, error) {
	if !subject.Role.Valid() {
		return nil, newSessionError(KindInternal, fmt.Errorf("create session: %w", domain.ErrUnknownRole))
	}
	now := m.now().UTC()
	session := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      subject.UserID,
		Role:        subject.Role,
		Email:       subject.Email,
		DisplayName: subject.Name,
		Status:      domain.SessionActive,
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
		Device:      meta.Device,
		CreatedAt:   now,
		LastSeenAt:  now,
		ExpiresAt:   now.Add(m.policy.SessionCeiling),
	}
	issued, jti, err := m.mint(session)
	if err != nil {
		return nil, err
	}
	session.CurrentRefreshJTI = jti

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	if err := m.store.CreateSession(storeCtx, session); err != nil {
		observability.RecordSessionCreate(ctx, subject.Role.String(), "error")
		return nil, newSessionError(KindStoreUnavailable, err)
	}
	observability.RecordSessionCreate(ctx, subject.Role.String(), "success")
	m.logger.InfoContext(ctx, "session.created",
		"session_id", session.ID,
		"user_id", session.UserID,
		"role", session.Role,
	)
	return issued, nil
}

// Rotate exchanges the session's current refresh token for a new pair.
// Presenting any other refresh token of the session revokes it.
func (m *SessionManager) Rotate(ctx context.Context, refreshToken string, meta domain.Metadata) (*Issued, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "session.rotate")
	defer span.End()

	issued, err := m.rotate(ctx, span, refreshToken, meta)
	outcome := "success"
	if err != nil {
		outcome = CodeOf(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("session.rotate.outcome", outcome))
	observability.RecordSessionRotate(ctx, outcome, float64(time.Since(start).Microseconds())/1000)
	return issued, err
}

func (m *SessionManager) rotate(ctx context.Context, span trace.Span, refreshToken string, meta domain.Metadata) (*Issued, error) {
	claims, err := m.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, newSessionError(KindInvalidToken, err)
	}
	span.SetAttributes(attribute.String("session.id", claims.SessionID))

	session, err := m.findSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionActive {
		return nil, newSessionError(KindInvalidSession, fmt.Errorf("session is %s", session.Status))
	}
	if session.UserID != claims.Subject {
		return nil, newSessionError(KindInvalidSession, errors.New("subject does not own session"))
	}

	now := m.now().UTC()
	if session.ExpiresAt.Before(now) {
		return nil, m.expire(ctx, session)
	}
	if claims.ID != session.CurrentRefreshJTI {
		return nil, m.revokeOnReplay(ctx, session, claims.ID, "jti_mismatch")
	}

	issued, newJTI, err := m.mint(session)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	swapped, err := m.store.RotateSession(storeCtx, session.ID, claims.ID, repository.RotationUpdate{
		NewJTI:             newJTI,
		SeenAt:             now,
		Metadata:           meta,
		TombstoneExpiresAt: now.Add(m.policy.TombstoneRetention),
	})
	if err != nil {
		return nil, newSessionError(KindStoreUnavailable, err)
	}
	if !swapped {
		// The row changed between our read and write. A session that was
		// ended meanwhile is not a replay.
		fresh, err := m.findSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.IsTerminal() {
			m.logger.InfoContext(ctx, "session.rotate.ended_concurrently",
				"session_id", fresh.ID, "status", fresh.Status)
			return nil, newSessionError(KindInvalidSession, fmt.Errorf("session is %s", fresh.Status))
		}
		return nil, m.revokeOnReplay(ctx, fresh, claims.ID, "lost_swap")
	}

	m.logger.DebugContext(ctx, "session.rotated", "session_id", session.ID, "user_id", session.UserID)
	return issued, nil
}

// Revoke ends a session. Revoking a terminal session succeeds without change.
func (m *SessionManager) Revoke(ctx context.Context, sessionID, reason string) error {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	changed, err := m.store.MarkRevoked(storeCtx, sessionID, reason, m.now())
	if err != nil {
		return m.classifyStoreError(err)
	}
	m.recordRevocation(ctx, reason, boolCount(changed), "session_id", sessionID)
	return nil
}

// RevokeForUser revokes sessionID only when userID owns it.
func (m *SessionManager) RevokeForUser(ctx context.Context, userID, sessionID, reason string) (bool, error) {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	changed, err := m.store.MarkRevokedIfOwned(storeCtx, userID, sessionID, reason, m.now())
	if err != nil {
		return false, m.classifyStoreError(err)
	}
	m.recordRevocation(ctx, reason, boolCount(changed), "session_id", sessionID, "user_id", userID)
	return changed, nil
}

func (m *SessionManager) RevokeAll(ctx context.Context, userID, reason string) (int64, error) {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	n, err := m.store.MarkRevokedForUser(storeCtx, userID, reason, m.now())
	if err != nil {
		return 0, newSessionError(KindStoreUnavailable, err)
	}
	m.recordRevocation(ctx, reason, n, "user_id", userID)
	return n, nil
}

// ListActive returns display metadata for the user's live sessions.
func (m *SessionManager) ListActive(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	sessions, err := m.store.ListActiveSessions(storeCtx, userID, m.now())
	if err != nil {
		return nil, newSessionError(KindStoreUnavailable, err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:         s.ID,
			Role:       s.Role,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			ExpiresAt:  s.ExpiresAt,
			IP:         s.IP,
			UserAgent:  s.UserAgent,
			Device:     s.Device,
			IsCurrent:  s.ID == currentSessionID,
		})
	}
	return views, nil
}

func (m *SessionManager) mint(session *domain.Session) (*Issued, string, error) {
	refresh, jti, err := m.codec.IssueRefresh(session.UserID, session.ID)
	if err != nil {
		return nil, "", newSessionError(KindInternal, fmt.Errorf("issue refresh token: %w", err))
	}
	access, err := m.codec.IssueAccess(session.UserID, session.ID, session.Role, session.Email, session.DisplayName)
	if err != nil {
		return nil, "", newSessionError(KindInternal, fmt.Errorf("issue access token: %w", err))
	}
	return &Issued{
		SessionID:        session.ID,
		UserID:           session.UserID,
		Role:             session.Role,
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  m.now().Add(m.codec.AccessTTL()),
		SessionExpiresAt: session.ExpiresAt,
	}, jti, nil
}

func (m *SessionManager) findSession(ctx context.Context, id string) (*domain.Session, error) {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	session, err := m.store.FindSession(storeCtx, id)
	if err != nil {
		return nil, m.classifyStoreError(err)
	}
	return session, nil
}

func (m *SessionManager) expire(ctx context.Context, session *domain.Session) error {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()
	if _, err := m.store.MarkExpired(storeCtx, session.ID); err != nil {
		m.logger.WarnContext(ctx, "session.expire.failed", "session_id", session.ID, "error", err)
		return newSessionError(KindSessionExpired, err)
	}
	m.logger.InfoContext(ctx, "session.expired", "session_id", session.ID, "user_id", session.UserID)
	return newSessionError(KindSessionExpired, nil)
}

// revokeOnReplay kills the session after a refresh jti disagreement. The
// tombstone lookup only enriches the audit record.
func (m *SessionManager) revokeOnReplay(ctx context.Context, session *domain.Session, presentedJTI, detail string) error {
	storeCtx, cancel := m.storeContext(ctx)
	defer cancel()

	recentlyConsumed := false
	if _, err := m.store.FindTombstone(storeCtx, presentedJTI); err == nil {
		recentlyConsumed = true
	}

	changed, revokeErr := m.store.MarkRevoked(storeCtx, session.ID, domain.ReasonConcurrentSession, m.now())
	attrs := []any{
		"session_id", session.ID,
		"user_id", session.UserID,
		"role", session.Role,
		"presented_jti", presentedJTI,
		"detail", detail,
		"recently_consumed", recentlyConsumed,
	}
	if session.IP != nil {
		attrs = append(attrs, "session_ip", *session.IP)
	}
	observability.Audit(ctx, slog.LevelError, domain.ReasonConcurrentSession, attrs...)
	if revokeErr != nil {
		m.logger.ErrorContext(ctx, "session.replay.revoke_failed", append(attrs, "error", revokeErr)...)
		return newSessionError(KindConcurrentSession, revokeErr)
	}
	observability.RecordSessionRevoke(ctx, domain.ReasonConcurrentSession, boolCount(changed))
	m.logger.ErrorContext(ctx, "session.replay_detected", attrs...)
	return newSessionError(KindConcurrentSession, nil)
}

func (m *SessionManager) recordRevocation(ctx context.Context, reason string, count int64, attrs ...any) {
	observability.RecordSessionRevoke(ctx, reason, count)
	m.logger.InfoContext(ctx, "session.revoked", append(attrs, "reason", reason, "count", count)...)
}

func (m *SessionManager) classifyStoreError(err error) error {
	if errors.Is(err, repository.ErrSessionNotFound) {
		return newSessionError(KindInvalidSession, err)
	}
	return newSessionError(KindStoreUnavailable, err)
}

func (m *SessionManager) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.policy.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.policy.StoreTimeout)
}

func boolCount(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
