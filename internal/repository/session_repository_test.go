package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/testutil"
)

func newSessionStoreForTest(t *testing.T) *GormSessionStore {
	t.Helper()
	return NewSessionStore(testutil.NewSQLiteDB(t))
}

func seedSession(t *testing.T, store *GormSessionStore, id, userID, jti string, expiresAt time.Time) *domain.Session {
	t.Helper()
	now := time.Now().UTC()
	s := &domain.Session{
		ID:                id,
		UserID:            userID,
		Role:              domain.RolePolitician,
		CurrentRefreshJTI: jti,
		Status:            domain.SessionActive,
		LastSeenAt:        now,
		ExpiresAt:         expiresAt,
	}
	if err := store.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("create session %s: %v", id, err)
	}
	return s
}

func TestSessionStoreFindMissing(t *testing.T) {
	store := newSessionStoreForTest(t)
	if _, err := store.FindSession(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreRotateSwapsOnlyExpectedJTI(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	seedSession(t, store, "s1", "u1", "jti-0", time.Now().Add(time.Hour))

	seen := time.Now().UTC().Add(time.Second)
	ok, err := store.RotateSession(ctx, "s1", "jti-0", RotationUpdate{
		NewJTI:             "jti-1",
		SeenAt:             seen,
		Metadata:           domain.Metadata{IP: testutil.StrPtr("10.0.0.1")},
		TombstoneExpiresAt: time.Now().Add(5 * time.Minute),
	})
	if err != nil || !ok {
		t.Fatalf("expected first swap to win, ok=%v err=%v", ok, err)
	}

	ok, err = store.RotateSession(ctx, "s1", "jti-0", RotationUpdate{NewJTI: "jti-2", SeenAt: seen})
	if err != nil {
		t.Fatalf("stale swap: %v", err)
	}
	if ok {
		t.Fatal("expected swap against a stale jti to lose")
	}

	s, err := store.FindSession(ctx, "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.CurrentRefreshJTI != "jti-1" {
		t.Fatalf("expected jti-1, got %s", s.CurrentRefreshJTI)
	}
	if s.IP == nil || *s.IP != "10.0.0.1" {
		t.Fatalf("expected ip to be refreshed, got %v", s.IP)
	}
	if s.UserAgent != nil {
		t.Fatalf("expected unset user agent to stay nil, got %q", *s.UserAgent)
	}
	tomb, err := store.FindTombstone(ctx, "jti-0")
	if err != nil {
		t.Fatalf("expected tombstone for consumed jti: %v", err)
	}
	if tomb.SessionID != "s1" {
		t.Fatalf("unexpected tombstone: %+v", tomb)
	}
}

func TestSessionStoreRotateRefusesTerminalSession(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	seedSession(t, store, "s1", "u1", "jti-0", time.Now().Add(time.Hour))
	if _, err := store.MarkRevoked(ctx, "s1", domain.ReasonUserLogout, time.Now()); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err := store.RotateSession(ctx, "s1", "jti-0", RotationUpdate{NewJTI: "jti-1", SeenAt: time.Now()})
	if err != nil || ok {
		t.Fatalf("expected revoked session to refuse swap, ok=%v err=%v", ok, err)
	}
	if _, err := store.FindTombstone(ctx, "jti-0"); !errors.Is(err, ErrTombstoneNotFound) {
		t.Fatalf("expected no tombstone for refused swap, got %v", err)
	}
}

func TestSessionStoreInsertTombstoneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	tomb := func() *domain.UsedRefreshToken {
		return &domain.UsedRefreshToken{JTI: "dup", SessionID: "s1", ExpiresAt: time.Now().Add(time.Minute)}
	}
	if err := store.InsertTombstone(ctx, tomb()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.InsertTombstone(ctx, tomb()); err != nil {
		t.Fatalf("duplicate insert must be benign: %v", err)
	}
}

func TestSessionStoreMarkRevokedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	seedSession(t, store, "s1", "u1", "jti-0", time.Now().Add(time.Hour))

	changed, err := store.MarkRevoked(ctx, "s1", domain.ReasonUserLogout, time.Now())
	if err != nil || !changed {
		t.Fatalf("expected first revoke to change state, changed=%v err=%v", changed, err)
	}
	changed, err = store.MarkRevoked(ctx, "s1", domain.ReasonUserLogout, time.Now())
	if err != nil || changed {
		t.Fatalf("expected second revoke to be a no-op, changed=%v err=%v", changed, err)
	}
	if _, err := store.MarkRevoked(ctx, "missing", domain.ReasonUserLogout, time.Now()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	s, err := store.FindSession(ctx, "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if s.Status != domain.SessionRevoked || s.RevokedAt == nil || s.RevokedReason == nil || *s.RevokedReason != domain.ReasonUserLogout {
		t.Fatalf("unexpected revoked session: %+v", s)
	}
}

func TestSessionStoreRevokeScopeByUser(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	seedSession(t, store, "u1s1", "u1", "a", time.Now().Add(time.Hour))
	seedSession(t, store, "u1s2", "u1", "b", time.Now().Add(time.Hour))
	seedSession(t, store, "u2s1", "u2", "c", time.Now().Add(time.Hour))

	if _, err := store.MarkRevokedIfOwned(ctx, "u1", "u2s1", domain.ReasonUserLogout, time.Now()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found when revoking another user's session, got %v", err)
	}
	n, err := store.MarkRevokedForUser(ctx, "u1", domain.ReasonUserLogoutAll, time.Now())
	if err != nil {
		t.Fatalf("revoke for user: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 revoked, got %d", n)
	}
	other, err := store.FindSession(ctx, "u2s1")
	if err != nil {
		t.Fatalf("find other: %v", err)
	}
	if other.Status != domain.SessionActive {
		t.Fatalf("expected other user's session untouched, got %s", other.Status)
	}
}

func TestSessionStoreListActiveSessions(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	now := time.Now().UTC()
	seedSession(t, store, "active", "u1", "a", now.Add(time.Hour))
	seedSession(t, store, "lapsed", "u1", "b", now.Add(-time.Minute))
	seedSession(t, store, "revoked", "u1", "c", now.Add(time.Hour))
	seedSession(t, store, "other", "u2", "d", now.Add(time.Hour))
	if _, err := store.MarkRevoked(ctx, "revoked", domain.ReasonUserLogout, now); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	sessions, err := store.ListActiveSessions(ctx, "u1", now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "active" {
		t.Fatalf("expected only the active session, got %+v", sessions)
	}
}

func TestSessionStoreSweepPrimitives(t *testing.T) {
	ctx := context.Background()
	store := newSessionStoreForTest(t)
	now := time.Now().UTC()
	seedSession(t, store, "lapsed", "u1", "a", now.Add(-time.Minute))
	seedSession(t, store, "live", "u1", "b", now.Add(time.Hour))
	for _, tomb := range []*domain.UsedRefreshToken{
		{JTI: "old", SessionID: "live", ExpiresAt: now.Add(-time.Second)},
		{JTI: "fresh", SessionID: "live", ExpiresAt: now.Add(time.Minute)},
	} {
		if err := store.InsertTombstone(ctx, tomb); err != nil {
			t.Fatalf("insert tombstone: %v", err)
		}
	}

	expired, err := store.ExpireLapsedSessions(ctx, now)
	if err != nil || expired != 1 {
		t.Fatalf("expected 1 expired session, got %d err=%v", expired, err)
	}
	purged, err := store.DeleteExpiredTombstones(ctx, now)
	if err != nil || purged != 1 {
		t.Fatalf("expected 1 purged tombstone, got %d err=%v", purged, err)
	}
	if _, err := store.FindTombstone(ctx, "fresh"); err != nil {
		t.Fatalf("fresh tombstone must survive: %v", err)
	}
	s, err := store.FindSession(ctx, "lapsed")
	if err != nil {
		t.Fatalf("find lapsed: %v", err)
	}
	if s.Status != domain.SessionExpired {
		t.Fatalf("expected EXPIRED, got %s", s.Status)
	}
	changed, err := store.MarkExpired(ctx, "lapsed")
	if err != nil || changed {
		t.Fatalf("expected mark expired on terminal session to be a no-op, changed=%v err=%v", changed, err)
	}
}
