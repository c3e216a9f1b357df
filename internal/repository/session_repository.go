package repository

import (
	"context"
	"errors"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrTombstoneNotFound = errors.New("tombstone not found")
)

// RotationUpdate carries the fields written by a successful refresh swap.
type RotationUpdate struct {
	NewJTI             string
	SeenAt             time.Time
	Metadata           domain.Metadata
	TombstoneExpiresAt time.Time
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	FindSession(ctx context.Context, id string) (*domain.Session, error)
	// RotateSession swaps CurrentRefreshJTI from expectedJTI to next.NewJTI
	// and records expectedJTI as used, atomically. It reports false when the
	// session is no longer ACTIVE or its jti has already moved on.
	RotateSession(ctx context.Context, id, expectedJTI string, next RotationUpdate) (bool, error)
	InsertTombstone(ctx context.Context, t *domain.UsedRefreshToken) error
	FindTombstone(ctx context.Context, jti string) (*domain.UsedRefreshToken, error)
	MarkRevoked(ctx context.Context, id, reason string, at time.Time) (bool, error)
	MarkRevokedIfOwned(ctx context.Context, userID, id, reason string, at time.Time) (bool, error)
	MarkRevokedForUser(ctx context.Context, userID, reason string, at time.Time) (int64, error)
	MarkExpired(ctx context.Context, id string) (bool, error)
	ExpireLapsedSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredTombstones(ctx context.Context, before time.Time) (int64, error)
	ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error)
}

type GormSessionStore struct{ db *gorm.DB }

var _ SessionStore = (*GormSessionStore)(nil)

func NewSessionStore(db *gorm.DB) *GormSessionStore { return &GormSessionStore{db: db} }

func (r *GormSessionStore) CreateSession(ctx context.Context, s *domain.Session) error {
	s.LastSeenAt = s.LastSeenAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "session", "create", "success")
	return nil
}

func (r *GormSessionStore) FindSession(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", "find", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "session", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "find", "success")
	return &s, nil
}

func (r *GormSessionStore) RotateSession(ctx context.Context, id, expectedJTI string, next RotationUpdate) (bool, error) {
	swapped := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"current_refresh_jti": next.NewJTI,
			"last_seen_at":        next.SeenAt.UTC(),
		}
		if next.Metadata.IP != nil {
			updates["ip"] = *next.Metadata.IP
		}
		if next.Metadata.UserAgent != nil {
			updates["user_agent"] = *next.Metadata.UserAgent
		}
		if next.Metadata.Device != nil {
			updates["device"] = *next.Metadata.Device
		}
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND current_refresh_jti = ? AND status = ?", id, expectedJTI, domain.SessionActive).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		if err := insertTombstone(tx, &domain.UsedRefreshToken{
			JTI:       expectedJTI,
			SessionID: id,
			ExpiresAt: next.TombstoneExpiresAt.UTC(),
		}); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "rotate", "error")
		return false, err
	}
	if !swapped {
		observability.RecordRepositoryOperation(ctx, "session", "rotate", "conflict")
		return false, nil
	}
	observability.RecordRepositoryOperation(ctx, "session", "rotate", "success")
	return true, nil
}

func (r *GormSessionStore) InsertTombstone(ctx context.Context, t *domain.UsedRefreshToken) error {
	t.ExpiresAt = t.ExpiresAt.UTC()
	if err := insertTombstone(r.db.WithContext(ctx), t); err != nil {
		observability.RecordRepositoryOperation(ctx, "tombstone", "insert", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "tombstone", "insert", "success")
	return nil
}

// Duplicate jtis come from double-submits and are ignored.
func insertTombstone(db *gorm.DB, t *domain.UsedRefreshToken) error {
	return db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).Create(t).Error
}

func (r *GormSessionStore) FindTombstone(ctx context.Context, jti string) (*domain.UsedRefreshToken, error) {
	var t domain.UsedRefreshToken
	err := r.db.WithContext(ctx).Where("jti = ?", jti).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "tombstone", "find", "not_found")
			return nil, ErrTombstoneNotFound
		}
		observability.RecordRepositoryOperation(ctx, "tombstone", "find", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "tombstone", "find", "success")
	return &t, nil
}

// MarkRevoked moves an ACTIVE session to REVOKED. It reports false without
// error when the session is already terminal.
func (r *GormSessionStore) MarkRevoked(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return r.markRevoked(ctx, "revoke", id, reason, at, "id = ?", id)
}

func (r *GormSessionStore) MarkRevokedIfOwned(ctx context.Context, userID, id, reason string, at time.Time) (bool, error) {
	return r.markRevoked(ctx, "revoke_owned", id, reason, at, "id = ? AND user_id = ?", id, userID)
}

func (r *GormSessionStore) markRevoked(ctx context.Context, op, id, reason string, at time.Time, query string, args ...any) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s domain.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(&s).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if s.Status.IsTerminal() {
			return nil
		}
		res := tx.Model(&domain.Session{}).
			Where("id = ? AND status = ?", id, domain.SessionActive).
			Updates(revokedFields(reason, at))
		if res.Error != nil {
			return res.Error
		}
		changed = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			observability.RecordRepositoryOperation(ctx, "session", op, "not_found")
		} else {
			observability.RecordRepositoryOperation(ctx, "session", op, "error")
		}
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "session", op, "success")
	return changed, nil
}

func (r *GormSessionStore) MarkRevokedForUser(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("user_id = ? AND status = ?", userID, domain.SessionActive).
		Updates(revokedFields(reason, at))
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "revoke_for_user", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "revoke_for_user", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionStore) MarkExpired(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND status = ?", id, domain.SessionActive).
		Update("status", domain.SessionExpired)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "mark_expired", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "mark_expired", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionStore) ExpireLapsedSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("status = ? AND expires_at < ?", domain.SessionActive, now.UTC()).
		Update("status", domain.SessionExpired)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "session", "expire_lapsed", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "session", "expire_lapsed", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionStore) DeleteExpiredTombstones(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&domain.UsedRefreshToken{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "tombstone", "delete_expired", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "tombstone", "delete_expired", "success")
	return res.RowsAffected, nil
}

func (r *GormSessionStore) ListActiveSessions(ctx context.Context, userID string, now time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, domain.SessionActive, now.UTC()).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "session", "list_active", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "session", "list_active", "success")
	return sessions, nil
}

func revokedFields(reason string, at time.Time) map[string]any {
	return map[string]any{
		"status":         domain.SessionRevoked,
		"revoked_at":     at.UTC(),
		"revoked_reason": reason,
	}
}
