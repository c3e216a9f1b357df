package domain

import "time"

type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionExpired SessionStatus = "EXPIRED"
	SessionRevoked SessionStatus = "REVOKED"
)

func (s SessionStatus) IsTerminal() bool {
	return s == SessionExpired || s == SessionRevoked
}

const (
	ReasonUserLogout        = "USER_LOGOUT"
	ReasonUserLogoutAll     = "USER_LOGOUT_ALL"
	ReasonConcurrentSession = "CONCURRENT_SESSION_DETECTED"
	ReasonAdminRevoked      = "ADMIN_REVOKED"
)

// Metadata is advisory client information. A nil field was not supplied.
type Metadata struct {
	IP        *string
	UserAgent *string
	Device    *string
}

type Session struct {
	ID                string        `gorm:"primaryKey;size:36" json:"id"`
	UserID            string        `gorm:"size:64;index;not null" json:"user_id"`
	Role              Role          `gorm:"size:16;not null" json:"role"`
	Email             string        `gorm:"size:255" json:"-"`
	DisplayName       string        `gorm:"size:255" json:"-"`
	CurrentRefreshJTI string        `gorm:"column:current_refresh_jti;size:64;not null" json:"-"`
	Status            SessionStatus `gorm:"size:16;index;not null" json:"status"`
	IP                *string       `gorm:"size:64" json:"ip,omitempty"`
	UserAgent         *string       `gorm:"size:512" json:"user_agent,omitempty"`
	Device            *string       `gorm:"size:128" json:"device,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	LastSeenAt        time.Time     `gorm:"not null" json:"last_seen_at"`
	ExpiresAt         time.Time     `gorm:"index;not null" json:"expires_at"`
	RevokedAt         *time.Time    `json:"revoked_at,omitempty"`
	RevokedReason     *string       `gorm:"size:64" json:"revoked_reason,omitempty"`
}

func (s *Session) Metadata() Metadata {
	return Metadata{IP: s.IP, UserAgent: s.UserAgent, Device: s.Device}
}

// UsedRefreshToken records a consumed refresh jti for a short retention window.
type UsedRefreshToken struct {
	JTI       string    `gorm:"column:jti;primaryKey;size:64"`
	SessionID string    `gorm:"size:36;index;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{&Account{}, &Session{}, &UsedRefreshToken{}}
}
