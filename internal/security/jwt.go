package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWeakSecrets  = errors.New("access and refresh secrets must be set and distinct")
)

type AccessClaims struct {
	TokenType string      `json:"token_type"`
	SessionID string      `json:"sid"`
	Role      domain.Role `json:"role"`
	Email     string      `json:"email,omitempty"`
	Name      string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	TokenType string `json:"token_type"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type CodecOptions struct {
	Issuer        string
	Audience      string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenCodec signs and verifies access and refresh tokens with separate keys.
// It holds no state beyond its configuration.
type TokenCodec struct {
	issuer        string
	audience      string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenCodec(opts CodecOptions) (*TokenCodec, error) {
	if opts.AccessSecret == "" || opts.RefreshSecret == "" || opts.AccessSecret == opts.RefreshSecret {
		return nil, ErrWeakSecrets
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}
	return &TokenCodec{
		issuer:        opts.Issuer,
		audience:      opts.Audience,
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock returns a copy of the codec that reads time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *TokenCodec) IssueAccess(subject, sessionID string, role domain.Role, email, name string) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("issue access token: %w", domain.ErrUnknownRole)
	}
	claims := AccessClaims{
		TokenType:        tokenTypeAccess,
		SessionID:        sessionID,
		Role:             role,
		Email:            email,
		Name:             name,
		RegisteredClaims: c.registered(subject, uuid.NewString(), c.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
}

func (c *TokenCodec) IssueRefresh(subject, sessionID string) (token string, jti string, err error) {
	jti = uuid.NewString()
	claims := RefreshClaims{
		TokenType:        tokenTypeRefresh,
		SessionID:        sessionID,
		RegisteredClaims: c.registered(subject, jti, c.refreshTTL),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func (c *TokenCodec) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(raw, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess || !claims.Role.Valid() || claims.SessionID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: malformed access claims", ErrInvalidToken)
	}
	return claims, nil
}

func (c *TokenCodec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(raw, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeRefresh || claims.SessionID == "" || claims.ID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("%w: malformed refresh claims", ErrInvalidToken)
	}
	return claims, nil
}

func (c *TokenCodec) registered(subject, jti string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		Issuer:    c.issuer,
		Subject:   subject,
		Audience:  []string{c.audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        jti,
	}
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims, secret []byte) error {
	if raw == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return ErrInvalidToken
	}
	return nil
}
