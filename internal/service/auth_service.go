package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
	"github.com/KabriAcid/ScrynCard-sub001/internal/security"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
)

// Compared against when the account is unknown so both paths cost a bcrypt run.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, _ := security.HashPassword(uuid.NewString())
	return hash
})

type AuthService struct {
	accounts repository.AccountStore
	sessions *SessionManager
}

func NewAuthService(accounts repository.AccountStore, sessions *SessionManager) *AuthService {
	return &AuthService{accounts: accounts, sessions: sessions}
}

func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.Metadata) (*Issued, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			_ = security.VerifyPassword(dummyPasswordHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, newSessionError(KindStoreUnavailable, err)
	}
	if err := security.VerifyPassword(account.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, newSessionError(KindInternal, fmt.Errorf("verify password: %w", err))
	}
	return s.sessions.Create(ctx, LoginSubject{
		UserID: account.ID,
		Role:   account.Role,
		Email:  account.Email,
		Name:   account.Name,
	}, meta)
}

func (s *AuthService) CreateAccount(ctx context.Context, email, name string, role domain.Role, password string) (*domain.Account, error) {
	if !role.Valid() {
		return nil, domain.ErrUnknownRole
	}
	if strings.TrimSpace(email) == "" || len(password) < 8 {
		return nil, errors.New("email is required and password must be at least 8 characters")
	}
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
