package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/observability"

	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountStore interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
}

type GormAccountStore struct{ db *gorm.DB }

var _ AccountStore = (*GormAccountStore)(nil)

func NewAccountStore(db *gorm.DB) *GormAccountStore { return &GormAccountStore{db: db} }

func (r *GormAccountStore) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_id", "id = ?", id)
}

func (r *GormAccountStore) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "find_by_email", "email = ?", normalizeEmail(email))
}

func (r *GormAccountStore) Create(ctx context.Context, a *domain.Account) error {
	a.Email = normalizeEmail(a.Email)
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "account", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "account", "create", "success")
	return nil
}

func (r *GormAccountStore) findOne(ctx context.Context, op, query string, arg any) (*domain.Account, error) {
	var a domain.Account
	err := r.db.WithContext(ctx).Where(query, arg).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "account", op, "not_found")
			return nil, ErrAccountNotFound
		}
		observability.RecordRepositoryOperation(ctx, "account", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "account", op, "success")
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
