package service

import (
	"context"
	"errors"
	"testing"

	"github.com/KabriAcid/ScrynCard-sub001/internal/domain"
	"github.com/KabriAcid/ScrynCard-sub001/internal/repository"
	"github.com/KabriAcid/ScrynCard-sub001/internal/testutil"
)

func newAuthServiceForTest(t *testing.T) (*AuthService, managerFixture) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	store := repository.NewSessionStore(db)
	codec := newCodecForTest(t)
	f := managerFixture{store: store, codec: codec, manager: NewSessionManager(store, codec, testPolicy, discardLogger())}
	return NewAuthService(repository.NewAccountStore(db), f.manager), f
}

func TestAuthLoginCreatesSessionWithAccountRole(t *testing.T) {
	auth, f := newAuthServiceForTest(t)
	ctx := context.Background()
	account, err := auth.CreateAccount(ctx, "admin@example.com", "Root", domain.RoleAdmin, "s3cret-pass")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	issued, err := auth.Login(ctx, "ADMIN@example.com", "s3cret-pass", domain.Metadata{})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := f.codec.VerifyAccess(issued.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != account.ID || claims.Role != domain.RoleAdmin || claims.Email != "admin@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAuthLoginRejectsBadCredentials(t *testing.T) {
	auth, _ := newAuthServiceForTest(t)
	ctx := context.Background()
	if _, err := auth.CreateAccount(ctx, "p@example.com", "P", domain.RolePolitician, "good-password"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, err := auth.Login(ctx, "p@example.com", "bad-password", domain.Metadata{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "good-password", domain.Metadata{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, err := auth.CreateAccount(ctx, "p@example.com", "P", domain.RolePolitician, "good-password"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}
