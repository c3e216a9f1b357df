package domain

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "POLITICIAN", want: RolePolitician},
		{raw: " admin ", want: RoleAdmin},
		{raw: "superuser", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseRole(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownRole) {
					t.Fatalf("expected ErrUnknownRole, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse role: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRoleScanRejectsUnknownValue(t *testing.T) {
	var r Role
	if err := r.Scan([]byte("ADMIN")); err != nil || r != RoleAdmin {
		t.Fatalf("expected ADMIN, got %q err=%v", r, err)
	}
	if err := r.Scan("OWNER"); err == nil {
		t.Fatal("expected scan of unknown role to fail")
	}
	if _, err := Role("OWNER").Value(); err == nil {
		t.Fatal("expected value of unknown role to fail")
	}
}

func TestSessionStatusIsTerminal(t *testing.T) {
	if SessionActive.IsTerminal() {
		t.Fatal("active must not be terminal")
	}
	if !SessionExpired.IsTerminal() || !SessionRevoked.IsTerminal() {
		t.Fatal("expired and revoked must be terminal")
	}
}

func TestModelsCoverPersistedTypes(t *testing.T) {
	var account, session, tombstone int
	for _, m := range Models() {
		switch m.(type) {
		case *Account:
			account++
		case *Session:
			session++
		case *UsedRefreshToken:
			tombstone++
		default:
			t.Fatalf("unexpected model %T", m)
		}
	}
	if account != 1 || session != 1 || tombstone != 1 {
		t.Fatalf("expected each model once, got account=%d session=%d tombstone=%d", account, session, tombstone)
	}
}
