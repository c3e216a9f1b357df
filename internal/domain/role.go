package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of principals that can own a session.
type Role string

const (
	RolePolitician Role = "POLITICIAN"
	RoleAdmin      Role = "ADMIN"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RolePolitician:
		return RolePolitician, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

func (r Role) Valid() bool {
	return r == RolePolitician || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return string(r), nil
}

func (r *Role) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("scan role: unsupported type %T", src)
	}
	parsed, err := ParseRole(raw)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
