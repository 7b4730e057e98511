package users

import (
	"fmt"
	"time"
)

// Role is the coarse permission tier assigned to a user. Policy checks
// on roles live outside this package.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("users: unknown role %q", s)
	}
}

// Provider names for the external identity columns.
const (
	ProviderGoogle = "google"
	ProviderVK     = "vk"
	ProviderYandex = "yandex"
)

// User is the canonical identity record. Email is unique; Phone and the
// provider identifiers are unique when set. PasswordHash is nil for
// accounts created through an OAuth provider that never set a password.
type User struct {
	ID           int64
	FirstName    string
	LastName     string
	MiddleName   *string
	Email        string
	Phone        *string
	PasswordHash *string
	Role         Role
	Avatar       *string
	Active       bool
	VKID         *int64
	GoogleID     *string
	YandexID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasAuthMethod reports whether the record satisfies the invariant that
// every user can log in somehow: a password hash or at least one linked
// provider identity.
func (u *User) HasAuthMethod() bool {
	return u.PasswordHash != nil || u.VKID != nil || u.GoogleID != nil || u.YandexID != nil
}

// Snapshot-friendly display name: first name, falling back to the email
// local part.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	for i, r := range u.Email {
		if r == '@' {
			return u.Email[:i]
		}
	}
	return u.Email
}
