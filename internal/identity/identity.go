package identity

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound is returned when no identity user has the UID
	ErrUserNotFound = errors.New("identity user not found")
	// ErrInvalidToken is returned when an ID token cannot be verified
	ErrInvalidToken = errors.New("invalid id token")
)

// User is an identity store user record
type User struct {
	UID         string                 `json:"uid"`
	Email       string                 `json:"email,omitempty"`
	DisplayName string                 `json:"displayName,omitempty"`
	Disabled    bool                   `json:"disabled"`
	Claims      map[string]interface{} `json:"claims,omitempty"`
}

// RoleClaim returns the "role" custom claim, or ""
func (u *User) RoleClaim() string {
	if u.Claims == nil {
		return ""
	}
	role, _ := u.Claims["role"].(string)
	return role
}

// NewUser holds the fields for creating an identity user
type NewUser struct {
	Email       string
	Password    string
	DisplayName string
}

// Token is a verified caller identity
type Token struct {
	UID    string
	Claims map[string]interface{}
}

// Store is the identity provider used by the service
type Store interface {
	// SetRoleClaim replaces the user's custom claims with {"role": role}
	SetRoleClaim(ctx context.Context, uid, role string) error
	DeleteUser(ctx context.Context, uid string) error
	UpdatePassword(ctx context.Context, uid, password string) error
	CreateUser(ctx context.Context, user NewUser) (string, error)
	GetUser(ctx context.Context, uid string) (*User, error)
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
	ListUsers(ctx context.Context) ([]*User, error)
}
