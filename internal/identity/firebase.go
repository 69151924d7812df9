package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
)

// FirebaseStore implements Store on Firebase Authentication
type FirebaseStore struct {
	client *auth.Client
}

// NewFirebaseStore wraps an initialised Firebase auth client
func NewFirebaseStore(client *auth.Client) *FirebaseStore {
	return &FirebaseStore{client: client}
}

func (s *FirebaseStore) SetRoleClaim(ctx context.Context, uid, role string) error {
	if err := s.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": role}); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set role claim: %w", err)
	}
	return nil
}

func (s *FirebaseStore) DeleteUser(ctx context.Context, uid string) error {
	if err := s.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (s *FirebaseStore) UpdatePassword(ctx context.Context, uid, password string) error {
	if _, err := s.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(password)); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *FirebaseStore) CreateUser(ctx context.Context, user NewUser) (string, error) {
	params := (&auth.UserToCreate{}).Email(user.Email).Password(user.Password)
	if user.DisplayName != "" {
		params = params.DisplayName(user.DisplayName)
	}
	record, err := s.client.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return record.UID, nil
}

func (s *FirebaseStore) GetUser(ctx context.Context, uid string) (*User, error) {
	record, err := s.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return fromRecord(record), nil
}

func (s *FirebaseStore) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	token, err := s.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Token{UID: token.UID, Claims: token.Claims}, nil
}

func (s *FirebaseStore) ListUsers(ctx context.Context) ([]*User, error) {
	iter := s.client.Users(ctx, "")
	var users []*User
	for {
		record, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		users = append(users, fromRecord(record.UserRecord))
	}
	return users, nil
}

func fromRecord(record *auth.UserRecord) *User {
	u := &User{
		Disabled: record.Disabled,
		Claims:   record.CustomClaims,
	}
	if record.UserInfo != nil {
		u.UID = record.UID
		u.Email = record.Email
		u.DisplayName = record.DisplayName
	}
	return u
}

var _ Store = (*FirebaseStore)(nil)
