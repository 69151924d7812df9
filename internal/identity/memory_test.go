package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	uid, err := s.CreateUser(ctx, NewUser{Email: "ana@school.ph", Password: "secret1", DisplayName: "Ana Cruz"})
	require.NoError(t, err)
	assert.Equal(t, "secret1", s.Password(uid))

	_, err = s.CreateUser(ctx, NewUser{Email: "ANA@school.ph", Password: "x"})
	assert.Error(t, err, "duplicate email")

	require.NoError(t, s.SetRoleClaim(ctx, uid, "teacher"))
	u, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "teacher", u.RoleClaim())

	require.NoError(t, s.UpdatePassword(ctx, uid, "secret2"))
	assert.Equal(t, "secret2", s.Password(uid))

	require.NoError(t, s.DeleteUser(ctx, uid))
	_, err = s.GetUser(ctx, uid)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, uid), ErrUserNotFound)
	assert.ErrorIs(t, s.SetRoleClaim(ctx, uid, "teacher"), ErrUserNotFound)
}

func TestMemoryStoreTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddUser(&User{UID: "admin-1", Claims: map[string]interface{}{"role": "admin"}})

	tok := s.IssueToken("admin-1")
	verified, err := s.VerifyIDToken(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", verified.UID)
	assert.Equal(t, "admin", verified.Claims["role"])

	_, err = s.VerifyIDToken(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryStoreFailOn(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddUser(&User{UID: "u1"})
	boom := errors.New("quota exceeded")

	s.FailOn("deleteUser", boom)
	assert.ErrorIs(t, s.DeleteUser(ctx, "u1"), boom)

	s.FailOn("deleteUser", nil)
	assert.NoError(t, s.DeleteUser(ctx, "u1"))
}

func TestMemoryStoreListUsersSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.AddUser(&User{UID: "b"})
	s.AddUser(&User{UID: "a"})
	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].UID)
}
