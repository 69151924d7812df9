package identity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process identity provider for tests and local runs
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*User
	passwords map[string]string
	tokens    map[string]string
	fail      map[string]error
}

// NewMemoryStore creates an empty identity store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*User),
		passwords: make(map[string]string),
		tokens:    make(map[string]string),
		fail:      make(map[string]error),
	}
}

// FailOn makes the named operation return err until cleared with a nil err
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

func (s *MemoryStore) failure(op string) error {
	return s.fail[op]
}

// AddUser seeds a user directly
func (s *MemoryStore) AddUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.users[user.UID] = &cp
}

// IssueToken returns an ID token that VerifyIDToken resolves to uid
func (s *MemoryStore) IssueToken(uid string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + uuid.NewString()
	s.tokens[token] = uid
	return token
}

// Password returns the stored password for assertions
func (s *MemoryStore) Password(uid string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passwords[uid]
}

func (s *MemoryStore) SetRoleClaim(ctx context.Context, uid, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("setRoleClaim"); err != nil {
		return err
	}
	u, ok := s.users[uid]
	if !ok {
		return ErrUserNotFound
	}
	u.Claims = map[string]interface{}{"role": role}
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("deleteUser"); err != nil {
		return err
	}
	if _, ok := s.users[uid]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, uid)
	delete(s.passwords, uid)
	return nil
}

func (s *MemoryStore) UpdatePassword(ctx context.Context, uid, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("updatePassword"); err != nil {
		return err
	}
	if _, ok := s.users[uid]; !ok {
		return ErrUserNotFound
	}
	s.passwords[uid] = password
	return nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user NewUser) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("createUser"); err != nil {
		return "", err
	}
	for _, u := range s.users {
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return "", fmt.Errorf("email %s already exists", user.Email)
		}
	}
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")[:28]
	s.users[uid] = &User{UID: uid, Email: user.Email, DisplayName: user.DisplayName}
	s.passwords[uid] = user.Password
	return uid, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, uid string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("getUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) VerifyIDToken(ctx context.Context, idToken string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, ok := s.tokens[idToken]
	if !ok {
		return nil, ErrInvalidToken
	}
	var claims map[string]interface{}
	if u, ok := s.users[uid]; ok {
		claims = u.Claims
	}
	return &Token{UID: uid, Claims: claims}, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure("listUsers"); err != nil {
		return nil, err
	}
	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	return users, nil
}

var _ Store = (*MemoryStore)(nil)
