package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"sharpfeed/internal/domain"
	"sharpfeed/internal/store"
)

// IdentityService is the user registry: it resolves identifiers to profiles
// and owns registration, authentication and profile updates.
type IdentityService interface {
	Register(ctx context.Context, identifier, secret, displayName string) (*domain.User, error)
	Authenticate(ctx context.Context, identifier, secret string) (*domain.User, error)
	UpdateProfile(ctx context.Context, identifier, displayName, avatar string) error
	Lookup(identifier string) (*domain.User, bool)
	ResolveUsername(identifier string) string
	ResolveAvatar(identifier string) string
}

type identityService struct {
	mu     sync.RWMutex
	users  []domain.User
	store  store.Store
	logger *logrus.Logger
}

// NewIdentityService loads the persisted user collection and serves lookups
// from memory, writing the whole collection back on every change.
func NewIdentityService(ctx context.Context, s store.Store, logger *logrus.Logger) IdentityService {
	users := store.Load(ctx, s, store.KeyUsers, []domain.User{}, logger)
	return &identityService{
		users:  users,
		store:  s,
		logger: logger,
	}
}

func (s *identityService) Register(ctx context.Context, identifier, secret, displayName string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	secret = strings.TrimSpace(secret)
	displayName = strings.TrimSpace(displayName)

	if identifier == "" || secret == "" || displayName == "" {
		return nil, domain.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(identifier) != nil {
		return nil, domain.ErrDuplicateIdentifier
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := domain.User{
		Identifier:     identifier,
		CredentialHash: string(hash),
		DisplayName:    displayName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users = append(s.users, user)

	if err := store.Save(ctx, s.store, store.KeyUsers, s.users); err != nil {
		s.users = s.users[:len(s.users)-1]
		return nil, err
	}

	return sanitizeUser(&user), nil
}

func (s *identityService) Authenticate(ctx context.Context, identifier, secret string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	secret = strings.TrimSpace(secret)
	if identifier == "" || secret == "" {
		return nil, domain.ErrInvalidCredentials
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.findLocked(identifier)
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.CredentialHash), []byte(secret)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *identityService) UpdateProfile(ctx context.Context, identifier, displayName, avatar string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return domain.ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.findLocked(identifier)
	if user == nil {
		return domain.ErrNotFound
	}

	prevName, prevAvatar, prevUpdated := user.DisplayName, user.Avatar, user.UpdatedAt
	user.DisplayName = displayName
	user.Avatar = strings.TrimSpace(avatar)
	user.UpdatedAt = time.Now().UTC()

	if err := store.Save(ctx, s.store, store.KeyUsers, s.users); err != nil {
		user.DisplayName, user.Avatar, user.UpdatedAt = prevName, prevAvatar, prevUpdated
		return err
	}
	return nil
}

func (s *identityService) Lookup(identifier string) (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user := s.findLocked(identifier)
	if user == nil {
		return nil, false
	}
	return sanitizeUser(user), true
}

// ResolveUsername maps an identifier to a display name, falling back to the
// part before "@" for unknown users and to "Anonymous" when there is no
// identifier at all.
func (s *identityService) ResolveUsername(identifier string) string {
	if identifier == "" {
		return "Anonymous"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if user := s.findLocked(identifier); user != nil && user.DisplayName != "" {
		return user.DisplayName
	}
	return strings.Split(identifier, "@")[0]
}

func (s *identityService) ResolveAvatar(identifier string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user := s.findLocked(identifier); user != nil {
		return user.Avatar
	}
	return ""
}

// findLocked returns a pointer into the users slice; callers hold the lock.
func (s *identityService) findLocked(identifier string) *domain.User {
	for i := range s.users {
		if s.users[i].Identifier == identifier {
			return &s.users[i]
		}
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		Identifier:  user.Identifier,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
