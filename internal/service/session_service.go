package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"sharpfeed/internal/auth"
	"sharpfeed/internal/domain"
	"sharpfeed/internal/store"
)

// SessionService is the explicit application-state object: the signed-in
// identifier, the single editing-post scalar, and the persisted theme
// preference. At most one post can be in the editing state at a time;
// entering edit on another post replaces the previous one.
type SessionService struct {
	mu        sync.Mutex
	current   string
	editingID int64
	issuer    *auth.TokenIssuer
	identity  IdentityService
	store     store.Store
	logger    *logrus.Logger
}

func NewSessionService(issuer *auth.TokenIssuer, identity IdentityService, s store.Store, logger *logrus.Logger) *SessionService {
	return &SessionService{
		issuer:   issuer,
		identity: identity,
		store:    s,
		logger:   logger,
	}
}

// Restore derives the current user from the persisted session token. A
// missing, expired or orphaned token leaves the session signed out.
func (s *SessionService) Restore(ctx context.Context) {
	token := store.Load(ctx, s.store, store.KeySession, "", s.logger)
	if token == "" {
		return
	}

	identifier, err := s.issuer.Validate(token)
	if err != nil {
		s.logger.Warnf("discarding persisted session: %v", err)
		return
	}
	if _, ok := s.identity.Lookup(identifier); !ok {
		s.logger.Warnf("discarding persisted session: unknown user %s", identifier)
		return
	}

	s.mu.Lock()
	s.current = identifier
	s.mu.Unlock()
}

// SignIn issues a session token for an already-authenticated identifier and
// persists it so the session survives restarts.
func (s *SessionService) SignIn(ctx context.Context, identifier string) (string, error) {
	if _, ok := s.identity.Lookup(identifier); !ok {
		return "", domain.ErrNotFound
	}

	token, err := s.issuer.Issue(identifier)
	if err != nil {
		return "", err
	}
	if err := store.Save(ctx, s.store, store.KeySession, token); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.current = identifier
	s.editingID = 0
	s.mu.Unlock()
	return token, nil
}

func (s *SessionService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.current = ""
	s.editingID = 0
	s.mu.Unlock()
	return s.store.Delete(ctx, store.KeySession)
}

// Current returns the signed-in identifier, or "" when signed out.
func (s *SessionService) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// StartEdit moves the given post into the editing state, silently leaving
// edit on whichever post held it before.
func (s *SessionService) StartEdit(postID int64) {
	s.mu.Lock()
	s.editingID = postID
	s.mu.Unlock()
}

func (s *SessionService) CancelEdit() {
	s.mu.Lock()
	s.editingID = 0
	s.mu.Unlock()
}

// EditingID returns the id of the post being edited, or 0 when none is.
func (s *SessionService) EditingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// Theme returns the persisted theme preference, defaulting to "light".
func (s *SessionService) Theme(ctx context.Context) string {
	return store.Load(ctx, s.store, store.KeyTheme, "light", s.logger)
}

func (s *SessionService) SetTheme(ctx context.Context, theme string) error {
	return store.Save(ctx, s.store, store.KeyTheme, theme)
}
