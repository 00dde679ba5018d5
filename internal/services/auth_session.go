package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/storefront/domain"
)

// AuthSessionImpl implements domain.AuthSession.
// It starts Initializing and becomes Anonymous or Authenticated on Restore.
// Listeners run synchronously after the state lock is released, in
// subscription order, with the context of the call that caused the change.
type AuthSessionImpl struct {
	persistence domain.PersistenceAdapter
	identity    domain.IdentityAPI
	inspector   domain.TokenInspector
	audit       domain.AuditLogger
	logger      *zap.Logger

	mu        sync.RWMutex
	state     domain.AuthState
	user      *domain.User
	tokens    *domain.TokenPair
	lastError *string

	listenersMu sync.Mutex
	listeners   []subscription
	nextID      int
}

type subscription struct {
	id       int
	listener domain.AuthListener
}

// NewAuthSession creates a session in the Initializing state
func NewAuthSession(
	persistence domain.PersistenceAdapter,
	identity domain.IdentityAPI,
	inspector domain.TokenInspector,
	audit domain.AuditLogger,
	logger *zap.Logger,
) *AuthSessionImpl {
	return &AuthSessionImpl{
		persistence: persistence,
		identity:    identity,
		inspector:   inspector,
		audit:       audit,
		logger:      logger.Named("session"),
		state:       domain.AuthInitializing,
	}
}

// Subscribe implements domain.SessionProvider
func (s *AuthSessionImpl) Subscribe(listener domain.AuthListener) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *AuthSessionImpl) publish(ctx context.Context, event domain.AuthEvent) {
	s.listenersMu.Lock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.listenersMu.Unlock()

	for _, sub := range subs {
		sub.listener(ctx, event)
	}
}

// State implements domain.AuthSession
func (s *AuthSessionImpl) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot implements domain.SessionProvider
func (s *AuthSessionImpl) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := domain.Session{IsAuthenticated: s.state == domain.AuthAuthenticated}
	if s.user != nil {
		user := *s.user
		session.User = &user
	}
	if s.tokens != nil {
		tokens := *s.tokens
		session.Tokens = &tokens
	}
	return session
}

// AccessToken implements domain.SessionProvider. It is empty unless Authenticated.
func (s *AuthSessionImpl) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != domain.AuthAuthenticated || s.tokens == nil {
		return ""
	}
	return s.tokens.Access
}

// Restore implements domain.AuthSession. No network validation is done: a
// restored token may already be stale.
func (s *AuthSessionImpl) Restore(ctx context.Context) bool {
	stored, ok := s.persistence.Restore(ctx)

	s.mu.Lock()
	prev := s.state
	if ok {
		s.setAuthenticated(stored.User, stored.Tokens)
	} else {
		s.setAnonymous()
	}
	event := s.event(prev)
	s.mu.Unlock()

	if ok {
		event.Type = domain.AuthEventRestored
		s.logger.Debug("session restored", zap.Uint("user_id", stored.User.ID))
		s.logAudit(ctx, domain.NewAuditEvent(domain.SessionRestoredEvent, stored.User.ID))
	} else {
		event.Type = domain.AuthEventRestoreFailed
		s.logger.Debug("no stored session")
	}
	s.publish(ctx, event)
	return ok
}

// Login implements domain.AuthSession. Any previous session is replaced.
func (s *AuthSessionImpl) Login(ctx context.Context, user *domain.User, tokens *domain.TokenPair, remember bool) error {
	if user == nil || tokens == nil || tokens.Access == "" {
		return domain.ErrInvalidSession
	}
	u, t := *user, *tokens

	s.persistence.Save(ctx, domain.StoredSession{User: &u, Tokens: &t}, remember)

	s.mu.Lock()
	prev := s.state
	s.setAuthenticated(&u, &t)
	s.lastError = nil
	event := s.event(prev)
	s.mu.Unlock()

	event.Type = domain.AuthEventLoggedIn
	s.logger.Info("user logged in", zap.Uint("user_id", u.ID), zap.Bool("remember", remember))
	s.logAudit(ctx, domain.NewAuditEvent(domain.UserLoginEvent, u.ID).WithMetadata("remember", remember))
	s.publish(ctx, event)
	return nil
}

// Logout implements domain.AuthSession
func (s *AuthSessionImpl) Logout(ctx context.Context) {
	s.persistence.Clear(ctx)

	s.mu.Lock()
	prev := s.state
	var userID uint
	if s.user != nil {
		userID = s.user.ID
	}
	s.setAnonymous()
	event := s.event(prev)
	s.mu.Unlock()

	event.Type = domain.AuthEventLoggedOut
	s.logger.Info("user logged out", zap.Uint("user_id", userID))
	s.logAudit(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, userID))
	s.publish(ctx, event)
}

// UpdateUser implements domain.AuthSession. The store currently holding the
// session is rewritten so the persisted and in-memory copies never diverge.
func (s *AuthSessionImpl) UpdateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidSession
	}
	u := *user

	s.mu.Lock()
	if s.state != domain.AuthAuthenticated {
		s.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	s.user = &u
	tokens := *s.tokens
	event := s.event(domain.AuthAuthenticated)
	s.mu.Unlock()

	s.rewrite(ctx, domain.StoredSession{User: &u, Tokens: &tokens})

	event.Type = domain.AuthEventUserUpdated
	s.publish(ctx, event)
	return nil
}

// ReplaceTokens implements domain.AuthSession. Used by the refresh flow only.
func (s *AuthSessionImpl) ReplaceTokens(ctx context.Context, tokens *domain.TokenPair) error {
	if tokens == nil || tokens.Access == "" {
		return domain.ErrInvalidSession
	}
	t := *tokens

	s.mu.Lock()
	if s.state != domain.AuthAuthenticated {
		s.mu.Unlock()
		return domain.ErrNotAuthenticated
	}
	if t.Refresh == "" {
		t.Refresh = s.tokens.Refresh
	}
	s.tokens = &t
	user := *s.user
	event := s.event(domain.AuthAuthenticated)
	s.mu.Unlock()

	s.rewrite(ctx, domain.StoredSession{User: &user, Tokens: &t})

	event.Type = domain.AuthEventTokensRefreshed
	s.publish(ctx, event)
	return nil
}

// SetError implements domain.AuthSession. It never changes the auth state.
func (s *AuthSessionImpl) SetError(msg *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg == nil {
		s.lastError = nil
		return
	}
	m := *msg
	s.lastError = &m
}

// Error implements domain.AuthSession
func (s *AuthSessionImpl) Error() *string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError == nil {
		return nil
	}
	m := *s.lastError
	return &m
}

// Authenticate implements domain.AuthSession: credentials login followed by Login
func (s *AuthSessionImpl) Authenticate(ctx context.Context, creds domain.Credentials, remember bool) (*domain.User, error) {
	result, err := s.identity.Login(ctx, creds)
	if err != nil {
		msg := domain.UserMessage(err)
		s.SetError(&msg)
		s.logAudit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, 0).
			WithMetadata("username", creds.Username).
			WithError(err))
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := s.Login(ctx, result.User, &result.Tokens, remember); err != nil {
		return nil, err
	}
	return result.User, nil
}

// Register implements domain.AuthSession. It does not sign the user in.
func (s *AuthSessionImpl) Register(ctx context.Context, form domain.RegistrationForm) (*domain.User, error) {
	user, err := s.identity.Register(ctx, form)
	if err != nil {
		msg := domain.UserMessage(err)
		s.SetError(&msg)
		return nil, fmt.Errorf("register: %w", err)
	}
	s.SetError(nil)
	return user, nil
}

// RefreshTokens implements domain.AuthSession. A failed refresh is surfaced
// through the session error and never logs the user out.
func (s *AuthSessionImpl) RefreshTokens(ctx context.Context) error {
	s.mu.RLock()
	if s.state != domain.AuthAuthenticated {
		s.mu.RUnlock()
		return domain.ErrNotAuthenticated
	}
	refresh := s.tokens.Refresh
	s.mu.RUnlock()

	tokens, err := s.identity.RefreshToken(ctx, refresh)
	if err != nil {
		msg := domain.UserMessage(err)
		s.SetError(&msg)
		s.logger.Warn("token refresh failed", zap.Error(err))
		return fmt.Errorf("refresh token: %w", err)
	}
	return s.ReplaceTokens(ctx, tokens)
}

// AccessTokenExpired implements domain.AuthSession. Opaque tokens without a
// readable expiry are treated as live; the backend has the final word.
func (s *AuthSessionImpl) AccessTokenExpired(now time.Time) bool {
	token := s.AccessToken()
	if token == "" {
		return true
	}
	if s.inspector == nil {
		return false
	}
	exp, err := s.inspector.ExpiresAt(token)
	if err != nil {
		s.logger.Debug("access token expiry unknown", zap.Error(err))
		return false
	}
	return !now.Before(exp)
}

// setAuthenticated and setAnonymous keep IsAuthenticated == (user && tokens). Callers hold mu.
func (s *AuthSessionImpl) setAuthenticated(user *domain.User, tokens *domain.TokenPair) {
	s.state = domain.AuthAuthenticated
	s.user = user
	s.tokens = tokens
}

func (s *AuthSessionImpl) setAnonymous() {
	s.state = domain.AuthAnonymous
	s.user = nil
	s.tokens = nil
}

// event builds the event for a transition from prev. Callers hold mu.
func (s *AuthSessionImpl) event(prev domain.AuthState) domain.AuthEvent {
	event := domain.AuthEvent{Previous: prev, Current: s.state}
	if s.state == domain.AuthAuthenticated && s.tokens != nil {
		event.AccessToken = s.tokens.Access
	}
	return event
}

func (s *AuthSessionImpl) rewrite(ctx context.Context, stored domain.StoredSession) {
	backend, ok := s.persistence.Locate(ctx)
	if !ok {
		s.logger.Warn("no persisted session to rewrite")
		return
	}
	if err := s.persistence.Rewrite(ctx, backend, stored); err != nil {
		s.logger.Warn("failed to rewrite persisted session", zap.Error(err))
	}
}

func (s *AuthSessionImpl) logAudit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("audit log failed", zap.Error(err))
	}
}

var _ domain.AuthSession = (*AuthSessionImpl)(nil)
