package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/mocks"
)

type eventRecorder struct {
	events []domain.AuthEvent
}

func (r *eventRecorder) listen(ctx context.Context, event domain.AuthEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []domain.AuthEventType {
	out := make([]domain.AuthEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func assertConsistent(t *testing.T, s *AuthSessionImpl) {
	t.Helper()
	snap := s.Snapshot()
	assert.Equal(t, snap.IsAuthenticated, snap.User != nil && snap.Tokens != nil,
		"IsAuthenticated must mirror presence of user and tokens")
}

func TestAuthSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	session, audit := newTestSession(t, nil)
	rec := &eventRecorder{}
	session.Subscribe(rec.listen)

	assert.Equal(t, domain.AuthInitializing, session.State())
	assertConsistent(t, session)

	assert.False(t, session.Restore(ctx))
	assert.Equal(t, domain.AuthAnonymous, session.State())
	assert.Empty(t, session.AccessToken())
	assertConsistent(t, session)

	require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), true))
	assert.Equal(t, domain.AuthAuthenticated, session.State())
	assert.Equal(t, "access-token", session.AccessToken())
	assertConsistent(t, session)

	session.Logout(ctx)
	assert.Equal(t, domain.AuthAnonymous, session.State())
	assert.Empty(t, session.AccessToken())
	assertConsistent(t, session)

	want := []domain.AuthEventType{domain.AuthEventRestoreFailed, domain.AuthEventLoggedIn, domain.AuthEventLoggedOut}
	if diff := cmp.Diff(want, rec.types()); diff != "" {
		t.Errorf("event types mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "access-token", rec.events[1].AccessToken)
	assert.Empty(t, rec.events[2].AccessToken)

	assert.Equal(t, []domain.AuditEventType{domain.UserLoginEvent, domain.UserLogoutEvent}, audit.EventTypes())
}

func TestAuthSession_LoginRejectsPartialSession(t *testing.T) {
	tests := []struct {
		name   string
		user   *domain.User
		tokens *domain.TokenPair
	}{
		{name: "nil user", user: nil, tokens: &domain.TokenPair{Access: "a"}},
		{name: "nil tokens", user: &domain.User{ID: 1}, tokens: nil},
		{name: "empty access token", user: &domain.User{ID: 1}, tokens: &domain.TokenPair{Refresh: "r"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, _ := newTestSession(t, nil)
			session.Restore(context.Background())

			err := session.Login(context.Background(), tt.user, tt.tokens, true)
			assert.ErrorIs(t, err, domain.ErrInvalidSession)
			assert.Equal(t, domain.AuthAnonymous, session.State())
			assertConsistent(t, session)
		})
	}
}

func TestAuthSession_RestoreAcrossInstances(t *testing.T) {
	ctx := context.Background()
	persistence, _, _ := newTestPersistence(t)
	newSession := func() *AuthSessionImpl {
		return NewAuthSession(persistence, mocks.NewMockIdentityAPI(), nil, nil, zaptest.NewLogger(t))
	}

	first := newSession()
	first.Restore(ctx)
	require.NoError(t, first.Login(ctx, createTestUser(t), createTestTokens(t), true))

	second := newSession()
	rec := &eventRecorder{}
	second.Subscribe(rec.listen)
	assert.True(t, second.Restore(ctx))
	assert.Equal(t, "ana", second.Snapshot().User.Username)
	assert.Equal(t, []domain.AuthEventType{domain.AuthEventRestored}, rec.types())

	second.Logout(ctx)
	third := newSession()
	assert.False(t, third.Restore(ctx))
}

func TestAuthSession_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, nil)
	require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), false))

	snap := session.Snapshot()
	snap.User.Username = "mallory"
	snap.Tokens.Access = "forged"

	assert.Equal(t, "ana", session.Snapshot().User.Username)
	assert.Equal(t, "access-token", session.AccessToken())
}

func TestAuthSession_UpdateUserRewritesBackingStore(t *testing.T) {
	for _, remember := range []bool{true, false} {
		name := "ephemeral"
		if remember {
			name = "durable"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			persistence, _, _ := newTestPersistence(t)
			session := NewAuthSession(persistence, mocks.NewMockIdentityAPI(), nil, nil, zaptest.NewLogger(t))
			require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), remember))
			before, _ := persistence.Locate(ctx)

			updated := createTestUser(t)
			updated.PhoneNumber = strPtr("+15559999")
			require.NoError(t, session.UpdateUser(ctx, updated))

			after, ok := persistence.Locate(ctx)
			require.True(t, ok)
			assert.Equal(t, before, after)

			stored, ok := persistence.Restore(ctx)
			require.True(t, ok)
			assert.Equal(t, "+15559999", stored.User.Phone())
			assert.Equal(t, "access-token", stored.Tokens.Access)
			assert.Equal(t, "+15559999", session.Snapshot().User.Phone())
		})
	}
}

func TestAuthSession_UpdatesRequireAuthentication(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, nil)
	session.Restore(ctx)

	assert.ErrorIs(t, session.UpdateUser(ctx, createTestUser(t)), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, session.ReplaceTokens(ctx, createTestTokens(t)), domain.ErrNotAuthenticated)
	assert.ErrorIs(t, session.RefreshTokens(ctx), domain.ErrNotAuthenticated)
	assertConsistent(t, session)
}

func TestAuthSession_Authenticate(t *testing.T) {
	tests := []struct {
		name      string
		loginErr  error
		wantState domain.AuthState
		wantError *string
	}{
		{
			name:      "success clears previous error",
			wantState: domain.AuthAuthenticated,
		},
		{
			name:      "bad credentials keep session anonymous",
			loginErr:  &domain.APIError{Status: 401, Message: "Invalid credentials"},
			wantState: domain.AuthAnonymous,
			wantError: strPtr("Invalid credentials"),
		},
		{
			name:      "network failure shows generic message",
			loginErr:  &domain.APIError{Message: domain.GenericErrorMessage, Err: errors.New("dial tcp: refused")},
			wantState: domain.AuthAnonymous,
			wantError: strPtr(domain.GenericErrorMessage),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			identity := mocks.NewMockIdentityAPI()
			if tt.loginErr != nil {
				identity.LoginFunc = func(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
					return nil, tt.loginErr
				}
			}
			session, audit := newTestSession(t, identity)
			session.Restore(ctx)
			session.SetError(strPtr("stale"))

			user, err := session.Authenticate(ctx, domain.Credentials{Username: "ana", Password: "pw"}, true)

			assert.Equal(t, tt.wantState, session.State())
			assert.Equal(t, tt.wantError, session.Error())
			if tt.loginErr != nil {
				require.Error(t, err)
				assert.Nil(t, user)
				assert.Contains(t, audit.EventTypes(), domain.UserLoginFailureEvent)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ana", user.Username)
			}
		})
	}
}

func TestAuthSession_SetErrorKeepsState(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, nil)
	require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), true))

	session.SetError(strPtr("Something broke"))
	assert.Equal(t, domain.AuthAuthenticated, session.State())
	assert.Equal(t, "Something broke", *session.Error())

	session.SetError(nil)
	assert.Nil(t, session.Error())
}

func TestAuthSession_Register(t *testing.T) {
	ctx := context.Background()
	identity := mocks.NewMockIdentityAPI()
	session, _ := newTestSession(t, identity)
	session.Restore(ctx)

	user, err := session.Register(ctx, domain.RegistrationForm{Username: "bo", Email: "bo@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bo", user.Username)
	assert.Equal(t, domain.AuthAnonymous, session.State())

	identity.RegisterFunc = func(ctx context.Context, form domain.RegistrationForm) (*domain.User, error) {
		return nil, &domain.APIError{Status: 400, Message: "A user with that username already exists."}
	}
	_, err = session.Register(ctx, domain.RegistrationForm{Username: "bo"})
	require.Error(t, err)
	assert.Equal(t, "A user with that username already exists.", *session.Error())
}

func TestAuthSession_RefreshTokens(t *testing.T) {
	t.Run("keeps refresh token when not rotated", func(t *testing.T) {
		ctx := context.Background()
		session, _ := newTestSession(t, nil)
		rec := &eventRecorder{}
		session.Subscribe(rec.listen)
		require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), true))

		require.NoError(t, session.RefreshTokens(ctx))

		snap := session.Snapshot()
		assert.Equal(t, "mock_refreshed_access_token", snap.Tokens.Access)
		assert.Equal(t, "refresh-token", snap.Tokens.Refresh)
		assert.Equal(t, domain.AuthEventTokensRefreshed, rec.events[len(rec.events)-1].Type)
	})

	t.Run("failure never logs out", func(t *testing.T) {
		ctx := context.Background()
		identity := mocks.NewMockIdentityAPI()
		identity.RefreshTokenFunc = func(ctx context.Context, refresh string) (*domain.TokenPair, error) {
			return nil, &domain.APIError{Status: 401, Message: "Token is invalid or expired"}
		}
		session, _ := newTestSession(t, identity)
		require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), true))

		err := session.RefreshTokens(ctx)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Equal(t, domain.AuthAuthenticated, session.State())
		assert.Equal(t, "access-token", session.AccessToken())
		assert.Equal(t, "Token is invalid or expired", *session.Error())
	})
}

func TestAuthSession_AccessTokenExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt func(token string) (time.Time, error)
		loggedIn  bool
		want      bool
	}{
		{name: "anonymous", want: true},
		{name: "live token", loggedIn: true, expiresAt: func(string) (time.Time, error) { return now.Add(time.Minute), nil }},
		{name: "expired token", loggedIn: true, want: true, expiresAt: func(string) (time.Time, error) { return now.Add(-time.Minute), nil }},
		{name: "opaque token", loggedIn: true, expiresAt: func(string) (time.Time, error) { return time.Time{}, errors.New("not a jwt") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			inspector := mocks.NewMockTokenInspector()
			inspector.ExpiresAtFunc = tt.expiresAt
			persistence, _, _ := newTestPersistence(t)
			session := NewAuthSession(persistence, mocks.NewMockIdentityAPI(), inspector, nil, zaptest.NewLogger(t))
			session.Restore(ctx)
			if tt.loggedIn {
				require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), false))
			}

			assert.Equal(t, tt.want, session.AccessTokenExpired(now))
		})
	}
}

func TestAuthSession_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	session, _ := newTestSession(t, nil)
	first, second := &eventRecorder{}, &eventRecorder{}
	unsubscribe := session.Subscribe(first.listen)
	session.Subscribe(second.listen)

	session.Restore(ctx)
	unsubscribe()
	require.NoError(t, session.Login(ctx, createTestUser(t), createTestTokens(t), true))

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)
}
