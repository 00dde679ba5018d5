package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestUser_Phone(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want string
	}{
		{name: "nil user", user: nil, want: ""},
		{name: "no phone", user: &User{ID: 1}, want: ""},
		{name: "blank phone", user: &User{ID: 1, PhoneNumber: strPtr("  ")}, want: ""},
		{name: "trimmed phone", user: &User{ID: 1, PhoneNumber: strPtr(" +15550100 ")}, want: "+15550100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.Phone())
		})
	}
}

func TestStoredSession_Valid(t *testing.T) {
	user := &User{ID: 7, Username: "ana"}

	tests := []struct {
		name    string
		session *StoredSession
		want    bool
	}{
		{name: "nil", session: nil, want: false},
		{name: "missing user", session: &StoredSession{Tokens: &TokenPair{Access: "a"}}, want: false},
		{name: "missing tokens", session: &StoredSession{User: user}, want: false},
		{name: "empty access token", session: &StoredSession{User: user, Tokens: &TokenPair{Refresh: "r"}}, want: false},
		{name: "complete", session: &StoredSession{User: user, Tokens: &TokenPair{Access: "a", Refresh: "r"}}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Valid())
		})
	}
}

func TestDefaultAddress(t *testing.T) {
	t.Run("empty book", func(t *testing.T) {
		assert.Nil(t, DefaultAddress(nil))
	})

	t.Run("flagged default wins", func(t *testing.T) {
		addrs := []Address{{ID: 3}, {ID: 4, IsDefault: true}, {ID: 5}}
		assert.Equal(t, uint(4), DefaultAddress(addrs).ID)
	})

	t.Run("falls back to first", func(t *testing.T) {
		addrs := []Address{{ID: 3}, {ID: 4}}
		assert.Equal(t, uint(3), DefaultAddress(addrs).ID)
	})
}

func TestCheckoutState(t *testing.T) {
	terminal := map[CheckoutState]bool{
		CheckoutSelectingAddress: false,
		CheckoutOTPRequested:     false,
		CheckoutOTPVerified:      false,
		CheckoutOrderPlaced:      true,
		CheckoutAbandoned:        true,
	}
	for state, want := range terminal {
		assert.Equal(t, want, state.Terminal(), state.String())
	}
	assert.Equal(t, "unknown", CheckoutState(42).String())
	assert.Equal(t, "authenticated", AuthAuthenticated.String())
}
