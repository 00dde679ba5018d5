package domain

import (
	"context"
	"time"
)

// AuthState is the lifecycle state of the authentication session
type AuthState int

const (
	AuthInitializing AuthState = iota
	AuthAnonymous
	AuthAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case AuthInitializing:
		return "initializing"
	case AuthAnonymous:
		return "anonymous"
	case AuthAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// AuthEventType names what caused an authentication state change
type AuthEventType string

const (
	AuthEventRestored        AuthEventType = "RESTORED"
	AuthEventRestoreFailed   AuthEventType = "RESTORE_FAILED"
	AuthEventLoggedIn        AuthEventType = "LOGGED_IN"
	AuthEventLoggedOut       AuthEventType = "LOGGED_OUT"
	AuthEventUserUpdated     AuthEventType = "USER_UPDATED"
	AuthEventTokensRefreshed AuthEventType = "TOKENS_REFRESHED"
)

// AuthEvent is published to session subscribers after every transition
type AuthEvent struct {
	Type        AuthEventType
	Previous    AuthState
	Current     AuthState
	AccessToken string
}

// AuthListener receives session events; ctx is the context of the call that caused them
type AuthListener func(ctx context.Context, event AuthEvent)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Session events
	UserLoginEvent        AuditEventType = "USER_LOGIN"
	UserLoginFailureEvent AuditEventType = "USER_LOGIN_FAILED"
	UserLogoutEvent       AuditEventType = "USER_LOGOUT"
	SessionRestoredEvent  AuditEventType = "SESSION_RESTORED"

	// Cart events
	CartMutationFailureEvent AuditEventType = "CART_MUTATION_FAILED"

	// Checkout events
	CheckoutOTPRequestEvent         AuditEventType = "CHECKOUT_OTP_REQUESTED"
	CheckoutOTPVerifyEvent          AuditEventType = "CHECKOUT_OTP_VERIFIED"
	CheckoutOrderPlacedEvent        AuditEventType = "CHECKOUT_ORDER_PLACED"
	CheckoutOrderFailureEvent       AuditEventType = "CHECKOUT_ORDER_FAILED"
	CheckoutVerificationLapsedEvent AuditEventType = "CHECKOUT_VERIFICATION_LAPSED"
)

// AuditEvent represents something worth an operator's attention
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	UserID    uint                   `json:"user_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger defines operations for audit logging
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType, userID uint) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}
