package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// GenericErrorMessage is shown when the backend body cannot be parsed
const GenericErrorMessage = "Something went wrong. Please try again."

// Session errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidSession   = errors.New("session requires both user and tokens")
)

// Storage errors
var (
	ErrStoreEntryNotFound = errors.New("store entry not found")
	ErrStoreQuotaExceeded = errors.New("store quota exceeded")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

// Cart errors
var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Checkout errors
var (
	ErrCheckoutRedirect     = errors.New("checkout requires an authenticated session and a non-empty cart")
	ErrAddressRequired      = errors.New("shipping address is required")
	ErrAddressNotFound      = errors.New("address not found")
	ErrContactPhoneRequired = errors.New("contact phone number is required")
	ErrOTPNotRequested      = errors.New("otp has not been requested for this checkout")
	ErrOTPCodeRequired      = errors.New("otp code is required")
	ErrOTPNotVerified       = errors.New("otp has not been verified for this checkout")
	ErrVerificationLapsed   = errors.New("otp verification has lapsed")
	ErrOrderAlreadyPlaced   = errors.New("order already placed for this checkout")
	ErrCheckoutClosed       = errors.New("checkout is closed")
)

// Transport errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// APIError is a failed backend call. Status is 0 when no response arrived.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend unreachable: %s", e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is maps 401 to ErrUnauthorized and 403 to ErrForbidden
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// UserMessage returns the message to show for err
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
