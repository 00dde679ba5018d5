package domain

// CheckoutState is the position of a checkout attempt in the OTP pipeline
type CheckoutState int

const (
	CheckoutSelectingAddress CheckoutState = iota
	CheckoutOTPRequested
	CheckoutOTPVerified
	CheckoutOrderPlaced
	CheckoutAbandoned
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutSelectingAddress:
		return "selecting_address"
	case CheckoutOTPRequested:
		return "otp_requested"
	case CheckoutOTPVerified:
		return "otp_verified"
	case CheckoutOrderPlaced:
		return "order_placed"
	case CheckoutAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are allowed
func (s CheckoutState) Terminal() bool {
	return s == CheckoutOrderPlaced || s == CheckoutAbandoned
}

// CheckoutHandoff is what the OTP step passes forward to order placement
type CheckoutHandoff struct {
	AddressID      uint
	ContactPhone   string
	IdempotencyKey string
}

// DefaultAddress picks the address flagged as default, else the first one
func DefaultAddress(addresses []Address) *Address {
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		if addresses[i].IsDefault {
			return &addresses[i]
		}
	}
	return &addresses[0]
}
