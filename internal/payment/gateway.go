package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionState is the gateway-side payment state machine.
type SessionState string

const (
	StateAwaitingCardInfo SessionState = "awaiting_card_info"
	StateAwaitingOTP      SessionState = "awaiting_otp"
	StateProcessing       SessionState = "processing"
	StateSucceeded        SessionState = "succeeded"
	StateFailed           SessionState = "failed"
)

// Outcome is the terminal result of a payment attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

var (
	ErrSessionNotFound = errors.New("payment session not found")
	ErrInvalidState    = errors.New("operation not valid in current session state")
	ErrInvalidCard     = errors.New("invalid card details")
	ErrCardExpired     = errors.New("card has expired")
	ErrInvalidOTP      = errors.New("OTP must be a 6-digit code")
	ErrOTPExpired      = errors.New("OTP validity window has elapsed")
)

// Session is one payment attempt for an order.
type Session struct {
	ID           uuid.UUID    `json:"id"`
	OrderID      uuid.UUID    `json:"order_id"`
	Amount       int64        `json:"amount"`
	State        SessionState `json:"state"`
	OTPExpiresAt time.Time    `json:"otp_expires_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// CardInfo is the card form payload. Only the format is ever checked; no
// issuer is contacted.
type CardInfo struct {
	Number     string `json:"number"`
	HolderName string `json:"holder_name"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
}

// Gateway is the payment-provider capability behind checkout. The simulated
// VNPay implementation below is one provider; a real integration is another.
// Callers must not depend on provider-specific timing or outcome rates.
type Gateway interface {
	// Initiate opens a payment session for an order in AwaitingCardInfo.
	Initiate(ctx context.Context, orderID uuid.UUID, amount int64) (*Session, error)
	// SubmitCard validates card format and advances to AwaitingOTP, issuing
	// an OTP with a fixed validity window.
	SubmitCard(ctx context.Context, sessionID uuid.UUID, card CardInfo) (*Session, error)
	// ResendOTP issues a fresh OTP with a new validity window. Allowed after
	// the previous window elapsed; never fails the session.
	ResendOTP(ctx context.Context, sessionID uuid.UUID) (*Session, error)
	// SubmitOTP verifies the code format, runs the processing delay and
	// returns the outcome. Cancelling ctx aborts processing and returns the
	// session to AwaitingOTP.
	SubmitOTP(ctx context.Context, sessionID uuid.UUID, code string) (Outcome, *Session, error)
	// Find returns a session by id.
	Find(ctx context.Context, sessionID uuid.UUID) (*Session, error)
}
