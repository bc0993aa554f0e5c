package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"techstore-api/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tune the simulated gateway. The defaults mimic a provider that
// approves almost every well-formed payment after a short delay.
type Options struct {
	SuccessRate     float64
	ProcessingDelay time.Duration
	OTPValidity     time.Duration
	// SessionRetention is how long a settled session stays readable before it
	// is evicted from memory.
	SessionRetention time.Duration
	// Rand supplies the outcome draw; inject a seeded source in tests.
	Rand *rand.Rand
}

// vnpayGateway simulates VNPay's redirect flow: card entry, OTP entry, then a
// randomized settle. Sessions live in memory; nothing here talks to a real
// provider.
type vnpayGateway struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	opts     Options
}

// session is the internal record; the exported Session is a snapshot of it.
type session struct {
	Session
	otpCode string
}

// NewVNPayGateway creates the simulated gateway.
func NewVNPayGateway(opts Options) Gateway {
	if opts.SuccessRate <= 0 || opts.SuccessRate > 1 {
		opts.SuccessRate = 0.98
	}
	if opts.ProcessingDelay <= 0 {
		opts.ProcessingDelay = 3 * time.Second
	}
	if opts.OTPValidity <= 0 {
		opts.OTPValidity = 120 * time.Second
	}
	if opts.SessionRetention <= 0 {
		opts.SessionRetention = 10 * time.Minute
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &vnpayGateway{
		sessions: make(map[uuid.UUID]*session),
		opts:     opts,
	}
}

func (g *vnpayGateway) Initiate(ctx context.Context, orderID uuid.UUID, amount int64) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := &session{
		Session: Session{
			ID:        uuid.New(),
			OrderID:   orderID,
			Amount:    amount,
			State:     StateAwaitingCardInfo,
			CreatedAt: time.Now(),
		},
	}
	g.sessions[s.ID] = s

	logger.FromCtx(ctx).Info("Payment session initiated",
		zap.String("session_id", s.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.Int64("amount", amount),
	)

	snapshot := s.Session
	return &snapshot, nil
}

func (g *vnpayGateway) SubmitCard(ctx context.Context, sessionID uuid.UUID, card CardInfo) (*Session, error) {
	if err := validateCard(card, time.Now()); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.State != StateAwaitingCardInfo {
		return nil, ErrInvalidState
	}

	s.State = StateAwaitingOTP
	s.otpCode = g.newOTP()
	s.OTPExpiresAt = time.Now().Add(g.opts.OTPValidity)

	logger.FromCtx(ctx).Info("Card accepted, OTP issued",
		zap.String("session_id", sessionID.String()),
		zap.Time("otp_expires_at", s.OTPExpiresAt),
	)

	snapshot := s.Session
	return &snapshot, nil
}

func (g *vnpayGateway) ResendOTP(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.State != StateAwaitingOTP {
		return nil, ErrInvalidState
	}

	s.otpCode = g.newOTP()
	s.OTPExpiresAt = time.Now().Add(g.opts.OTPValidity)

	logger.FromCtx(ctx).Info("OTP resent", zap.String("session_id", sessionID.String()))

	snapshot := s.Session
	return &snapshot, nil
}

func (g *vnpayGateway) SubmitOTP(ctx context.Context, sessionID uuid.UUID, code string) (Outcome, *Session, error) {
	if !isDigits(code) || len(code) != 6 {
		return "", nil, ErrInvalidOTP
	}

	g.mu.Lock()
	s, ok := g.sessions[sessionID]
	if !ok {
		g.mu.Unlock()
		return "", nil, ErrSessionNotFound
	}
	if s.State != StateAwaitingOTP {
		g.mu.Unlock()
		return "", nil, ErrInvalidState
	}
	if time.Now().After(s.OTPExpiresAt) {
		// An elapsed window only blocks this code; the caller may resend.
		g.mu.Unlock()
		return "", nil, ErrOTPExpired
	}

	// Any well-formed code is accepted; the outcome is drawn up front so the
	// delay below is pure simulation.
	s.State = StateProcessing
	succeeded := g.opts.Rand.Float64() < g.opts.SuccessRate
	delay := g.opts.ProcessingDelay
	g.mu.Unlock()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		// The caller navigated away; put the session back so a retry does
		// not have to restart from the card form.
		g.mu.Lock()
		s.State = StateAwaitingOTP
		snapshot := s.Session
		g.mu.Unlock()
		return "", &snapshot, ctx.Err()
	case <-timer.C:
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	outcome := OutcomeFailed
	if succeeded {
		outcome = OutcomeSucceeded
		s.State = StateSucceeded
	} else {
		s.State = StateFailed
	}

	// Settled sessions stay readable for a grace period, then leave memory so
	// the map does not grow with every payment attempt.
	time.AfterFunc(g.opts.SessionRetention, func() { g.evictSettled(sessionID) })

	logger.FromCtx(ctx).Info("Payment processed",
		zap.String("session_id", sessionID.String()),
		zap.String("order_id", s.OrderID.String()),
		zap.String("outcome", string(outcome)),
	)

	snapshot := s.Session
	return outcome, &snapshot, nil
}

func (g *vnpayGateway) Find(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	snapshot := s.Session
	return &snapshot, nil
}

func (g *vnpayGateway) evictSettled(sessionID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.sessions[sessionID]
	if !ok {
		return
	}
	if s.State == StateSucceeded || s.State == StateFailed {
		delete(g.sessions, sessionID)
	}
}

func (g *vnpayGateway) newOTP() string {
	return fmt.Sprintf("%06d", g.opts.Rand.Intn(1000000))
}

// validateCard checks format only: 16-digit number, MM/YY expiry in the
// future, 3-digit CVV.
func validateCard(card CardInfo, now time.Time) error {
	if !isDigits(card.Number) || len(card.Number) != 16 {
		return ErrInvalidCard
	}
	if !isDigits(card.CVV) || len(card.CVV) != 3 {
		return ErrInvalidCard
	}
	if card.HolderName == "" {
		return ErrInvalidCard
	}

	if len(card.Expiry) != 5 || card.Expiry[2] != '/' {
		return ErrInvalidCard
	}
	month, err := strconv.Atoi(card.Expiry[:2])
	if err != nil || month < 1 || month > 12 {
		return ErrInvalidCard
	}
	year, err := strconv.Atoi(card.Expiry[3:])
	if err != nil {
		return ErrInvalidCard
	}
	year += 2000

	// The card is valid through the last moment of its expiry month.
	expiresAfter := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.Before(expiresAfter) {
		return ErrCardExpired
	}

	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
