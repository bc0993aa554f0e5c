package transport

import (
	"context"
	"net/http"

	"techstore-api/internal/domain"
	"techstore-api/internal/middleware"
	"techstore-api/internal/payment"
	"techstore-api/internal/repository"
	"techstore-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateSessionRequest opens a payment session for a pending order
type CreateSessionRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// SubmitCardRequest carries the card form fields
type SubmitCardRequest struct {
	Number     string `json:"number" validate:"required"`
	HolderName string `json:"holder_name" validate:"required"`
	Expiry     string `json:"expiry" validate:"required"`
	CVV        string `json:"cvv" validate:"required"`
}

// SubmitOTPRequest carries the entered OTP code
type SubmitOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

// SimulatePaymentRequest forces an order's payment result, bypassing the
// gateway flow. Admin tooling only; the payload mirrors an external callback.
type SimulatePaymentRequest struct {
	OrderID string `json:"orderId" validate:"required,uuid"`
	Status  string `json:"status" validate:"required,oneof=paid failed"`
}

// PaymentHandler handles HTTP requests for the simulated VNPay flow
type PaymentHandler struct {
	gateway      payment.Gateway
	orderService service.OrderService
	logger       *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(gateway payment.Gateway, orderService service.OrderService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		gateway:      gateway,
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/vnpay", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{id}", h.GetSession)
		r.Post("/sessions/{id}/card", h.SubmitCard)
		r.Post("/sessions/{id}/otp/resend", h.ResendOTP)
		r.Post("/sessions/{id}/otp", h.SubmitOTP)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/simulate-payment", h.SimulatePayment)
		})
	})
}

// CreateSession handles POST /api/vnpay/sessions
func (h *PaymentHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	// Only the order owner may pay it, and only while it is pending.
	order, err := h.orderService.GetOrder(r.Context(), orderID, userID, false)
	if err != nil {
		switch err {
		case repository.ErrOrderNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case service.ErrNotOrderOwner:
			middleware.RespondWithError(w, http.StatusForbidden, "order belongs to another user")
		default:
			h.logger.Error("Failed to load order for payment", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to open payment session")
		}
		return
	}
	if order.Status != domain.OrderStatusPending {
		middleware.RespondWithError(w, http.StatusConflict, "order is no longer pending")
		return
	}

	session, err := h.gateway.Initiate(r.Context(), orderID, order.Total)
	if err != nil {
		h.logger.Error("Failed to initiate payment session", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to open payment session")
		return
	}

	h.logger.Info("Payment session opened",
		zap.String("session_id", session.ID.String()),
		zap.String("order_id", orderID.String()),
	)
	middleware.RespondWithData(w, http.StatusCreated, session)
}

// GetSession handles GET /api/vnpay/sessions/{id}
func (h *PaymentHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.gateway.Find(r.Context(), sessionID)
	if err != nil {
		if err == payment.ErrSessionNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "payment session not found")
			return
		}
		h.logger.Error("Failed to find payment session", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to find payment session")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, session)
}

// SubmitCard handles POST /api/vnpay/sessions/{id}/card
func (h *PaymentHandler) SubmitCard(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req SubmitCardRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.gateway.SubmitCard(r.Context(), sessionID, payment.CardInfo{
		Number:     req.Number,
		HolderName: req.HolderName,
		Expiry:     req.Expiry,
		CVV:        req.CVV,
	})
	if err != nil {
		switch err {
		case payment.ErrSessionNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "payment session not found")
		case payment.ErrInvalidState:
			middleware.RespondWithError(w, http.StatusConflict, "session is not awaiting card info")
		case payment.ErrInvalidCard, payment.ErrCardExpired:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to submit card", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to submit card")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, session)
}

// ResendOTP handles POST /api/vnpay/sessions/{id}/otp/resend
func (h *PaymentHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.gateway.ResendOTP(r.Context(), sessionID)
	if err != nil {
		switch err {
		case payment.ErrSessionNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "payment session not found")
		case payment.ErrInvalidState:
			middleware.RespondWithError(w, http.StatusConflict, "session is not awaiting an OTP")
		default:
			h.logger.Error("Failed to resend OTP", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to resend OTP")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, session)
}

// SubmitOTP handles POST /api/vnpay/sessions/{id}/otp. On a terminal outcome
// the order is moved to paid or failed before the response is written.
func (h *PaymentHandler) SubmitOTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req SubmitOTPRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	outcome, session, err := h.gateway.SubmitOTP(r.Context(), sessionID, req.Code)
	if err != nil {
		switch err {
		case payment.ErrSessionNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "payment session not found")
		case payment.ErrInvalidState:
			middleware.RespondWithError(w, http.StatusConflict, "session is not awaiting an OTP")
		case payment.ErrInvalidOTP, payment.ErrOTPExpired:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case context.Canceled, context.DeadlineExceeded:
			// Client went away mid-processing; the session reverted to
			// awaiting the OTP and there is nobody to answer.
			return
		default:
			h.logger.Error("Failed to submit OTP", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to submit OTP")
		}
		return
	}

	// The session outcome drives the order status. Use a detached context so
	// the order update survives a client disconnect after processing ended.
	updateCtx := context.WithoutCancel(r.Context())
	var order *domain.Order
	switch outcome {
	case payment.OutcomeSucceeded:
		order, err = h.orderService.MarkPaid(updateCtx, session.OrderID)
		if err != nil {
			h.logger.Error("Failed to mark order paid after gateway success",
				zap.String("order_id", session.OrderID.String()),
				zap.Error(err),
			)
		}
	case payment.OutcomeFailed:
		order, err = h.orderService.MarkFailed(updateCtx, session.OrderID)
		if err != nil {
			h.logger.Error("Failed to mark order failed after gateway failure",
				zap.String("order_id", session.OrderID.String()),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("Payment processed",
		zap.String("session_id", session.ID.String()),
		zap.String("order_id", session.OrderID.String()),
		zap.String("outcome", string(outcome)),
	)
	// The order carries its items so a successful client can clear exactly
	// the cart lines that were bought.
	middleware.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"session": session,
		"order":   order,
	})
}

// SimulatePayment handles POST /api/vnpay/simulate-payment
func (h *PaymentHandler) SimulatePayment(w http.ResponseWriter, r *http.Request) {
	var req SimulatePaymentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var order interface{}
	if req.Status == "paid" {
		order, err = h.orderService.MarkPaid(r.Context(), orderID)
	} else {
		order, err = h.orderService.MarkFailed(r.Context(), orderID)
	}
	if err != nil {
		switch err {
		case repository.ErrOrderNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case repository.ErrOrderNotPending:
			middleware.RespondWithError(w, http.StatusConflict, "order is no longer pending")
		default:
			h.logger.Error("Failed to simulate payment", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to simulate payment")
		}
		return
	}

	h.logger.Info("Payment simulated",
		zap.String("order_id", orderID.String()),
		zap.String("status", req.Status),
	)
	middleware.RespondWithData(w, http.StatusOK, order)
}

func (h *PaymentHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
