package transport

import (
	"net/http"

	"techstore-api/internal/domain"
	"techstore-api/internal/middleware"
	"techstore-api/internal/repository"
	"techstore-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceOrderRequest represents the checkout submission payload
type PlaceOrderRequest struct {
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	PhoneNumber     string             `json:"phone_number" validate:"required"`
	PaymentMethod   string             `json:"payment_method" validate:"required,oneof=cod vnpay"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest is one line of a checkout submission
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// OrderHandler handles HTTP requests for order operations
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Place)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/confirm-cod", h.ConfirmCOD)
	})
}

// Place handles POST /api/orders
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PlaceOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Order validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := service.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
	}
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		in.Items = append(in.Items, service.PlaceOrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.orderService.PlaceOrder(r.Context(), userID, in)
	if err != nil {
		switch err {
		case service.ErrEmptyOrder, service.ErrInvalidQuantity,
			service.ErrEmptyAddress, service.ErrInvalidPaymentMethod:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case service.ErrInvalidPhone:
			middleware.RespondWithError(w, http.StatusBadRequest, "Số điện thoại không hợp lệ")
		case service.ErrProductUnavailable:
			middleware.RespondWithError(w, http.StatusUnprocessableEntity, "a product in the order is unavailable")
		case repository.ErrInsufficientStock:
			middleware.RespondWithError(w, http.StatusConflict, "insufficient stock for a product in the order")
		default:
			h.logger.Error("Failed to place order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	h.logger.Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total", order.Total),
	)
	middleware.RespondWithData(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())

	order, err := h.orderService.GetOrder(r.Context(), orderID, userID, role == "admin")
	if err != nil {
		switch err {
		case repository.ErrOrderNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case service.ErrNotOrderOwner:
			middleware.RespondWithError(w, http.StatusForbidden, "order belongs to another user")
		default:
			h.logger.Error("Failed to get order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, order)
}

// ConfirmCOD handles POST /api/orders/{id}/confirm-cod
func (h *OrderHandler) ConfirmCOD(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.orderService.ConfirmCashOnDelivery(r.Context(), orderID, userID)
	if err != nil {
		switch err {
		case repository.ErrOrderNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case service.ErrNotOrderOwner:
			middleware.RespondWithError(w, http.StatusForbidden, "order belongs to another user")
		case service.ErrInvalidPaymentMethod:
			middleware.RespondWithError(w, http.StatusBadRequest, "order is not cash on delivery")
		case repository.ErrOrderNotPending:
			middleware.RespondWithError(w, http.StatusConflict, "order is no longer pending")
		default:
			h.logger.Error("Failed to confirm COD order", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to confirm order")
		}
		return
	}

	h.logger.Info("COD order confirmed", zap.String("order_id", order.ID.String()))
	middleware.RespondWithData(w, http.StatusOK, order)
}
