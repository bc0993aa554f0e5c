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

// CreateHandoffRequest carries the cart selection heading into checkout
type CreateHandoffRequest struct {
	Items []HandoffItemRequest `json:"items" validate:"required,min=1,dive"`
}

// HandoffItemRequest is one selected cart line, denormalized so the checkout
// page can render without refetching the catalog.
type HandoffItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Name      string `json:"name"`
	Price     int64  `json:"price" validate:"gte=0"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// CheckoutHandler handles the cart-to-checkout handoff
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers all checkout handoff routes
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/checkout/handoff", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Consume)
	})
}

// Create handles POST /api/checkout/handoff
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateHandoffRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Handoff validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]domain.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
			return
		}
		items = append(items, domain.CheckoutItem{
			ProductID: productID,
			Name:      item.Name,
			Price:     item.Price,
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
		})
	}

	handoff, err := h.checkoutService.CreateHandoff(r.Context(), userID, items)
	if err != nil {
		switch err {
		case service.ErrEmptyHandoff, service.ErrInvalidQuantity:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to create checkout handoff", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create checkout handoff")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, handoff)
}

// Consume handles GET /api/checkout/handoff/{id}. The handoff is deleted on
// read, so a refresh of the checkout page cannot replay it.
func (h *CheckoutHandler) Consume(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid handoff id")
		return
	}

	handoff, err := h.checkoutService.ConsumeHandoff(r.Context(), id, userID)
	if err != nil {
		if err == repository.ErrHandoffNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "checkout handoff not found or already used")
			return
		}
		h.logger.Error("Failed to consume checkout handoff", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to consume checkout handoff")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, handoff)
}
