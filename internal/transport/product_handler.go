package transport

import (
	"net/http"
	"strconv"

	"techstore-api/internal/middleware"
	"techstore-api/internal/repository"
	"techstore-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents the admin create/update payload
type ProductRequest struct {
	Name          string `json:"name" validate:"required"`
	Code          string `json:"code" validate:"required"`
	Price         int64  `json:"price" validate:"gte=0"`
	OriginalPrice *int64 `json:"original_price"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	BrandID       string `json:"brand_id" validate:"required,uuid"`
	CategoryID    string `json:"category_id" validate:"required,uuid"`
}

// ImageRequest represents the image create/update payload
type ImageRequest struct {
	ImageURL     string `json:"image_url" validate:"required,url"`
	IsPrimary    bool   `json:"is_primary"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// SpecificationRequest represents the specification create/update payload
type SpecificationRequest struct {
	Name         string `json:"spec_name" validate:"required"`
	Value        string `json:"spec_value" validate:"required"`
	DisplayOrder int    `json:"display_order" validate:"gte=0"`
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalogService service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		// Public routes
		r.Get("/", h.List)
		r.Get("/{id}", h.Detail)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Put("/{id}/toggle-status", h.ToggleStatus)
			r.Delete("/{id}", h.Delete)

			r.Post("/{id}/images", h.AddImage)
			r.Put("/{id}/images/{imageID}", h.UpdateImage)
			r.Delete("/{id}/images/{imageID}", h.DeleteImage)

			r.Post("/{id}/specifications", h.AddSpecification)
			r.Put("/{id}/specifications/{specID}", h.UpdateSpecification)
			r.Delete("/{id}/specifications/{specID}", h.DeleteSpecification)
		})
	})
}

// List handles GET /api/products with filtering, sorting and pagination
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, pagination, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithPage(w, http.StatusOK, items, pagination)
}

// Detail handles GET /api/products/{id}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	detail, err := h.catalogService.GetProductDetail(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product detail", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, detail)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), *in)
	if err != nil {
		if err == repository.ErrProductCodeTaken {
			middleware.RespondWithError(w, http.StatusConflict, "product code already in use")
			return
		}
		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithData(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	in, ok := h.decodeProductRequest(w, r)
	if !ok {
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), id, *in)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to update product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product)
}

// ToggleStatus handles PUT /api/products/{id}/toggle-status
func (h *ProductHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	isActive, err := h.catalogService.ToggleStatus(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to toggle product status", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to toggle product status")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, map[string]bool{"is_active": isActive})
}

// Delete handles DELETE /api/products/{id}; products are deactivated, not removed
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), id); err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to delete product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "product deleted")
}

// AddImage handles POST /api/products/{id}/images
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req ImageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	image, err := h.catalogService.AddImage(r.Context(), id, service.ImageInput{
		ImageURL:     req.ImageURL,
		IsPrimary:    req.IsPrimary,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to add product image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add image")
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, image)
}

// UpdateImage handles PUT /api/products/{id}/images/{imageID}
func (h *ProductHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	productID, imageID, ok := h.parseChildIDs(w, r, "imageID")
	if !ok {
		return
	}

	var req ImageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.catalogService.UpdateImage(r.Context(), productID, imageID, service.ImageInput{
		ImageURL:     req.ImageURL,
		IsPrimary:    req.IsPrimary,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if err == repository.ErrImageNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("Failed to update product image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update image")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "image updated")
}

// DeleteImage handles DELETE /api/products/{id}/images/{imageID}
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	productID, imageID, ok := h.parseChildIDs(w, r, "imageID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteImage(r.Context(), productID, imageID); err != nil {
		if err == repository.ErrImageNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("Failed to delete product image", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete image")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "image deleted")
}

// AddSpecification handles POST /api/products/{id}/specifications
func (h *ProductHandler) AddSpecification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req SpecificationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	spec, err := h.catalogService.AddSpecification(r.Context(), id, service.SpecificationInput{
		Name:         req.Name,
		Value:        req.Value,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to add specification", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add specification")
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, spec)
}

// UpdateSpecification handles PUT /api/products/{id}/specifications/{specID}
func (h *ProductHandler) UpdateSpecification(w http.ResponseWriter, r *http.Request) {
	productID, specID, ok := h.parseChildIDs(w, r, "specID")
	if !ok {
		return
	}

	var req SpecificationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.catalogService.UpdateSpecification(r.Context(), productID, specID, service.SpecificationInput{
		Name:         req.Name,
		Value:        req.Value,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		if err == repository.ErrSpecificationNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "specification not found")
			return
		}
		h.logger.Error("Failed to update specification", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update specification")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "specification updated")
}

// DeleteSpecification handles DELETE /api/products/{id}/specifications/{specID}
func (h *ProductHandler) DeleteSpecification(w http.ResponseWriter, r *http.Request) {
	productID, specID, ok := h.parseChildIDs(w, r, "specID")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteSpecification(r.Context(), productID, specID); err != nil {
		if err == repository.ErrSpecificationNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "specification not found")
			return
		}
		h.logger.Error("Failed to delete specification", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete specification")
		return
	}

	middleware.RespondWithMessage(w, http.StatusOK, "specification deleted")
}

func (h *ProductHandler) decodeProductRequest(w http.ResponseWriter, r *http.Request) (*service.ProductInput, bool) {
	var req ProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return nil, false
	}

	brandID, err := uuid.Parse(req.BrandID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid brand id")
		return nil, false
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
		return nil, false
	}

	return &service.ProductInput{
		Name:          req.Name,
		Code:          req.Code,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		StockQuantity: req.StockQuantity,
		BrandID:       brandID,
		CategoryID:    categoryID,
	}, true
}

func (h *ProductHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
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

func (h *ProductHandler) parseChildIDs(w http.ResponseWriter, r *http.Request, childParam string) (uuid.UUID, uuid.UUID, bool) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, uuid.Nil, false
	}
	childID, err := uuid.Parse(chi.URLParam(r, childParam))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, uuid.Nil, false
	}
	return productID, childID, true
}

// parseProductFilter maps the listing query string onto a repository filter.
func parseProductFilter(r *http.Request) (repository.ProductFilter, error) {
	q := r.URL.Query()
	filter := repository.ProductFilter{
		Search:    q.Get("search"),
		SortBy:    q.Get("sort_by"),
		SortOrder: repository.SortOrder(q.Get("sort_order")),
	}

	if v := q.Get("brand_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errInvalidFilter("brand_id")
		}
		filter.BrandID = &id
	}
	if v := q.Get("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, errInvalidFilter("category_id")
		}
		filter.CategoryID = &id
	}
	if v := q.Get("min_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			return filter, errInvalidFilter("min_price")
		}
		filter.MinPrice = &p
	}
	if v := q.Get("max_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			return filter, errInvalidFilter("max_price")
		}
		filter.MaxPrice = &p
	}
	if v := q.Get("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errInvalidFilter("is_active")
		}
		filter.ActiveOnly = active
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return filter, errInvalidFilter("page")
		}
		filter.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return filter, errInvalidFilter("limit")
		}
		filter.PageSize = limit
	}

	return filter, nil
}

type filterError string

func (e filterError) Error() string { return "invalid query parameter: " + string(e) }

func errInvalidFilter(param string) error { return filterError(param) }
