package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/internal/domain"
	"github.com/superpoupe/backend/internal/usecase"
)

const (
	serviceName    = "superpoupe-backend"
	serviceVersion = "1.0.0"
)

// Services groups the use cases the HTTP layer exposes
type Services struct {
	Catalog    *usecase.CatalogService
	Cart       *usecase.CartService
	Comparison *usecase.ComparisonService
	Imports    *usecase.ImportService
	Jobs       *usecase.ImportJobs
	Discovery  *usecase.DiscoveryService
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog    *usecase.CatalogService
	cart       *usecase.CartService
	comparison *usecase.ComparisonService
	imports    *usecase.ImportService
	jobs       *usecase.ImportJobs
	discovery  *usecase.DiscoveryService
	logger     zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog:    services.Catalog,
		cart:       services.Cart,
		comparison: services.Comparison,
		imports:    services.Imports,
		jobs:       services.Jobs,
		discovery:  services.Discovery,
		logger:     logger.With().Str("component", "http").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ListStores returns the supported retailers
func (h *Handler) ListStores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stores": domain.Stores})
}

// ListCategories returns the catalog sections
func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": domain.Categories})
}

// SearchProducts handles catalog queries: GET /products?q=&category=&store=
func (h *Handler) SearchProducts(c *gin.Context) {
	var filter domain.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.respondError(c, domain.ErrInvalidRequest)
		return
	}

	products, err := h.catalog.Search(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// CountProducts returns the catalog size
func (h *Handler) CountProducts(c *gin.Context) {
	n, err := h.catalog.Count(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// GetProduct returns one product by id
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CompareProduct lists the same product in the other stores, cheapest first
func (h *Handler) CompareProduct(c *gin.Context) {
	comparison, err := h.comparison.Compare(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// GetCart returns the session cart
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.cart.Get(c.Request.Context(), c.Param("session"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

// AddCartItem puts a product in the cart
func (h *Handler) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.ErrInvalidRequest)
		return
	}

	cart, err := h.cart.Add(c.Request.Context(), c.Param("session"), req.ProductID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// RemoveCartItem drops a product from the cart
func (h *Handler) RemoveCartItem(c *gin.Context) {
	cart, err := h.cart.Remove(c.Request.Context(), c.Param("session"), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ToggleCartItem flips the checked flag of a cart item
func (h *Handler) ToggleCartItem(c *gin.Context) {
	cart, err := h.cart.Toggle(c.Request.Context(), c.Param("session"), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart empties the session cart
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), c.Param("session")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StartImport launches a background import and answers 202 with its job id
func (h *Handler) StartImport(c *gin.Context) {
	req, ok := h.bindImportRequest(c)
	if !ok {
		return
	}

	id, err := h.jobs.Start(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Location", "/api/v1/admin/imports/"+id)
	c.JSON(http.StatusAccepted, gin.H{"jobId": id})
}

// PreviewImport parses a listing without writing anything
func (h *Handler) PreviewImport(c *gin.Context) {
	req, ok := h.bindImportRequest(c)
	if !ok {
		return
	}

	result, err := h.imports.Preview(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	products := result.Products
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{
		"found":    len(products),
		"anchors":  result.Anchors,
		"skipped":  result.Skipped,
		"rejected": result.Rejected,
		"products": products,
	})
}

// GetImport returns the state of an import job
func (h *Handler) GetImport(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelImport stops an import at its next batch boundary
func (h *Handler) CancelImport(c *gin.Context) {
	id := c.Param("id")
	if err := h.jobs.Cancel(id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": id, "cancelling": true})
}

// Cleanup re-sanitizes every product name in the catalog
func (h *Handler) Cleanup(c *gin.Context) {
	summary, err := h.catalog.Cleanup(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Discover asks the grounding service for a store section or product
func (h *Handler) Discover(c *gin.Context) {
	var req usecase.DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.ErrInvalidRequest)
		return
	}

	result, err := h.discovery.Discover(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) bindImportRequest(c *gin.Context) (usecase.ImportRequest, bool) {
	var req usecase.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.ErrInvalidRequest)
		return req, false
	}
	if strings.TrimSpace(req.Text) == "" {
		h.respondError(c, domain.ErrEmptyInput)
		return req, false
	}
	if req.Store != "" {
		if _, ok := domain.ParseStoreID(string(req.Store)); !ok {
			h.respondError(c, domain.ErrInvalidStore)
			return req, false
		}
	}
	return req, true
}

// respondError maps domain errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidStore),
		errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNothingFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGroundingFailure):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrGroundingDisabled),
		errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
