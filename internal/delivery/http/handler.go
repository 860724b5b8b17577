package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// RetailerSearcher runs a ranked search against a single retailer
type RetailerSearcher interface {
	SupportedRetailers() []domain.RetailerID
	SearchByRetailer(ctx context.Context, retailer domain.RetailerID, query string, limit int) (*domain.SearchResult, error)
}

// Comparer compares items across retailers
type Comparer interface {
	CompareItem(ctx context.Context, query string, retailers []domain.RetailerID, limit int) (*domain.CompareItemResponse, error)
	CompareList(ctx context.Context, items []string, retailers []domain.RetailerID, limit int) (*domain.CompareListResponse, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search  RetailerSearcher
	compare Comparer
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(search RetailerSearcher, compare Comparer, logger zerolog.Logger) *Handler {
	return &Handler{
		search:  search,
		compare: compare,
		logger:  logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
	})
}

// ListRetailers returns the retailers this instance searches
func (h *Handler) ListRetailers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"retailers": h.search.SupportedRetailers()})
}

// CompareItem handles POST /retailers/item
func (h *Handler) CompareItem(c *gin.Context) {
	var req domain.ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.compare.CompareItem(c.Request.Context(), req.Query, req.Retailers, req.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CompareList handles POST /retailers/list
func (h *Handler) CompareList(c *gin.Context) {
	var req domain.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp, err := h.compare.CompareList(c.Request.Context(), req.Items, req.Retailers, req.Limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchRetailer handles GET /retailers/:retailer/search?q=&limit=
func (h *Handler) SearchRetailer(c *gin.Context) {
	retailer := domain.RetailerID(c.Param("retailer"))

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 50"})
			return
		}
		limit = n
	}

	res, err := h.search.SearchByRetailer(c.Request.Context(), retailer, c.Query("q"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnknownRetailer):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrTooManyItems),
		errors.Is(err, domain.ErrCostExceeded):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		status = 499
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
