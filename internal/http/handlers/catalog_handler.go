// Catalog HTTP handlers.
//
// This file exposes the operator's catalog management endpoints:
//   - POST   /api/v1/catalog          (create entry, ingesting external URLs)
//   - GET    /api/v1/catalog          (list, paginated)
//   - DELETE /api/v1/catalog/{name}   (remove entry)
//
// All endpoints require the X-Access-Token admin credential. Handlers are
// transport-thin: they validate input, call application services, and
// translate typed service errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/http/middleware"
	"github.com/selmak/go-content-bot/internal/services"
	"github.com/selmak/go-content-bot/internal/token"
	"github.com/selmak/go-content-bot/internal/utils"
)

// CatalogService defines the catalog authoring operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type CatalogService interface {
	// Save validates and persists a catalog entry, ingesting external URLs.
	Save(ctx context.Context, in services.CatalogInput) (*domain.ContentItem, error)
	// Delete removes a catalog entry by name.
	Delete(ctx context.Context, name string) error
	// ListPage returns a page of entries and the total count.
	ListPage(ctx context.Context, contentType string, page, pageSize int) ([]domain.ContentItem, int64, error)
}

// CatalogHandler groups the operator API endpoints.
type CatalogHandler struct {
	Svc    CatalogService
	Signer *token.Signer
}

// NewCatalogHandler constructs a CatalogHandler bound to the given service.
func NewCatalogHandler(svc CatalogService, signer *token.Signer) *CatalogHandler {
	return &CatalogHandler{Svc: svc, Signer: signer}
}

//
// DTOs
//

// CreateCatalogRequest is the JSON payload for creating a catalog entry.
type CreateCatalogRequest struct {
	Name          string `json:"name" binding:"required"`
	FilePathOrURL string `json:"file_path_or_url" binding:"required"`
	ContentType   string `json:"content_type" binding:"required"`
	PriceStars    int    `json:"price_stars"`
	Description   string `json:"description"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCatalogResponse wraps a page of catalog entries and pagination
// information.
type ListCatalogResponse struct {
	Items      []domain.ContentItem `json:"items"`
	Pagination Pagination           `json:"pagination"`
}

//
// Helpers
//

// RequireAdmin gates the operator API behind the X-Access-Token credential.
// Rejections are logged with the caller address; the presented value is not.
func (h *CatalogHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-Access-Token")
		if presented == "" || !h.Signer.VerifyAdmin(presented) {
			middleware.LoggerFrom(c).Warn().
				Str("remote", c.ClientIP()).
				Msg("admin token rejected")
			fail(c, http.StatusForbidden, ErrCodeForbidden, "invalid or missing access token")
			return
		}
		c.Next()
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failFromCatalogErr translates typed catalog/ingest errors into HTTP
// responses. Unclassified errors fall through to 500.
func failFromCatalogErr(c *gin.Context, err error) {
	var se *services.StatusError
	switch {
	case errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrInvalidContentType),
		errors.Is(err, services.ErrInvalidURL):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrContentExists):
		fail(c, http.StatusConflict, ErrCodeConflict, "content with that name already exists")
	case errors.Is(err, services.ErrSecurityRejected):
		// The rejected host is in the server log; the client gets a generic denial.
		fail(c, http.StatusBadRequest, ErrCodeIngestFailed, "url rejected by security validation")
	case errors.Is(err, services.ErrNotImage):
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "url does not point to an image")
	case errors.Is(err, services.ErrSizeExceeded):
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file exceeds the size limit")
	case errors.Is(err, services.ErrDownloadTimeout),
		errors.Is(err, services.ErrConnection),
		errors.Is(err, services.ErrUploadFailed),
		errors.As(err, &se):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

//
// Handlers
//

// CreateEntry handles POST /api/v1/catalog.
func (h *CatalogHandler) CreateEntry(c *gin.Context) {
	var req CreateCatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	item, err := h.Svc.Save(c.Request.Context(), services.CatalogInput{
		Name:          strings.TrimSpace(req.Name),
		FilePathOrURL: strings.TrimSpace(req.FilePathOrURL),
		ContentType:   strings.TrimSpace(req.ContentType),
		PriceStars:    req.PriceStars,
		Description:   req.Description,
	})
	if err != nil {
		failFromCatalogErr(c, err)
		return
	}
	ok(c, http.StatusCreated, item)
}

// ListEntries handles GET /api/v1/catalog.
func (h *CatalogHandler) ListEntries(c *gin.Context) {
	page, pageSize := clampPagination(c)
	contentType := strings.TrimSpace(c.Query("content_type"))
	if contentType != "" && contentType != domain.ContentTypeBrowse && contentType != domain.ContentTypeVIP {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content_type must be browse or vip")
		return
	}

	items, total, err := h.Svc.ListPage(c.Request.Context(), contentType, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCatalogResponse{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// DeleteEntry handles DELETE /api/v1/catalog/:name.
func (h *CatalogHandler) DeleteEntry(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content name required")
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), name); err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "content not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
