package handlers

import (
	"github.com/gin-gonic/gin"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
	"hubchantier/internal/domain/quote/versioning"
	"hubchantier/internal/infrastructure/http/v1/dto"
)

// VersionHandler serves revisions, variants, freezing and comparisons.
type VersionHandler struct {
	*BaseHandler
	service *versioning.Service
}

// NewVersionHandler creates a new version handler.
func NewVersionHandler(base *BaseHandler, service *versioning.Service) *VersionHandler {
	return &VersionHandler{BaseHandler: base, service: service}
}

// CreateRevision handles POST /quotes/:id/revisions.
func (h *VersionHandler) CreateRevision(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	revision, err := h.service.CreateRevision(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromQuote(revision, h.Today()))
}

// CreateVariant handles POST /quotes/:id/variants.
func (h *VersionHandler) CreateVariant(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}

	variant, err := h.service.CreateVariant(c.Request.Context(), quoteID, req.Label)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromQuote(variant, h.Today()))
}

// Freeze handles POST /quotes/:id/freeze. The body is optional.
func (h *VersionHandler) Freeze(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.FreezeRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	q, err := h.service.FreezeVersion(c.Request.Context(), quoteID, req.Comment)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromQuote(q, h.Today()))
}

// ListVersions handles GET /quotes/:id/versions.
func (h *VersionHandler) ListVersions(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVersions(versions))
}

// Compare handles POST /comparisons.
func (h *VersionHandler) Compare(c *gin.Context) {
	var req dto.CompareRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sourceID, err := id.Parse(req.SourceQuoteID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "sourceQuoteId"))
		return
	}
	targetID, err := id.Parse(req.TargetQuoteID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("field", "targetQuoteId"))
		return
	}

	comparison, err := h.service.CompareVersions(c.Request.Context(), sourceID, targetID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromComparison(comparison))
}

// GetComparison handles GET /comparisons/:id.
func (h *VersionHandler) GetComparison(c *gin.Context) {
	comparisonID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	comparison, err := h.service.GetComparison(c.Request.Context(), comparisonID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromComparison(comparison))
}
