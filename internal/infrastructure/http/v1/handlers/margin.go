package handlers

import (
	"github.com/gin-gonic/gin"

	"hubchantier/internal/domain/quote/pricing"
	"hubchantier/internal/infrastructure/http/v1/dto"
)

// MarginHandler serves the margin report and the margin mutations.
type MarginHandler struct {
	*BaseHandler
	service *pricing.Service
}

// NewMarginHandler creates a new margin handler.
func NewMarginHandler(base *BaseHandler, service *pricing.Service) *MarginHandler {
	return &MarginHandler{BaseHandler: base, service: service}
}

// Get handles GET /quotes/:id/margins.
func (h *MarginHandler) Get(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	report, err := h.service.ComputeMargins(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report.DTO())
}

// SetGlobal handles PUT /quotes/:id/margins.
func (h *MarginHandler) SetGlobal(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.SetGlobalMarginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.SetGlobalMargin(c.Request.Context(), quoteID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// SetLot handles PUT /lots/:id/margin.
func (h *MarginHandler) SetLot(c *gin.Context) {
	lotID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.SetMarginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.SetLotMargin(c.Request.Context(), lotID, req.MarginRate)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// SetLine handles PUT /lines/:id/margin.
func (h *MarginHandler) SetLine(c *gin.Context) {
	lineID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.SetMarginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.SetLineMargin(c.Request.Context(), lineID, req.MarginRate)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
