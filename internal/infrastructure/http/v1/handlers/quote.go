package handlers

import (
	"github.com/gin-gonic/gin"

	"hubchantier/internal/domain"
	"hubchantier/internal/domain/quote"
	"hubchantier/internal/infrastructure/http/v1/dto"
)

// QuoteHandler serves quote headers, the workflow and the lot/line tree.
type QuoteHandler struct {
	*BaseHandler
	service *quote.Service
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(base *BaseHandler, service *quote.Service) *QuoteHandler {
	return &QuoteHandler{BaseHandler: base, service: service}
}

// List handles GET /quotes.
func (h *QuoteHandler) List(c *gin.Context) {
	filter := quote.ListFilter{ListFilter: domain.DefaultListFilter()}
	filter.Search = c.Query("search")
	var ok bool
	if filter.Limit, ok = h.QueryInt(c, "limit", domain.DefaultPageSize); !ok {
		return
	}
	if filter.Offset, ok = h.QueryInt(c, "offset", 0); !ok {
		return
	}
	filter.OrderBy = c.DefaultQuery("orderBy", "-created_at")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"
	filter.ClientName = c.Query("client")
	if raw := c.Query("status"); raw != "" {
		status, err := quote.ParseStatus(raw)
		if err != nil {
			h.Error(c, err)
			return
		}
		filter.Status = &status
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromQuotes(result.Items, h.Today()),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Create handles POST /quotes.
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	q, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromQuote(q, h.Today()))
}

// Get handles GET /quotes/:id and returns the full tree.
func (h *QuoteHandler) Get(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	q, err := h.service.Get(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromQuote(q, h.Today()))
}

// Update handles PUT /quotes/:id.
func (h *QuoteHandler) Update(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	q, err := h.service.Update(c.Request.Context(), quoteID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromQuote(q, h.Today()))
}

// Delete handles DELETE /quotes/:id (soft delete).
func (h *QuoteHandler) Delete(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), quoteID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Transition handles POST /quotes/:id/transitions/:action.
func (h *QuoteHandler) Transition(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	action, err := quote.ParseAction(c.Param("action"))
	if err != nil {
		h.Error(c, err)
		return
	}

	q, err := h.service.Transition(c.Request.Context(), quoteID, action)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromQuote(q, h.Today()))
}

// History handles GET /quotes/:id/history.
func (h *QuoteHandler) History(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entries, err := h.service.History(c.Request.Context(), quoteID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromJournal(entries))
}

// AddLot handles POST /quotes/:id/lots.
func (h *QuoteHandler) AddLot(c *gin.Context) {
	quoteID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateLotRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lot, err := h.service.AddLot(c.Request.Context(), quoteID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromLot(lot))
}

// AddLine handles POST /lots/:id/lines.
func (h *QuoteHandler) AddLine(c *gin.Context) {
	lotID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	line, err := h.service.AddLine(c.Request.Context(), lotID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromLine(line))
}

// DeleteLine handles DELETE /lines/:id.
func (h *QuoteHandler) DeleteLine(c *gin.Context) {
	lineID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteLine(c.Request.Context(), lineID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// AddCostItem handles POST /lines/:id/cost-items.
func (h *QuoteHandler) AddCostItem(c *gin.Context) {
	lineID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateCostItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.AddCostItem(c.Request.Context(), lineID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromCostItem(*item))
}
