package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/id"
	"hubchantier/internal/core/types"
	"hubchantier/internal/domain/quote"
)

// --- Request DTOs ---

// CreateQuoteRequest represents a request to create a quote.
type CreateQuoteRequest struct {
	Number              string           `json:"number,omitempty"`
	ClientName          string           `json:"clientName" binding:"required"`
	ClientEmail         *string          `json:"clientEmail,omitempty"`
	ClientPhone         *string          `json:"clientPhone,omitempty"`
	ClientAddress       *string          `json:"clientAddress,omitempty"`
	Subject             string           `json:"subject,omitempty"`
	CreationDate        *string          `json:"creationDate,omitempty"`
	ValidityDate        *string          `json:"validityDate,omitempty"`
	VATRate             *decimal.Decimal `json:"vatRate,omitempty"`
	GlobalMargin        *decimal.Decimal `json:"globalMargin,omitempty"`
	OverheadCoefficient *decimal.Decimal `json:"overheadCoefficient,omitempty"`
	RetentionRate       *decimal.Decimal `json:"retentionRate,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *CreateQuoteRequest) ToInput() (quote.CreateInput, error) {
	creation, err := parseDate("creationDate", r.CreationDate)
	if err != nil {
		return quote.CreateInput{}, err
	}
	validity, err := parseDate("validityDate", r.ValidityDate)
	if err != nil {
		return quote.CreateInput{}, err
	}
	return quote.CreateInput{
		Number:              r.Number,
		ClientName:          r.ClientName,
		ClientEmail:         r.ClientEmail,
		ClientPhone:         r.ClientPhone,
		ClientAddress:       r.ClientAddress,
		Subject:             r.Subject,
		CreationDate:        creation,
		ValidityDate:        validity,
		VATRate:             r.VATRate,
		GlobalMargin:        r.GlobalMargin,
		OverheadCoefficient: r.OverheadCoefficient,
		RetentionRate:       r.RetentionRate,
	}, nil
}

// UpdateQuoteRequest represents a partial header update.
type UpdateQuoteRequest struct {
	ClientName    *string          `json:"clientName,omitempty"`
	ClientEmail   *string          `json:"clientEmail,omitempty"`
	ClientPhone   *string          `json:"clientPhone,omitempty"`
	ClientAddress *string          `json:"clientAddress,omitempty"`
	Subject       *string          `json:"subject,omitempty"`
	ValidityDate  *string          `json:"validityDate,omitempty"`
	VATRate       *decimal.Decimal `json:"vatRate,omitempty"`
	RetentionRate *decimal.Decimal `json:"retentionRate,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *UpdateQuoteRequest) ToInput() (quote.UpdateInput, error) {
	validity, err := parseDate("validityDate", r.ValidityDate)
	if err != nil {
		return quote.UpdateInput{}, err
	}
	return quote.UpdateInput{
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientPhone:   r.ClientPhone,
		ClientAddress: r.ClientAddress,
		Subject:       r.Subject,
		ValidityDate:  validity,
		VATRate:       r.VATRate,
		RetentionRate: r.RetentionRate,
	}, nil
}

// CreateLotRequest adds a lot to a quote.
type CreateLotRequest struct {
	Code       string           `json:"code" binding:"required"`
	Label      string           `json:"label"`
	MarginRate *decimal.Decimal `json:"marginRate,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *CreateLotRequest) ToInput() quote.LotInput {
	return quote.LotInput{Code: r.Code, Label: r.Label, MarginRate: r.MarginRate}
}

// CreateLineRequest adds a line to a lot.
type CreateLineRequest struct {
	Designation string           `json:"designation" binding:"required"`
	Unit        string           `json:"unit,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unitPriceHt"`
	VATRate     *decimal.Decimal `json:"vatRate,omitempty"`
	MarginRate  *decimal.Decimal `json:"marginRate,omitempty"`
	ArticleID   *id.ID           `json:"articleId,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *CreateLineRequest) ToInput() quote.LineInput {
	return quote.LineInput{
		Designation: r.Designation,
		Unit:        r.Unit,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		VATRate:     r.VATRate,
		MarginRate:  r.MarginRate,
		ArticleID:   r.ArticleID,
	}
}

// CreateCostItemRequest attaches a cost item to a line.
type CreateCostItemRequest struct {
	Type       string           `json:"type" binding:"required"`
	Label      string           `json:"label" binding:"required"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitPrice  decimal.Decimal  `json:"unitPrice"`
	Profession *string          `json:"profession,omitempty"`
	HourlyRate *decimal.Decimal `json:"hourlyRate,omitempty"`
}

// ToInput converts the request to the use case input.
func (r *CreateCostItemRequest) ToInput() quote.CostItemInput {
	return quote.CostItemInput{
		Type:       quote.CostType(r.Type),
		Label:      r.Label,
		Quantity:   r.Quantity,
		UnitPrice:  r.UnitPrice,
		Profession: r.Profession,
		HourlyRate: r.HourlyRate,
	}
}

// --- Response DTOs ---

// QuoteResponse is the header view of a quote, with its tree when loaded.
type QuoteResponse struct {
	ID                  string             `json:"id"`
	Number              string             `json:"number"`
	ClientName          string             `json:"clientName"`
	ClientEmail         *string            `json:"clientEmail,omitempty"`
	ClientPhone         *string            `json:"clientPhone,omitempty"`
	ClientAddress       *string            `json:"clientAddress,omitempty"`
	Subject             string             `json:"subject,omitempty"`
	CreationDate        string             `json:"creationDate"`
	ValidityDate        *string            `json:"validityDate,omitempty"`
	Status              string             `json:"status"`
	Expired             bool               `json:"expired"`
	VATRate             string             `json:"vatRate"`
	GlobalMargin        string             `json:"globalMargin"`
	CostTypeMargins     map[string]*string `json:"costTypeMargins"`
	OverheadCoefficient *string            `json:"overheadCoefficient"`
	RetentionRate       string             `json:"retentionRate"`
	TotalHT             string             `json:"totalHt"`
	TotalTTC            string             `json:"totalTtc"`
	ParentID            *string            `json:"parentId,omitempty"`
	VersionNumber       int                `json:"versionNumber"`
	VersionType         string             `json:"versionType"`
	VariantLabel        *string            `json:"variantLabel,omitempty"`
	Frozen              bool               `json:"frozen"`
	FreezeComment       *string            `json:"freezeComment,omitempty"`
	FrozenAt            *time.Time         `json:"frozenAt,omitempty"`
	Version             int                `json:"rowVersion"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	CreatedBy           string             `json:"createdBy,omitempty"`
	UpdatedBy           string             `json:"updatedBy,omitempty"`
	Lots                []LotResponse      `json:"lots,omitempty"`
}

// LotResponse is the view of a lot.
type LotResponse struct {
	ID         string         `json:"id"`
	QuoteID    string         `json:"quoteId"`
	Code       string         `json:"code"`
	Label      string         `json:"label"`
	Order      int            `json:"order"`
	MarginRate *string        `json:"marginRate"`
	Lines      []LineResponse `json:"lines,omitempty"`
}

// LineResponse is the view of a line.
type LineResponse struct {
	ID          string             `json:"id"`
	LotID       string             `json:"lotId"`
	Designation string             `json:"designation"`
	Unit        string             `json:"unit"`
	Quantity    string             `json:"quantity"`
	UnitPrice   string             `json:"unitPriceHt"`
	AmountHT    string             `json:"amountHt"`
	VATRate     string             `json:"vatRate"`
	Order       int                `json:"order"`
	MarginRate  *string            `json:"marginRate"`
	RawCost     string             `json:"rawCost"`
	CostItems   []CostItemResponse `json:"costItems,omitempty"`
}

// CostItemResponse is the view of a cost item.
type CostItemResponse struct {
	ID         string  `json:"id"`
	LineID     string  `json:"lineId"`
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Quantity   string  `json:"quantity"`
	UnitPrice  string  `json:"unitPrice"`
	Total      string  `json:"total"`
	Profession *string `json:"profession,omitempty"`
	HourlyRate *string `json:"hourlyRate,omitempty"`
}

// FromQuote maps a quote (and its loaded tree) to the response.
func FromQuote(q *quote.Quote, today time.Time) QuoteResponse {
	resp := QuoteResponse{
		ID:                  q.ID.String(),
		Number:              q.Number,
		ClientName:          q.ClientName,
		ClientEmail:         q.ClientEmail,
		ClientPhone:         q.ClientPhone,
		ClientAddress:       q.ClientAddress,
		Subject:             q.Subject,
		CreationDate:        q.CreationDate.Format(dateLayout),
		ValidityDate:        formatDate(q.ValidityDate),
		Status:              string(q.Status),
		Expired:             q.IsExpired(today),
		VATRate:             types.FormatRate(q.VATRate),
		GlobalMargin:        types.FormatRate(q.GlobalMargin),
		CostTypeMargins:     make(map[string]*string, len(quote.CostTypes)),
		OverheadCoefficient: types.FormatOptionalRate(q.OverheadCoefficient),
		RetentionRate:       types.FormatRate(q.RetentionRate),
		TotalHT:             types.FormatMoney(q.TotalHT),
		TotalTTC:            types.FormatMoney(q.TotalTTC),
		VersionNumber:       q.VersionNumber,
		VersionType:         string(q.VersionType),
		Frozen:              q.Frozen,
		FreezeComment:       q.FreezeComment,
		FrozenAt:            q.FrozenAt,
		Version:             q.Version,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
		CreatedBy:           q.CreatedBy,
		UpdatedBy:           q.UpdatedBy,
	}
	for _, ct := range quote.CostTypes {
		resp.CostTypeMargins[string(ct)] = types.FormatOptionalRate(q.CostTypeMargin(ct))
	}
	if q.ParentID != nil {
		parent := q.ParentID.String()
		resp.ParentID = &parent
	}
	if q.VariantLabel != nil {
		label := string(*q.VariantLabel)
		resp.VariantLabel = &label
	}
	for _, lot := range q.Lots {
		resp.Lots = append(resp.Lots, FromLot(lot))
	}
	return resp
}

// FromQuotes maps a page of quote headers.
func FromQuotes(items []*quote.Quote, today time.Time) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(items))
	for _, q := range items {
		out = append(out, FromQuote(q, today))
	}
	return out
}

// FromLot maps a lot and its loaded lines.
func FromLot(lot *quote.Lot) LotResponse {
	resp := LotResponse{
		ID:         lot.ID.String(),
		QuoteID:    lot.QuoteID.String(),
		Code:       lot.Code,
		Label:      lot.Label,
		Order:      lot.Order,
		MarginRate: types.FormatOptionalRate(lot.MarginRate),
	}
	for _, line := range lot.Lines {
		resp.Lines = append(resp.Lines, FromLine(line))
	}
	return resp
}

// FromLine maps a line and its cost items.
func FromLine(line *quote.Line) LineResponse {
	resp := LineResponse{
		ID:          line.ID.String(),
		LotID:       line.LotID.String(),
		Designation: line.Designation,
		Unit:        string(line.Unit),
		Quantity:    line.Quantity.String(),
		UnitPrice:   line.UnitPrice.String(),
		AmountHT:    types.FormatMoney(line.AmountHT()),
		VATRate:     types.FormatRate(line.VATRate),
		Order:       line.Order,
		MarginRate:  types.FormatOptionalRate(line.MarginRate),
		RawCost:     line.RawCost().String(),
	}
	for _, item := range line.CostItems {
		resp.CostItems = append(resp.CostItems, FromCostItem(item))
	}
	return resp
}

// FromCostItem maps a cost item.
func FromCostItem(item quote.CostItem) CostItemResponse {
	resp := CostItemResponse{
		ID:         item.ID.String(),
		LineID:     item.LineID.String(),
		Type:       string(item.Type),
		Label:      item.Label,
		Quantity:   item.Quantity.String(),
		UnitPrice:  item.UnitPrice.String(),
		Total:      item.Total.String(),
		Profession: item.Profession,
	}
	if item.HourlyRate != nil {
		rate := item.HourlyRate.String()
		resp.HourlyRate = &rate
	}
	return resp
}

// JournalEntryResponse is one history record.
type JournalEntryResponse struct {
	ID               string         `json:"id"`
	Action           string         `json:"action"`
	UserID           string         `json:"userId"`
	Message          string         `json:"message"`
	ModificationType string         `json:"modificationType"`
	Data             map[string]any `json:"data,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// FromJournal maps journal entries.
func FromJournal(entries []quote.JournalEntry) []JournalEntryResponse {
	out := make([]JournalEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, JournalEntryResponse{
			ID:               e.ID.String(),
			Action:           e.Action,
			UserID:           e.UserID,
			Message:          e.Details.Message,
			ModificationType: e.Details.ModificationType,
			Data:             e.Details.Data,
			CreatedAt:        e.CreatedAt,
		})
	}
	return out
}
