// Package quote provides the Quote aggregate (devis): a quote owns ordered
// lots, a lot owns ordered lines, a line owns its cost items.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/entity"
	"hubchantier/internal/core/id"
	"hubchantier/internal/core/types"
)

// CostType categorises a raw cost component.
type CostType string

const (
	CostLabor          CostType = "labor"
	CostMaterials      CostType = "materials"
	CostSubcontracting CostType = "subcontracting"
	CostEquipment      CostType = "equipment"
	CostTravel         CostType = "travel"
)

// CostTypes lists every cost type in display order.
var CostTypes = []CostType{CostLabor, CostMaterials, CostSubcontracting, CostEquipment, CostTravel}

// IsValid reports whether t is a known cost type.
func (t CostType) IsValid() bool {
	for _, known := range CostTypes {
		if t == known {
			return true
		}
	}
	return false
}

// VersionType tells how a quote came into existence.
type VersionType string

const (
	VersionOriginal VersionType = "original"
	VersionRevision VersionType = "revision"
	VersionVariant  VersionType = "variant"
)

// VariantLabel is the short tag carried by variant quotes.
type VariantLabel string

const (
	VariantEconomy     VariantLabel = "ECO"
	VariantStandard    VariantLabel = "STD"
	VariantPremium     VariantLabel = "PREM"
	VariantAlternative VariantLabel = "ALT"
)

// VariantLabels lists accepted variant labels.
var VariantLabels = []VariantLabel{VariantEconomy, VariantStandard, VariantPremium, VariantAlternative}

// ParseVariantLabel normalises user input ("prem " -> PREM).
func ParseVariantLabel(s string) (VariantLabel, error) {
	normalized := VariantLabel(strings.ToUpper(strings.TrimSpace(s)))
	if normalized == "" {
		return "", apperror.NewValidation("Le libelle de variante est obligatoire").
			WithDetail("field", "variantLabel")
	}
	for _, known := range VariantLabels {
		if normalized == known {
			return normalized, nil
		}
	}
	return "", apperror.NewValidation(fmt.Sprintf("Libelle de variante invalide: %s", s)).
		WithDetail("field", "variantLabel").
		WithDetail("allowed", VariantLabels)
}

var (
	rateMax        = decimal.NewFromInt(100)
	retentionFive  = decimal.NewFromInt(5)
	defaultMargin  = decimal.NewFromInt(15)
	defaultVATRate = decimal.NewFromInt(20)
)

// Quote is the root aggregate.
type Quote struct {
	entity.Audited
	entity.SoftDelete

	Number        string  `db:"number" json:"number"`
	ClientName    string  `db:"client_name" json:"clientName"`
	ClientEmail   *string `db:"client_email" json:"clientEmail,omitempty"`
	ClientPhone   *string `db:"client_phone" json:"clientPhone,omitempty"`
	ClientAddress *string `db:"client_address" json:"clientAddress,omitempty"`
	Subject       string  `db:"subject" json:"subject,omitempty"`

	CreationDate time.Time  `db:"creation_date" json:"creationDate"`
	ValidityDate *time.Time `db:"validity_date" json:"validityDate,omitempty"`
	Status       Status     `db:"status" json:"status"`

	VATRate              decimal.Decimal  `db:"vat_rate" json:"vatRate"`
	GlobalMargin         decimal.Decimal  `db:"global_margin_rate" json:"globalMargin"`
	LaborMargin          *decimal.Decimal `db:"labor_margin_rate" json:"laborMargin,omitempty"`
	MaterialsMargin      *decimal.Decimal `db:"materials_margin_rate" json:"materialsMargin,omitempty"`
	SubcontractingMargin *decimal.Decimal `db:"subcontracting_margin_rate" json:"subcontractingMargin,omitempty"`
	EquipmentMargin      *decimal.Decimal `db:"equipment_margin_rate" json:"equipmentMargin,omitempty"`
	TravelMargin         *decimal.Decimal `db:"travel_margin_rate" json:"travelMargin,omitempty"`
	OverheadCoefficient  *decimal.Decimal `db:"overhead_coefficient" json:"overheadCoefficient,omitempty"`
	RetentionRate        decimal.Decimal  `db:"retention_rate" json:"retentionRate"`

	TotalHT  decimal.Decimal `db:"total_ht" json:"totalHt"`
	TotalTTC decimal.Decimal `db:"total_ttc" json:"totalTtc"`

	ParentID      *id.ID        `db:"parent_id" json:"parentId,omitempty"`
	VersionNumber int           `db:"version_number" json:"versionNumber"`
	VersionType   VersionType   `db:"version_type" json:"versionType"`
	VariantLabel  *VariantLabel `db:"variant_label" json:"variantLabel,omitempty"`
	Frozen        bool          `db:"frozen" json:"frozen"`
	FreezeComment *string       `db:"freeze_comment" json:"freezeComment,omitempty"`
	FrozenAt      *time.Time    `db:"frozen_at" json:"frozenAt,omitempty"`

	// Lots is filled by LoadAggregate, ordered by Lot.Order.
	Lots []*Lot `db:"-" json:"lots,omitempty"`
}

// NewQuote creates a draft quote with default rates.
func NewQuote(number, clientName string, creationDate time.Time) *Quote {
	return &Quote{
		Audited:       entity.NewAudited(),
		Number:        strings.TrimSpace(number),
		ClientName:    strings.TrimSpace(clientName),
		CreationDate:  creationDate,
		Status:        StatusDraft,
		VATRate:       defaultVATRate,
		GlobalMargin:  defaultMargin,
		RetentionRate: decimal.Zero,
		TotalHT:       decimal.Zero,
		TotalTTC:      decimal.Zero,
		VersionNumber: 1,
		VersionType:   VersionOriginal,
	}
}

// Validate implements entity.Validatable.
func (q *Quote) Validate(ctx context.Context) error {
	if strings.TrimSpace(q.Number) == "" {
		return apperror.NewValidation("Le numero du devis est obligatoire").
			WithDetail("field", "number")
	}
	if strings.TrimSpace(q.ClientName) == "" {
		return apperror.NewValidation("Le nom du client est obligatoire").
			WithDetail("field", "clientName")
	}
	if q.ValidityDate != nil && dateOnly(*q.ValidityDate).Before(dateOnly(q.CreationDate)) {
		return apperror.NewValidation("La date de validite doit etre posterieure a la date de creation").
			WithDetail("field", "validityDate")
	}
	if !q.Status.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("Statut inconnu: %s", q.Status)).
			WithDetail("field", "status")
	}
	if err := checkBounded("vatRate", q.VATRate); err != nil {
		return err
	}
	if err := checkNonNegative("globalMargin", q.GlobalMargin); err != nil {
		return err
	}
	for _, ct := range CostTypes {
		if rate := q.CostTypeMargin(ct); rate != nil {
			if err := checkNonNegative(string(ct)+"Margin", *rate); err != nil {
				return err
			}
		}
	}
	if q.OverheadCoefficient != nil {
		if err := checkNonNegative("overheadCoefficient", *q.OverheadCoefficient); err != nil {
			return err
		}
	}
	return ValidateRetentionRate(q.RetentionRate)
}

// ValidateRetentionRate enforces the statutory holdback: exactly 0 or 5 percent.
func ValidateRetentionRate(rate decimal.Decimal) error {
	if rate.IsZero() || rate.Equal(retentionFive) {
		return nil
	}
	return apperror.NewValidation(fmt.Sprintf(
		"La retenue de garantie doit etre 0 ou 5%% (contrainte legale), recu %s", rate.String())).
		WithDetail("field", "retentionRate").
		WithDetail("allowed", []string{"0", "5"})
}

// CostTypeMargin returns the quote-level margin defined for a cost type.
func (q *Quote) CostTypeMargin(ct CostType) *decimal.Decimal {
	switch ct {
	case CostLabor:
		return q.LaborMargin
	case CostMaterials:
		return q.MaterialsMargin
	case CostSubcontracting:
		return q.SubcontractingMargin
	case CostEquipment:
		return q.EquipmentMargin
	case CostTravel:
		return q.TravelMargin
	}
	return nil
}

// SetCostTypeMargin sets or clears (nil) a cost-type margin.
func (q *Quote) SetCostTypeMargin(ct CostType, rate *decimal.Decimal) {
	switch ct {
	case CostLabor:
		q.LaborMargin = rate
	case CostMaterials:
		q.MaterialsMargin = rate
	case CostSubcontracting:
		q.SubcontractingMargin = rate
	case CostEquipment:
		q.EquipmentMargin = rate
	case CostTravel:
		q.TravelMargin = rate
	}
}

// EffectiveOverhead returns the quote coefficient, or fallback when unset.
func (q *Quote) EffectiveOverhead(fallback decimal.Decimal) decimal.Decimal {
	if q.OverheadCoefficient != nil {
		return *q.OverheadCoefficient
	}
	return fallback
}

// IsModifiable is true only for draft quotes.
func (q *Quote) IsModifiable() bool {
	return q.Status == StatusDraft
}

// IsImportable tells whether DPGF rows may be added in the current status.
func (q *Quote) IsImportable() bool {
	return q.Status == StatusDraft || q.Status == StatusInNegotiation
}

// IsExpired is false without validity date, else true once the validity
// date is strictly before today.
func (q *Quote) IsExpired(today time.Time) bool {
	if q.ValidityDate == nil {
		return false
	}
	return dateOnly(*q.ValidityDate).Before(dateOnly(today))
}

// CanEdit checks that the content (header, lots, lines, margins) may change.
func (q *Quote) CanEdit() error {
	if q.IsDeleted() {
		return NewQuoteNotFound(q.ID)
	}
	if q.Frozen {
		return NewVersionFrozen(q)
	}
	if !q.IsModifiable() {
		return apperror.NewBusinessRule(apperror.CodeNotModifiable,
			fmt.Sprintf("Le devis %s n'est pas modifiable en statut %s", q.Number, q.Status)).
			WithDetail("quote_id", q.ID.String()).
			WithDetail("current_status", string(q.Status))
	}
	return nil
}

// Freeze marks the quote as an immutable version.
func (q *Quote) Freeze(comment string) error {
	if q.Frozen {
		return apperror.NewValidation(fmt.Sprintf("Le devis %s est deja fige", q.Number)).
			WithDetail("quote_id", q.ID.String())
	}
	now := time.Now().UTC()
	q.Frozen = true
	q.FrozenAt = &now
	if c := strings.TrimSpace(comment); c != "" {
		q.FreezeComment = &c
	}
	q.Stamp()
	return nil
}

// MaxLotOrder returns the highest lot order index, 0 without lots.
func (q *Quote) MaxLotOrder() int {
	maxOrder := 0
	for _, lot := range q.Lots {
		if lot.Order > maxOrder {
			maxOrder = lot.Order
		}
	}
	return maxOrder
}

// LotByCode finds a loaded lot by its business code.
func (q *Quote) LotByCode(code string) *Lot {
	for _, lot := range q.Lots {
		if lot.Code == code {
			return lot
		}
	}
	return nil
}

// RecalculateTotals refreshes TotalHT/TotalTTC from loaded lines.
func (q *Quote) RecalculateTotals() {
	totalHT := decimal.Zero
	totalTTC := decimal.Zero
	for _, lot := range q.Lots {
		for _, line := range lot.Lines {
			amount := line.AmountHT()
			totalHT = totalHT.Add(amount)
			totalTTC = totalTTC.Add(types.Markup(amount, line.VATRate))
		}
	}
	q.TotalHT = types.RoundMoney(totalHT)
	q.TotalTTC = types.RoundMoney(totalTTC)
}

// Lot groups lines within a quote.
type Lot struct {
	entity.Identity

	QuoteID    id.ID            `db:"quote_id" json:"quoteId"`
	Code       string           `db:"code" json:"code"`
	Label      string           `db:"label" json:"label"`
	Order      int              `db:"sort_order" json:"order"`
	MarginRate *decimal.Decimal `db:"margin_rate" json:"marginRate,omitempty"`

	Lines []*Line `db:"-" json:"lines,omitempty"`
}

// NewLot creates a lot attached to quoteID.
func NewLot(quoteID id.ID, code, label string, order int) *Lot {
	return &Lot{
		Identity: entity.NewIdentity(),
		QuoteID:  quoteID,
		Code:     strings.TrimSpace(code),
		Label:    strings.TrimSpace(label),
		Order:    order,
	}
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(ctx context.Context) error {
	if l.Code == "" {
		return apperror.NewValidation("Le code du lot est obligatoire").
			WithDetail("field", "code")
	}
	if l.Order < 0 {
		return apperror.NewValidation("L'ordre du lot ne peut pas etre negatif").
			WithDetail("field", "order")
	}
	if l.MarginRate != nil {
		return checkNonNegative("marginRate", *l.MarginRate)
	}
	return nil
}

// MaxLineOrder returns the highest line order index, 0 without lines.
func (l *Lot) MaxLineOrder() int {
	maxOrder := 0
	for _, line := range l.Lines {
		if line.Order > maxOrder {
			maxOrder = line.Order
		}
	}
	return maxOrder
}

// Line is a priced item of a lot.
type Line struct {
	entity.Identity

	LotID       id.ID            `db:"lot_id" json:"lotId"`
	Designation string           `db:"designation" json:"designation"`
	Unit        Unit             `db:"unit" json:"unit"`
	Quantity    decimal.Decimal  `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal  `db:"unit_price_ht" json:"unitPriceHt"`
	VATRate     decimal.Decimal  `db:"vat_rate" json:"vatRate"`
	Order       int              `db:"sort_order" json:"order"`
	MarginRate  *decimal.Decimal `db:"margin_rate" json:"marginRate,omitempty"`
	ArticleID   *id.ID           `db:"article_id" json:"articleId,omitempty"`

	CostItems []CostItem `db:"-" json:"costItems,omitempty"`
}

// NewLine creates a line attached to lotID.
func NewLine(lotID id.ID, designation string, unit Unit, quantity, unitPrice, vatRate decimal.Decimal, order int) *Line {
	return &Line{
		Identity:    entity.NewIdentity(),
		LotID:       lotID,
		Designation: strings.TrimSpace(designation),
		Unit:        unit,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
		Order:       order,
	}
}

// Validate implements entity.Validatable.
func (l *Line) Validate(ctx context.Context) error {
	if strings.TrimSpace(l.Designation) == "" {
		return apperror.NewValidation("La designation de la ligne est obligatoire").
			WithDetail("field", "designation")
	}
	if err := checkNonNegative("quantity", l.Quantity); err != nil {
		return err
	}
	if err := checkNonNegative("unitPriceHt", l.UnitPrice); err != nil {
		return err
	}
	if err := checkBounded("vatRate", l.VATRate); err != nil {
		return err
	}
	if l.MarginRate != nil {
		return checkBounded("marginRate", *l.MarginRate)
	}
	return nil
}

// AmountHT is quantity × unit price, rounded to cents.
func (l *Line) AmountHT() decimal.Decimal {
	return types.RoundMoney(l.Quantity.Mul(l.UnitPrice))
}

// RawCost sums quantity × unit price of every cost item, unrounded.
func (l *Line) RawCost() decimal.Decimal {
	total := decimal.Zero
	for _, item := range l.CostItems {
		total = total.Add(item.Amount())
	}
	return total
}

// SingleCostType returns the cost type shared by all cost items, if any.
func (l *Line) SingleCostType() (CostType, bool) {
	if len(l.CostItems) == 0 {
		return "", false
	}
	first := l.CostItems[0].Type
	for _, item := range l.CostItems[1:] {
		if item.Type != first {
			return "", false
		}
	}
	return first, true
}

// CostItem is a raw cost component of a line. Never mutated once attached.
type CostItem struct {
	ID         id.ID            `db:"id" json:"id"`
	LineID     id.ID            `db:"line_id" json:"lineId"`
	Type       CostType         `db:"cost_type" json:"type"`
	Label      string           `db:"label" json:"label"`
	Quantity   decimal.Decimal  `db:"quantity" json:"quantity"`
	UnitPrice  decimal.Decimal  `db:"unit_price" json:"unitPrice"`
	Total      decimal.Decimal  `db:"total" json:"total"`
	Profession *string          `db:"profession" json:"profession,omitempty"`
	HourlyRate *decimal.Decimal `db:"hourly_rate" json:"hourlyRate,omitempty"`
}

// NewCostItem creates a cost item with its total materialised.
func NewCostItem(lineID id.ID, costType CostType, label string, quantity, unitPrice decimal.Decimal) CostItem {
	return CostItem{
		ID:        id.New(),
		LineID:    lineID,
		Type:      costType,
		Label:     strings.TrimSpace(label),
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Total:     quantity.Mul(unitPrice),
	}
}

// Amount is quantity × unit price, exact.
func (c CostItem) Amount() decimal.Decimal {
	return c.Quantity.Mul(c.UnitPrice)
}

// Validate implements entity.Validatable.
func (c CostItem) Validate(ctx context.Context) error {
	if !c.Type.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("Type de debourse inconnu: %s", c.Type)).
			WithDetail("field", "type")
	}
	if strings.TrimSpace(c.Label) == "" {
		return apperror.NewValidation("Le libelle du debourse est obligatoire").
			WithDetail("field", "label")
	}
	if err := checkNonNegative("quantity", c.Quantity); err != nil {
		return err
	}
	if err := checkNonNegative("unitPrice", c.UnitPrice); err != nil {
		return err
	}
	if c.HourlyRate != nil {
		return checkNonNegative("hourlyRate", *c.HourlyRate)
	}
	return nil
}

func checkNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return apperror.NewValidation(fmt.Sprintf("La valeur de %s ne peut pas etre negatif", field)).
			WithDetail("field", field).
			WithDetail("value", v.String())
	}
	return nil
}

func checkBounded(field string, v decimal.Decimal) error {
	if err := checkNonNegative(field, v); err != nil {
		return err
	}
	if v.GreaterThan(rateMax) {
		return apperror.NewValidation(fmt.Sprintf("La valeur de %s doit etre comprise entre 0 et 100", field)).
			WithDetail("field", field).
			WithDetail("value", v.String())
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
