// Package sale provides the POS Sale document: a point-of-sale transaction
// that reserves stock at one location and posts an Income record on
// completion.
package sale

import (
	"context"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/types"
)

// Status is the sale lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ValidStatus reports whether s is a known sale status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// allowedTransitions describes the status graph. Completed and cancelled
// are terminal: a completed sale is never un-sold here, stock corrections
// go through reversing adjustments.
var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether moving to the target status is legal.
func (s Status) CanTransition(to Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCredit PaymentMethod = "credit_card"
	PaymentDebit  PaymentMethod = "debit_card"
	PaymentMobile PaymentMethod = "mobile_payment"
)

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentDebit, PaymentMobile:
		return true
	}
	return false
}

// Sale is a POS transaction header. Lines are loaded separately.
type Sale struct {
	entity.Document

	LocationID   id.ID  `db:"location_id" json:"locationId"`
	CustomerName string `db:"customer_name" json:"customerName,omitempty"`

	Status        Status        `db:"status" json:"status"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"paymentMethod"`

	// TaxPct and DiscountPct apply to the whole sale, 0-100
	TaxPct      types.Percent `db:"tax_pct" json:"taxPct"`
	DiscountPct types.Percent `db:"discount_pct" json:"discountPct"`

	// Derived money fields, recomputed from lines before every save.
	// Prices are captured at sale time; later product price changes do
	// not alter posted sales.
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	Total    types.Money `db:"total" json:"total"`

	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`

	Lines []SaleLine `db:"-" json:"items"`
}

// SaleLine is one sold product.
type SaleLine struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity  int         `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Discount is a percentage 0-100 applied to this line only
	Discount types.Percent `db:"discount" json:"discount"`

	// Derived
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// Recalculate derives LineTotal: price x qty net of the line discount.
func (l *SaleLine) Recalculate() {
	qty := types.NewMoney(float64(l.Quantity))
	base := l.UnitPrice.Mul(qty)
	l.LineTotal = types.RoundMoney(base.Sub(base.Mul(types.Fraction(l.Discount))))
}

// Validate checks one line.
func (l *SaleLine) Validate(index int) error {
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "items").
			WithDetail("index", index)
	}
	if l.Quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").
			WithDetail("field", "items").
			WithDetail("index", index)
	}
	if l.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "items").
			WithDetail("index", index)
	}
	return checkPercent(l.Discount, "discount", index)
}

func checkPercent(p types.Percent, field string, index int) error {
	if p.IsNegative() || p.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("percentage must be between 0 and 100").
			WithDetail("field", field).
			WithDetail("index", index)
	}
	return nil
}

// NewSale creates a completed cash sale at the given location. POS
// transactions complete at the register unless the caller says otherwise.
func NewSale(locationID id.ID) *Sale {
	return &Sale{
		Document:      entity.NewDocument(),
		LocationID:    locationID,
		Status:        StatusCompleted,
		PaymentMethod: PaymentCash,
		TaxPct:        types.Zero(),
		DiscountPct:   types.Zero(),
		Subtotal:      types.Zero(),
		Total:         types.Zero(),
	}
}

// RecalculateTotals derives each line, the subtotal, and the grand total:
//
//	total = max(0, subtotal x (1 + taxPct/100 - discountPct/100))
func (s *Sale) RecalculateTotals() {
	subtotal := types.Zero()
	for i := range s.Lines {
		s.Lines[i].LineNo = i + 1
		s.Lines[i].Recalculate()
		subtotal = subtotal.Add(s.Lines[i].LineTotal)
	}
	s.Subtotal = types.RoundMoney(subtotal)

	factor := types.NewMoney(1).
		Add(types.Fraction(s.TaxPct)).
		Sub(types.Fraction(s.DiscountPct))
	s.Total = types.ClampNonNegative(types.RoundMoney(subtotal.Mul(factor)))
}

// IsCompleted reports whether stock for this sale was already deducted.
func (s *Sale) IsCompleted() bool {
	return s.Status == StatusCompleted
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(s.LocationID) {
		return apperror.NewValidation("location is required").WithDetail("field", "locationId")
	}
	if !ValidStatus(s.Status) {
		return apperror.NewValidation("unknown sale status").
			WithDetail("field", "status").
			WithDetail("value", string(s.Status))
	}
	if !ValidPaymentMethod(s.PaymentMethod) {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(s.PaymentMethod))
	}
	if s.TaxPct.IsNegative() || s.TaxPct.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("tax percentage must be between 0 and 100").
			WithDetail("field", "taxPct")
	}
	if s.DiscountPct.IsNegative() || s.DiscountPct.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("discount percentage must be between 0 and 100").
			WithDetail("field", "discountPct")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	for i := range s.Lines {
		if err := s.Lines[i].Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// LineInput is one requested sale line.
type LineInput struct {
	ProductID id.ID   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Discount  float64 `json:"discount,omitempty"`
}

// CreateInput is the request to register a sale.
type CreateInput struct {
	LocationID    id.ID         `json:"locationId"`
	CustomerName  string        `json:"customerName,omitempty"`
	SaleDate      *time.Time    `json:"saleDate,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Status        Status        `json:"status,omitempty"`
	TaxPct        float64       `json:"taxPct,omitempty"`
	DiscountPct   float64       `json:"discountPct,omitempty"`
	Items         []LineInput   `json:"items"`
}

// ListFilter for sale queries.
type ListFilter struct {
	LocationID    *id.ID
	Status        *Status
	PaymentMethod *PaymentMethod
	FromDate      *time.Time
	ToDate        *time.Time
	Search        string

	Limit  int
	Offset int
}

// StatsFilter scopes the sales statistics query.
type StatsFilter struct {
	LocationID *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
}

// PaymentMethodStats is one row of the payment-method breakdown.
type PaymentMethodStats struct {
	Method  PaymentMethod `db:"payment_method" json:"method"`
	Count   int           `db:"count" json:"count"`
	Revenue types.Money   `db:"revenue" json:"revenue"`
}

// Stats aggregates completed sales.
type Stats struct {
	TotalSales   int         `json:"totalSales"`
	TotalItems   int         `json:"totalItems"`
	TotalRevenue types.Money `json:"totalRevenue"`
	AverageSale  types.Money `json:"averageSale"`

	ByPaymentMethod []PaymentMethodStats `json:"byPaymentMethod"`
}
