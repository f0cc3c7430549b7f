// Package purchase provides the Purchase document: a supplier order whose
// receipt credits inventory at a destination warehouse.
package purchase

import (
	"context"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/core/types"
)

// Status is the purchase lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
	StatusPartial   Status = "partial"
)

// ValidStatus reports whether s is a known purchase status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusOrdered, StatusReceived, StatusCancelled, StatusPartial:
		return true
	}
	return false
}

// PaymentStatus tracks how much of the grand total has been settled.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Purchase is a supplier order header. Lines are loaded separately.
type Purchase struct {
	entity.Document

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// WarehouseID is the destination for received stock. When unset,
	// receiving only advances the document state.
	WarehouseID *id.ID `db:"warehouse_id" json:"warehouseId,omitempty"`

	DueDate   *time.Time `db:"due_date" json:"dueDate,omitempty"`
	Reference string     `db:"reference" json:"reference,omitempty"`

	Status        Status        `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`

	// Derived money fields, recomputed from lines before every save
	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	TaxTotal       types.Money `db:"tax_total" json:"taxTotal"`
	OrderTax       types.Money `db:"order_tax" json:"orderTax"`
	ShippingCost   types.Money `db:"shipping_cost" json:"shippingCost"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	GrandTotal     types.Money `db:"grand_total" json:"grandTotal"`
	AmountPaid     types.Money `db:"amount_paid" json:"amountPaid"`

	ReceivedDate *time.Time `db:"received_date" json:"receivedDate,omitempty"`
	ReceivedBy   *string    `db:"received_by" json:"receivedBy,omitempty"`

	Lines []PurchaseLine `db:"-" json:"items"`
}

// PurchaseLine is one ordered product.
type PurchaseLine struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity int         `db:"quantity" json:"quantity"`
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// Discount and TaxRate are percentages 0–100
	Discount types.Percent `db:"discount" json:"discount"`
	TaxRate  types.Percent `db:"tax_rate" json:"taxRate"`

	// Derived
	TaxAmount types.Money `db:"tax_amount" json:"taxAmount"`
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
}

// Recalculate derives TaxAmount and LineTotal. LineTotal is net of the
// line discount and excludes tax; tax is carried separately into the
// header's TaxTotal.
func (l *PurchaseLine) Recalculate() {
	qty := types.NewMoney(float64(l.Quantity))
	base := l.UnitCost.Mul(qty)
	net := base.Sub(base.Mul(types.Fraction(l.Discount)))
	l.LineTotal = types.RoundMoney(net)
	l.TaxAmount = types.RoundMoney(net.Mul(types.Fraction(l.TaxRate)))
}

// Validate implements entity.Validatable for one line.
func (l *PurchaseLine) Validate(index int) error {
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
	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "items").
			WithDetail("index", index)
	}
	if err := checkPercent(l.Discount, "discount", index); err != nil {
		return err
	}
	return checkPercent(l.TaxRate, "taxRate", index)
}

func checkPercent(p types.Percent, field string, index int) error {
	if p.IsNegative() || p.GreaterThan(types.NewMoney(100)) {
		return apperror.NewValidation("percentage must be between 0 and 100").
			WithDetail("field", field).
			WithDetail("index", index)
	}
	return nil
}

// NewPurchase creates a pending, unpaid purchase.
func NewPurchase(supplierID id.ID) *Purchase {
	return &Purchase{
		Document:       entity.NewDocument(),
		SupplierID:     supplierID,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		Subtotal:       types.Zero(),
		TaxTotal:       types.Zero(),
		OrderTax:       types.Zero(),
		ShippingCost:   types.Zero(),
		DiscountAmount: types.Zero(),
		GrandTotal:     types.Zero(),
		AmountPaid:     types.Zero(),
	}
}

// RecalculateTotals derives each line, the subtotal, the line tax sum and
// the grand total.
func (p *Purchase) RecalculateTotals() {
	subtotal := types.Zero()
	taxTotal := types.Zero()
	for i := range p.Lines {
		p.Lines[i].LineNo = i + 1
		p.Lines[i].Recalculate()
		subtotal = subtotal.Add(p.Lines[i].LineTotal)
		taxTotal = taxTotal.Add(p.Lines[i].TaxAmount)
	}
	p.Subtotal = types.RoundMoney(subtotal)
	p.TaxTotal = types.RoundMoney(taxTotal)
	p.GrandTotal = types.RoundMoney(
		subtotal.Add(taxTotal).Add(p.OrderTax).Add(p.ShippingCost).Sub(p.DiscountAmount))
}

// AmountDue is the unpaid remainder.
func (p *Purchase) AmountDue() types.Money {
	return types.ClampNonNegative(p.GrandTotal.Sub(p.AmountPaid))
}

// ApplyPayment adds amount to AmountPaid and advances PaymentStatus.
func (p *Purchase) ApplyPayment(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}
	newPaid := p.AmountPaid.Add(amount)
	if newPaid.GreaterThan(p.GrandTotal) {
		return apperror.NewValidation("payment exceeds amount due").
			WithDetail("field", "amount").
			WithDetail("amountDue", p.AmountDue().String())
	}
	p.AmountPaid = newPaid
	switch {
	case newPaid.IsZero():
		p.PaymentStatus = PaymentUnpaid
	case newPaid.GreaterThanOrEqual(p.GrandTotal):
		p.PaymentStatus = PaymentPaid
	default:
		p.PaymentStatus = PaymentPartial
	}
	return nil
}

// IsReceived reports whether stock for this purchase was already credited.
func (p *Purchase) IsReceived() bool {
	return p.Status == StatusReceived
}

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.SupplierID) {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplierId")
	}
	if !ValidStatus(p.Status) {
		return apperror.NewValidation("unknown purchase status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}
	if p.ShippingCost.IsNegative() || p.OrderTax.IsNegative() || p.DiscountAmount.IsNegative() {
		return apperror.NewValidation("money amounts cannot be negative")
	}
	for i := range p.Lines {
		if err := p.Lines[i].Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID id.ID   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitCost  float64 `json:"unitCost"`
	Discount  float64 `json:"discount,omitempty"`
	TaxRate   float64 `json:"taxRate,omitempty"`
}

// CreateInput is the request to open a purchase order.
type CreateInput struct {
	SupplierID     id.ID       `json:"supplierId"`
	WarehouseID    *id.ID      `json:"warehouseId,omitempty"`
	PurchaseDate   *time.Time  `json:"purchaseDate,omitempty"`
	DueDate        *time.Time  `json:"dueDate,omitempty"`
	Reference      string      `json:"reference,omitempty"`
	Status         Status      `json:"status,omitempty"`
	OrderTax       float64     `json:"orderTax,omitempty"`
	ShippingCost   float64     `json:"shippingCost,omitempty"`
	DiscountAmount float64     `json:"discountAmount,omitempty"`
	Items          []LineInput `json:"items"`
}

// ListFilter for purchase queries.
type ListFilter struct {
	SupplierID     *id.ID
	WarehouseID    *id.ID
	Status         *Status
	PaymentStatus  *PaymentStatus
	FromDate       *time.Time
	ToDate         *time.Time
	Search         string
	IncludeDeleted bool

	Limit  int
	Offset int
}
