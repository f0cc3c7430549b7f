// Package transfer provides the StockTransfer document: a directed movement
// of one product between two locations with an explicit lifecycle.
package transfer

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
)

// Status is the transfer lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// allowedTransitions maps each state to its legal successors.
// Received and Cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusReceived, StatusCancelled},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// StockTransfer moves a quantity of one product from one location to
// another. Creation has no stock effect; shipping decrements the source,
// receiving increments the destination, and cancelling a shipped transfer
// compensates the source.
type StockTransfer struct {
	entity.Document

	ProductID      id.ID `db:"product_id" json:"productId"`
	FromLocationID id.ID `db:"from_location_id" json:"fromLocationId"`
	ToLocationID   id.ID `db:"to_location_id" json:"toLocationId"`

	Quantity int `db:"quantity" json:"quantity"`

	Status Status `db:"status" json:"status"`

	// Per-transition actors and timestamps
	RequestedBy string     `db:"requested_by" json:"requestedBy"`
	RequestedAt time.Time  `db:"requested_at" json:"requestedAt"`
	ShippedBy   *string    `db:"shipped_by" json:"shippedBy,omitempty"`
	ShippedAt   *time.Time `db:"shipped_at" json:"shippedAt,omitempty"`
	ReceivedBy  *string    `db:"received_by" json:"receivedBy,omitempty"`
	ReceivedAt  *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	CancelledBy *string    `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`

	CancellationReason *string `db:"cancellation_reason" json:"cancellationReason,omitempty"`

	Notes string `db:"notes" json:"notes,omitempty"`
}

// NewStockTransfer creates a pending transfer with a generated number.
func NewStockTransfer(productID, fromLocationID, toLocationID id.ID, quantity int, requestedBy string) *StockTransfer {
	doc := entity.NewDocument()
	return &StockTransfer{
		Document:       doc,
		ProductID:      productID,
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Quantity:       quantity,
		Status:         StatusPending,
		RequestedBy:    requestedBy,
		RequestedAt:    doc.CreatedAt,
	}
}

// NewTransferNumber generates a transfer number: "TR-" plus 8 uppercase
// hex characters from a CSPRNG.
func NewTransferNumber() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate transfer number: %w", err)
	}
	return fmt.Sprintf("TR-%02X%02X%02X%02X", buf[0], buf[1], buf[2], buf[3]), nil
}

// Validate implements entity.Validatable.
func (t *StockTransfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required").WithDetail("field", "productId")
	}
	if id.IsNil(t.FromLocationID) {
		return apperror.NewValidation("source location is required").WithDetail("field", "fromLocationId")
	}
	if id.IsNil(t.ToLocationID) {
		return apperror.NewValidation("destination location is required").WithDetail("field", "toLocationId")
	}
	if t.FromLocationID == t.ToLocationID {
		return apperror.NewValidation("source and destination locations must differ").
			WithDetail("field", "toLocationId")
	}
	if t.Quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").
			WithDetail("field", "quantity").
			WithDetail("value", t.Quantity)
	}
	return nil
}

// InvolvesLocation reports whether locationID is either endpoint.
func (t *StockTransfer) InvolvesLocation(locationID string) bool {
	return t.FromLocationID.String() == locationID || t.ToLocationID.String() == locationID
}

// CreateInput is the request to open a transfer.
type CreateInput struct {
	ProductID      id.ID  `json:"productId"`
	FromLocationID id.ID  `json:"fromLocationId"`
	ToLocationID   id.ID  `json:"toLocationId"`
	Quantity       int    `json:"quantity"`
	Notes          string `json:"notes,omitempty"`
}

// ListFilter for transfer queries. LocationID matches either endpoint.
type ListFilter struct {
	Status     *Status
	ProductID  *id.ID
	LocationID *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
	Search     string

	Limit  int
	Offset int
}
