package sale

import (
	"context"
	"time"

	"tradepost/internal/core/id"
	"tradepost/internal/core/types"
)

// IncomeSourcePOS tags revenue originating from the register.
const IncomeSourcePOS = "POS Sale"

// Income is a denormalised revenue event. Every completed sale posts
// exactly one, with the sale's total as the amount.
type Income struct {
	ID     id.ID       `db:"id" json:"id"`
	Source string      `db:"source" json:"source"`
	Amount types.Money `db:"amount" json:"amount"`
	Date   time.Time   `db:"date" json:"date"`

	SaleID     id.ID `db:"sale_id" json:"saleId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewIncome posts the sale's total as POS revenue.
func NewIncome(s *Sale, actorID string) *Income {
	return &Income{
		ID:         id.New(),
		Source:     IncomeSourcePOS,
		Amount:     s.Total,
		Date:       s.Date,
		SaleID:     s.ID,
		LocationID: s.LocationID,
		CreatedBy:  actorID,
		CreatedAt:  time.Now().UTC(),
	}
}

// IncomeRepository persists revenue events.
type IncomeRepository interface {
	Create(ctx context.Context, income *Income) error
	ListBySale(ctx context.Context, saleID id.ID) ([]Income, error)
}
