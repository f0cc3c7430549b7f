// Package entity provides core domain entities.
package entity

import (
	"time"

	"tradepost/internal/core/id"
)

// EntryAction tags the operation that produced a stock ledger entry.
type EntryAction string

const (
	ActionAdjustment          EntryAction = "adjustment"
	ActionInitialStock        EntryAction = "initial_stock"
	ActionSale                EntryAction = "sale"
	ActionPurchaseReceived    EntryAction = "purchase_received"
	ActionTransferOut         EntryAction = "transfer_out"
	ActionTransferIn          EntryAction = "transfer_in"
	ActionTransferOutReversed EntryAction = "transfer_out_reversed"
)

// EntryRefs carries optional back-references from a ledger entry to the
// document that caused it. At most one reference is set per entry.
type EntryRefs struct {
	SaleID       *id.ID `db:"sale_id" json:"saleId,omitempty"`
	TransferID   *id.ID `db:"transfer_id" json:"transferId,omitempty"`
	AdjustmentID *id.ID `db:"adjustment_id" json:"adjustmentId,omitempty"`
	PurchaseID   *id.ID `db:"purchase_id" json:"purchaseId,omitempty"`
}

// RefSale builds refs pointing at a sale.
func RefSale(saleID id.ID) EntryRefs { return EntryRefs{SaleID: &saleID} }

// RefTransfer builds refs pointing at a transfer.
func RefTransfer(transferID id.ID) EntryRefs { return EntryRefs{TransferID: &transferID} }

// RefAdjustment builds refs pointing at an adjustment.
func RefAdjustment(adjustmentID id.ID) EntryRefs { return EntryRefs{AdjustmentID: &adjustmentID} }

// RefPurchase builds refs pointing at a purchase.
func RefPurchase(purchaseID id.ID) EntryRefs { return EntryRefs{PurchaseID: &purchaseID} }

// StockEntry is one element of an inventory record's append-only audit log.
// Entries are immutable: never updated, never deleted. The log is the source
// of truth for quantity history; the sum of Delta values over a record's
// entries equals its current quantity, and the last entry's NewQuantity
// matches the record.
type StockEntry struct {
	// LineID is unique identifier for this entry (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecordID is the inventory record this entry belongs to
	RecordID id.ID `db:"record_id" json:"recordId"`

	// Seq orders entries within one record (assigned by storage)
	Seq int64 `db:"seq" json:"seq"`

	// Action tags the operation family that produced the entry
	Action EntryAction `db:"action" json:"action"`

	// Delta is the signed quantity change
	Delta int `db:"delta" json:"delta"`

	// NewQuantity is the record quantity after applying Delta
	NewQuantity int `db:"new_quantity" json:"newQuantity"`

	// Note is free text attached by the caller
	Note string `db:"note" json:"note,omitempty"`

	// ActorID is the user who caused the mutation
	ActorID string `db:"actor_id" json:"actorId"`

	EntryRefs

	// CreatedAt is when the entry was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockEntry creates a ledger entry with generated LineID.
// Seq is assigned by the storage layer at insert time.
func NewStockEntry(recordID id.ID, action EntryAction, delta, newQuantity int, note, actorID string, refs EntryRefs) StockEntry {
	return StockEntry{
		LineID:      id.New(),
		RecordID:    recordID,
		Action:      action,
		Delta:       delta,
		NewQuantity: newQuantity,
		Note:        note,
		ActorID:     actorID,
		EntryRefs:   refs,
		CreatedAt:   time.Now().UTC(),
	}
}
