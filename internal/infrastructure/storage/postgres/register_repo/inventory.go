// Package register_repo provides PostgreSQL implementations for the stock
// ledger: inventory records and their append-only audit entries.
package register_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/entity"
	"tradepost/internal/core/id"
	"tradepost/internal/domain/inventory"
	"tradepost/internal/infrastructure/storage/postgres"
)

const (
	inventoryRecordsTable = "inv_records"
	inventoryEntriesTable = "inv_entries"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewInventoryRepo creates the inventory ledger repository.
func NewInventoryRepo(txm *postgres.TxManager) *InventoryRepo {
	return &InventoryRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var recordColumns = []string{
	"id", "product_id", "location_id", "quantity",
	"min_stock", "notify_at", "last_notified",
	"created_by", "created_at", "updated_at", "version",
}

// Create inserts a new record. Unique violations on (product, location)
// surface as duplicate errors so callers can retry by re-reading.
func (r *InventoryRepo) Create(ctx context.Context, record *inventory.Record) error {
	q := r.builder.Insert(inventoryRecordsTable).
		Columns(recordColumns...).
		Values(
			record.ID, record.ProductID, record.LocationID, record.Quantity,
			record.MinStock, record.NotifyAt, record.LastNotified,
			record.CreatedBy, record.CreatedAt, record.UpdatedAt, record.Version,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperror.NewDuplicate("inventory record", "product and location",
				fmt.Sprintf("%s@%s", record.ProductID, record.LocationID)).WithCause(err)
		}
		return fmt.Errorf("insert inventory record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by ID.
func (r *InventoryRepo) GetByID(ctx context.Context, recordID id.ID) (*inventory.Record, error) {
	q := r.builder.Select(recordColumns...).
		From(inventoryRecordsTable).
		Where(squirrel.Eq{"id": recordID}).
		Limit(1)

	return r.getOne(ctx, q, recordID.String())
}

// GetByProductLocation retrieves the record for (product, location).
func (r *InventoryRepo) GetByProductLocation(ctx context.Context, productID, locationID id.ID) (*inventory.Record, error) {
	q := r.builder.Select(recordColumns...).
		From(inventoryRecordsTable).
		Where(squirrel.Eq{"product_id": productID, "location_id": locationID}).
		Limit(1)

	return r.getOne(ctx, q, fmt.Sprintf("%s@%s", productID, locationID))
}

func (r *InventoryRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*inventory.Record, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var record inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &record, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory record", key)
		}
		return nil, fmt.Errorf("get inventory record: %w", err)
	}

	return &record, nil
}

// GetForUpdate retrieves a record with a row lock.
func (r *InventoryRepo) GetForUpdate(ctx context.Context, recordID id.ID) (*inventory.Record, error) {
	sql := `
		SELECT id, product_id, location_id, quantity,
		       min_stock, notify_at, last_notified,
		       created_by, created_at, updated_at, version
		FROM inv_records
		WHERE id = $1
		FOR UPDATE
	`

	var record inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &record, sql, recordID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory record", recordID.String())
		}
		return nil, fmt.Errorf("get record for update: %w", err)
	}

	return &record, nil
}

// GetForUpdateByProductLocation locks the record for (product, location).
func (r *InventoryRepo) GetForUpdateByProductLocation(ctx context.Context, productID, locationID id.ID) (*inventory.Record, error) {
	sql := `
		SELECT id, product_id, location_id, quantity,
		       min_stock, notify_at, last_notified,
		       created_by, created_at, updated_at, version
		FROM inv_records
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE
	`

	var record inventory.Record
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &record, sql, productID, locationID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("inventory record",
				fmt.Sprintf("%s@%s", productID, locationID))
		}
		return nil, fmt.Errorf("get record for update: %w", err)
	}

	return &record, nil
}

// UpdateQuantity writes the new quantity for a record.
func (r *InventoryRepo) UpdateQuantity(ctx context.Context, recordID id.ID, quantity int) error {
	sql := `
		UPDATE inv_records
		SET quantity = $2, updated_at = now(), version = version + 1
		WHERE id = $1
	`

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, recordID, quantity)
	if err != nil {
		return fmt.Errorf("update quantity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory record", recordID.String())
	}

	return nil
}

// UpdateThresholds writes min_stock / notify_at.
func (r *InventoryRepo) UpdateThresholds(ctx context.Context, recordID id.ID, minStock, notifyAt int) error {
	sql := `
		UPDATE inv_records
		SET min_stock = $2, notify_at = $3, updated_at = now(), version = version + 1
		WHERE id = $1
	`

	querier := r.txm.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, recordID, minStock, notifyAt)
	if err != nil {
		return fmt.Errorf("update thresholds: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("inventory record", recordID.String())
	}

	return nil
}

// MarkNotified records when a low-stock alert was last sent.
func (r *InventoryRepo) MarkNotified(ctx context.Context, recordID id.ID, at time.Time) error {
	sql := `UPDATE inv_records SET last_notified = $2 WHERE id = $1`

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, recordID, at); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}

	return nil
}

// AppendEntry appends an audit entry, assigning the next per-record Seq.
// The caller holds a row lock on the record, which serialises Seq assignment.
func (r *InventoryRepo) AppendEntry(ctx context.Context, entry *entity.StockEntry) error {
	sql := `
		INSERT INTO inv_entries (
			line_id, record_id, seq, action, delta, new_quantity,
			note, actor_id, sale_id, transfer_id, adjustment_id, purchase_id,
			created_at
		)
		VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM inv_entries WHERE record_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING seq
	`

	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql,
		entry.LineID, entry.RecordID, entry.Action, entry.Delta, entry.NewQuantity,
		entry.Note, entry.ActorID,
		entry.SaleID, entry.TransferID, entry.AdjustmentID, entry.PurchaseID,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListEntries returns a record's audit log, oldest first.
func (r *InventoryRepo) ListEntries(ctx context.Context, recordID id.ID, limit, offset int) ([]entity.StockEntry, error) {
	q := r.builder.Select(
		"line_id", "record_id", "seq", "action", "delta", "new_quantity",
		"note", "actor_id", "sale_id", "transfer_id", "adjustment_id", "purchase_id",
		"created_at",
	).From(inventoryEntriesTable).
		Where(squirrel.Eq{"record_id": recordID}).
		OrderBy("seq ASC")

	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []entity.StockEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}

	return entries, nil
}

// List retrieves records matching the filter.
func (r *InventoryRepo) List(ctx context.Context, filter inventory.Filter) (inventory.ListResult, error) {
	result := inventory.ListResult{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	base := r.builder.Select().From(inventoryRecordsTable)

	if filter.ProductID != nil {
		base = base.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		base = base.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}
	if len(filter.LocationIDs) > 0 {
		base = base.Where(squirrel.Eq{"location_id": filter.LocationIDs})
	}
	if filter.LowStockOnly {
		base = base.Where("quantity <= GREATEST(notify_at, min_stock) AND GREATEST(notify_at, min_stock) > 0")
	}

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count records: %w", err)
	}

	q := base.Columns(recordColumns...).OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build list query: %w", err)
	}

	var records []*inventory.Record
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return result, fmt.Errorf("select records: %w", err)
	}
	result.Items = records

	return result, nil
}

// Ensure interface compliance.
var _ inventory.Repository = (*InventoryRepo)(nil)
