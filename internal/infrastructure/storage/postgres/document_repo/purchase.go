package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
	"tradepost/internal/domain"
	"tradepost/internal/domain/documents/purchase"
	"tradepost/internal/infrastructure/storage/postgres"
)

const (
	purchasesTable     = "doc_purchases"
	purchaseLinesTable = "doc_purchase_lines"
)

// PurchaseRepo implements purchase.Repository.
type PurchaseRepo struct {
	*BaseDocumentRepo[*purchase.Purchase]
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

// NewPurchaseRepo creates a new purchase repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*purchase.Purchase](
			txm,
			purchasesTable,
			postgres.ExtractDBColumns[purchase.Purchase](),
			func() *purchase.Purchase { return &purchase.Purchase{} },
		),
	}
}

func (r *PurchaseRepo) GetLines(ctx context.Context, purchaseID id.ID) ([]purchase.PurchaseLine, error) {
	q := r.Builder().
		Select(
			"line_id", "line_no", "product_id",
			"quantity", "unit_cost", "discount", "tax_rate", "tax_amount", "line_total",
		).
		From(purchaseLinesTable).
		Where(squirrel.Eq{"document_id": purchaseID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase.PurchaseLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// copyLinesThreshold is the line count above which SaveLines switches from a
// multi-values INSERT to the COPY protocol.
const copyLinesThreshold = 200

func (r *PurchaseRepo) SaveLines(ctx context.Context, purchaseID id.ID, lines []purchase.PurchaseLine) error {
	txm := r.getTxManager(ctx)
	deleteSQL := "DELETE FROM " + purchaseLinesTable + " WHERE document_id = $1"

	columns := []string{
		"line_id", "document_id", "line_no", "product_id",
		"quantity", "unit_cost", "discount", "tax_rate", "tax_amount", "line_total",
	}

	if len(lines) == 0 {
		if _, err := txm.GetQuerier(ctx).Exec(ctx, deleteSQL, purchaseID); err != nil {
			return fmt.Errorf("delete existing lines: %w", err)
		}
		return nil
	}

	if len(lines) >= copyLinesThreshold {
		if _, err := txm.GetQuerier(ctx).Exec(ctx, deleteSQL, purchaseID); err != nil {
			return fmt.Errorf("delete existing lines: %w", err)
		}

		rows := make([][]any, 0, len(lines))
		for _, line := range lines {
			rows = append(rows, []any{
				line.LineID, purchaseID, line.LineNo, line.ProductID,
				line.Quantity, line.UnitCost, line.Discount, line.TaxRate, line.TaxAmount, line.LineTotal,
			})
		}

		if _, err := txm.CopyInto(ctx, purchaseLinesTable, columns, rows); err != nil {
			return fmt.Errorf("copy lines: %w", err)
		}
		return nil
	}

	q := r.Builder().
		Insert(purchaseLinesTable).
		Columns(columns...)

	for _, line := range lines {
		q = q.Values(
			line.LineID, purchaseID, line.LineNo, line.ProductID,
			line.Quantity, line.UnitCost, line.Discount, line.TaxRate, line.TaxAmount, line.LineTotal,
		)
	}

	insertSQL, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	return txm.ExecBatch(ctx, []postgres.BatchStmt{
		{SQL: deleteSQL, Args: []any{purchaseID}},
		{SQL: insertSQL, Args: args},
	})
}

// SetDeletionMark soft-deletes or restores a purchase.
func (r *PurchaseRepo) SetDeletionMark(ctx context.Context, purchaseID id.ID, marked bool) error {
	q := r.Builder().
		Update(purchasesTable).
		Set("deletion_mark", marked).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": purchaseID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.getTxManager(ctx).GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(purchasesTable, purchaseID.String())
	}

	return nil
}

// List retrieves purchases with filtering.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) (domain.ListResult[*purchase.Purchase], error) {
	result := domain.ListResult[*purchase.Purchase]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.PaymentStatus != nil {
		q = q.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"reference": searchPattern},
		})
	}

	countQ := r.Builder().Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("date DESC", "number DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}
