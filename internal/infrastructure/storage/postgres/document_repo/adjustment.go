package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradepost/internal/core/apperror"
	"tradepost/internal/core/id"
	"tradepost/internal/domain"
	"tradepost/internal/domain/documents/adjustment"
	"tradepost/internal/infrastructure/storage/postgres"
)

const adjustmentsTable = "doc_adjustments"

// AdjustmentRepo implements adjustment.Repository.
type AdjustmentRepo struct {
	*BaseDocumentRepo[*adjustment.StockAdjustment]
}

var _ adjustment.Repository = (*AdjustmentRepo)(nil)

// NewAdjustmentRepo creates a new stock adjustment repository.
func NewAdjustmentRepo(txm *postgres.TxManager) *AdjustmentRepo {
	return &AdjustmentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*adjustment.StockAdjustment](
			txm,
			adjustmentsTable,
			postgres.ExtractDBColumns[adjustment.StockAdjustment](),
			func() *adjustment.StockAdjustment { return &adjustment.StockAdjustment{} },
		),
	}
}

// UpdateEditable persists reason and reference number, the only fields
// the update policy allows to change after creation.
func (r *AdjustmentRepo) UpdateEditable(ctx context.Context, adjID id.ID, reason, referenceNumber string) error {
	q := r.Builder().
		Update(adjustmentsTable).
		Set("reason", reason).
		Set("reference_number", referenceNumber).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": adjID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", adjustmentsTable, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(adjustmentsTable, adjID.String())
	}

	return nil
}

// List retrieves adjustment history with filtering.
func (r *AdjustmentRepo) List(ctx context.Context, filter adjustment.ListFilter) (domain.ListResult[*adjustment.StockAdjustment], error) {
	result := domain.ListResult[*adjustment.StockAdjustment]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}

	if filter.UserID != nil {
		q = q.Where(squirrel.Eq{"created_by": *filter.UserID})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}

	if filter.Reference != "" {
		q = q.Where(squirrel.Eq{"reference_number": filter.Reference})
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"reference_number": searchPattern},
			squirrel.ILike{"reason": searchPattern},
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
