package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradepost/internal/domain"
	"tradepost/internal/domain/documents/transfer"
	"tradepost/internal/infrastructure/storage/postgres"
)

const transfersTable = "doc_transfers"

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	*BaseDocumentRepo[*transfer.StockTransfer]
}

var _ transfer.Repository = (*TransferRepo)(nil)

// NewTransferRepo creates a new stock transfer repository.
func NewTransferRepo(txm *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*transfer.StockTransfer](
			txm,
			transfersTable,
			postgres.ExtractDBColumns[transfer.StockTransfer](),
			func() *transfer.StockTransfer { return &transfer.StockTransfer{} },
		),
	}
}

// List retrieves transfers with filtering. LocationID matches either endpoint.
func (r *TransferRepo) List(ctx context.Context, filter transfer.ListFilter) (domain.ListResult[*transfer.StockTransfer], error) {
	result := domain.ListResult[*transfer.StockTransfer]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}

	if filter.LocationID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_location_id": *filter.LocationID},
			squirrel.Eq{"to_location_id": *filter.LocationID},
		})
	}

	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"requested_at": *filter.FromDate})
	}

	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"requested_at": *filter.ToDate})
	}

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
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

	q = q.OrderBy("requested_at DESC")

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
