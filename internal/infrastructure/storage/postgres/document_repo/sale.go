package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradepost/internal/core/id"
	"tradepost/internal/core/types"
	"tradepost/internal/domain"
	"tradepost/internal/domain/documents/sale"
	"tradepost/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
	incomesTable   = "incomes"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*sale.Sale](
			txm,
			salesTable,
			postgres.ExtractDBColumns[sale.Sale](),
			func() *sale.Sale { return &sale.Sale{} },
		),
	}
}

func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sale.SaleLine, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_id", "quantity", "unit_price", "discount", "line_total").
		From(saleLinesTable).
		Where(squirrel.Eq{"document_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sale.SaleLine
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sale.SaleLine) error {
	txm := r.getTxManager(ctx)
	deleteSQL := "DELETE FROM " + saleLinesTable + " WHERE document_id = $1"

	if len(lines) == 0 {
		if _, err := txm.GetQuerier(ctx).Exec(ctx, deleteSQL, saleID); err != nil {
			return fmt.Errorf("delete existing lines: %w", err)
		}
		return nil
	}

	q := r.Builder().
		Insert(saleLinesTable).
		Columns("line_id", "document_id", "line_no", "product_id", "quantity", "unit_price", "discount", "line_total")

	for _, line := range lines {
		q = q.Values(
			line.LineID, saleID, line.LineNo, line.ProductID,
			line.Quantity, line.UnitPrice, line.Discount, line.LineTotal,
		)
	}

	insertSQL, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	// Delete and re-insert in one round trip. SaveLines always runs inside
	// the document transaction, so the batch shares its visibility.
	return txm.ExecBatch(ctx, []postgres.BatchStmt{
		{SQL: deleteSQL, Args: []any{saleID}},
		{SQL: insertSQL, Args: args},
	})
}

// List retrieves sales with filtering.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	result := domain.ListResult[*sale.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.baseSelect(ctx).Where(squirrel.Eq{"deletion_mark": false})

	if filter.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *filter.LocationID})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.PaymentMethod != nil {
		q = q.Where(squirrel.Eq{"payment_method": *filter.PaymentMethod})
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
			squirrel.ILike{"customer_name": searchPattern},
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

// Stats aggregates completed sales: totals, sold item count and a
// payment-method breakdown.
func (r *SaleRepo) Stats(ctx context.Context, filter sale.StatsFilter) (*sale.Stats, error) {
	where := squirrel.And{
		squirrel.Eq{"s.status": sale.StatusCompleted},
		squirrel.Eq{"s.deletion_mark": false},
	}
	if filter.LocationID != nil {
		where = append(where, squirrel.Eq{"s.location_id": *filter.LocationID})
	}
	if filter.FromDate != nil {
		where = append(where, squirrel.GtOrEq{"s.date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		where = append(where, squirrel.LtOrEq{"s.date": *filter.ToDate})
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	stats := &sale.Stats{
		TotalRevenue: types.Zero(),
		AverageSale:  types.Zero(),
	}

	totalsQ := r.Builder().
		Select("COUNT(*)", "COALESCE(SUM(s.total), 0)").
		From(salesTable + " s").
		Where(where)
	totalsSQL, totalsArgs, err := totalsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}
	if err := querier.QueryRow(ctx, totalsSQL, totalsArgs...).
		Scan(&stats.TotalSales, &stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}

	itemsQ := r.Builder().
		Select("COALESCE(SUM(l.quantity), 0)").
		From(saleLinesTable + " l").
		Join(salesTable + " s ON s.id = l.document_id").
		Where(where)
	itemsSQL, itemsArgs, err := itemsQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items: %w", err)
	}
	if err := querier.QueryRow(ctx, itemsSQL, itemsArgs...).Scan(&stats.TotalItems); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}

	byMethodQ := r.Builder().
		Select("s.payment_method", "COUNT(*) AS count", "COALESCE(SUM(s.total), 0) AS revenue").
		From(salesTable + " s").
		Where(where).
		GroupBy("s.payment_method").
		OrderBy("s.payment_method")
	byMethodSQL, byMethodArgs, err := byMethodQ.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build breakdown: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &stats.ByPaymentMethod, byMethodSQL, byMethodArgs...); err != nil {
		return nil, fmt.Errorf("breakdown: %w", err)
	}

	if stats.TotalSales > 0 {
		stats.AverageSale = types.RoundMoney(
			stats.TotalRevenue.Div(types.NewMoney(float64(stats.TotalSales))))
	}

	return stats, nil
}

// IncomeRepo persists the revenue events posted by completed sales.
type IncomeRepo struct {
	txm *postgres.TxManager
}

var _ sale.IncomeRepository = (*IncomeRepo)(nil)

// NewIncomeRepo creates a new income repository.
func NewIncomeRepo(txm *postgres.TxManager) *IncomeRepo {
	return &IncomeRepo{txm: txm}
}

func (r *IncomeRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *IncomeRepo) Create(ctx context.Context, income *sale.Income) error {
	q := r.builder().
		Insert(incomesTable).
		Columns("id", "source", "amount", "date", "sale_id", "location_id", "created_by", "created_at").
		Values(
			income.ID, income.Source, income.Amount, income.Date,
			income.SaleID, income.LocationID, income.CreatedBy, income.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert income: %w", err)
	}

	return nil
}

func (r *IncomeRepo) ListBySale(ctx context.Context, saleID id.ID) ([]sale.Income, error) {
	q := r.builder().
		Select("id", "source", "amount", "date", "sale_id", "location_id", "created_by", "created_at").
		From(incomesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var incomes []sale.Income
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &incomes, sql, args...); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}

	return incomes, nil
}
