package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchStmt is one statement queued into a batched round trip.
type BatchStmt struct {
	SQL  string
	Args []any
}

// ExecBatch sends all statements to the server in a single round trip and
// executes them in order. Requires an open transaction in ctx; document
// line rewrites (delete then re-insert) are the main caller.
func (m *TxManager) ExecBatch(ctx context.Context, stmts []BatchStmt) error {
	tx := m.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("ExecBatch requires a transaction")
	}

	batch := &pgx.Batch{}
	for _, s := range stmts {
		batch.Queue(s.SQL, s.Args...)
	}

	results := tx.Tx.SendBatch(ctx, batch)
	defer results.Close()

	for range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement: %w", err)
		}
	}

	return nil
}

// CopyInto bulk-inserts rows with the COPY protocol. Only worth it over a
// multi-values INSERT past a few hundred rows. Requires an open transaction.
func (m *TxManager) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := m.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("CopyInto requires a transaction")
	}

	return tx.Tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}
