package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecBatch_RequiresTransaction(t *testing.T) {
	m := &TxManager{}

	err := m.ExecBatch(context.Background(), []BatchStmt{{SQL: "SELECT 1"}})

	assert.ErrorContains(t, err, "requires a transaction")
}

func TestCopyInto_RequiresTransaction(t *testing.T) {
	m := &TxManager{}

	_, err := m.CopyInto(context.Background(), "doc_purchase_lines", []string{"line_id"}, [][]any{{"x"}})

	assert.ErrorContains(t, err, "requires a transaction")
}
