package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
)

// BatchInserter writes many rows of one table with the COPY protocol,
// one round trip instead of one INSERT per row.
type BatchInserter struct {
	txManager *TxManager
}

func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice copies rows into table; each row holds one value per
// column. Outside a transaction the copy runs in its own.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("copy into %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
		}
		converted := make([]any, len(row))
		for j, v := range row {
			cv, err := copyValue(v)
			if err != nil {
				return 0, fmt.Errorf("copy into %s: column %s: %w", table, columns[j], err)
			}
			converted[j] = cv
		}
		values[i] = converted
	}

	var copied int64
	err := b.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := currentTx(ctx).CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(values))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", table, err)
		}
		copied = n
		return nil
	})
	return copied, err
}

// copyValue resolves driver.Valuer values such as decimals and uuids:
// COPY only encodes binary and pgx has no binary plan for them.
func copyValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		return valuer.Value()
	}
	return v, nil
}
