// Package quote_repo provides PostgreSQL implementations of the quote
// aggregate repositories.
package quote_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"hubchantier/internal/core/apperror"
	"hubchantier/internal/core/id"
	"hubchantier/internal/infrastructure/storage/postgres"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// immutableCols are never part of an UPDATE SET clause.
var immutableCols = map[string]bool{
	"id":          true,
	"row_version": true,
	"created_at":  true,
	"created_by":  true,
}

// table provides common CRUD statements for one aggregate table.
// Embed it in the specific repositories.
type table struct {
	txManager  *postgres.TxManager
	batch      *postgres.BatchInserter
	name       string
	entity     string
	selectCols []string
}

func newTable(txManager *postgres.TxManager, name, entity string, selectCols []string) table {
	return table{
		txManager:  txManager,
		batch:      postgres.NewBatchInserter(txManager),
		name:       name,
		entity:     entity,
		selectCols: selectCols,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func (t table) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (t table) querier(ctx context.Context) postgres.Querier {
	return t.txManager.GetQuerier(ctx)
}

// baseSelect creates a SELECT builder over the table columns.
func (t table) baseSelect() squirrel.SelectBuilder {
	return t.Builder().
		Select(t.selectCols...).
		From(t.name)
}

// columns keeps only the "db" values that map to a table column.
func (t table) columns(v any, skip map[string]bool) (map[string]any, error) {
	data := postgres.StructToMap(v)
	if len(data) == 0 {
		return nil, fmt.Errorf("no db tags found in %s", t.entity)
	}

	filtered := make(map[string]any, len(t.selectCols))
	for _, col := range t.selectCols {
		if skip[col] {
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return filtered, nil
}

// insert writes a new row from the entity "db" tags.
func (t table) insert(ctx context.Context, v any, extra map[string]any) error {
	data, err := t.columns(v, nil)
	if err != nil {
		return err
	}
	for k, val := range extra {
		data[k] = val
	}

	sql, args, err := t.Builder().
		Insert(t.name).
		SetMap(data).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := t.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return t.mapWriteError(err, data)
	}
	return nil
}

// copyRows inserts rows of the table entity with a single COPY.
func copyRows[T any](ctx context.Context, t table, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = t.rowValues(row)
	}
	if _, err := t.batch.CopyFromSlice(ctx, t.name, t.selectCols, values); err != nil {
		return t.mapWriteError(err, nil)
	}
	return nil
}

// rowValues lists the column values of v in selectCols order.
func (t table) rowValues(v any) []any {
	data := postgres.StructToMap(v)
	out := make([]any, len(t.selectCols))
	for i, col := range t.selectCols {
		out[i] = data[col]
	}
	return out
}

// update rewrites a row under optimistic locking on row_version.
// The caller bumps the in-memory version once this returns nil.
func (t table) update(ctx context.Context, v any, entityID id.ID, version int) error {
	data, err := t.columns(v, immutableCols)
	if err != nil {
		return err
	}

	sql, args, err := t.Builder().
		Update(t.name).
		SetMap(data).
		Set("row_version", squirrel.Expr("row_version + 1")).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"row_version": version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := t.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return t.mapWriteError(err, data)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(t.entity, entityID.String())
	}
	return nil
}

// get scans the single row matching where into dest.
func (t table) get(ctx context.Context, dest any, where squirrel.Sqlizer, key string) error {
	sql, args, err := t.baseSelect().
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, t.querier(ctx), dest, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return apperror.NewNotFound(t.entity, key)
		}
		return fmt.Errorf("get %s: %w", t.entity, err)
	}
	return nil
}

// list scans every row selected by q into dest.
func (t table) list(ctx context.Context, dest any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, t.querier(ctx), dest, sql, args...); err != nil {
		return fmt.Errorf("list %s: %w", t.entity, err)
	}
	return nil
}

// delete removes the rows matching where. Children go with ON DELETE CASCADE.
func (t table) delete(ctx context.Context, where squirrel.Sqlizer, key string, mustExist bool) error {
	sql, args, err := t.Builder().
		Delete(t.name).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := t.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperror.NewConflict(fmt.Sprintf("Cannot delete %s: it is referenced by other records", t.entity)).
				WithDetail("entity", t.entity).
				WithDetail("id", key).
				WithCause(err)
		}
		return fmt.Errorf("delete %s: %w", t.entity, err)
	}

	if mustExist && result.RowsAffected() == 0 {
		return apperror.NewNotFound(t.entity, key)
	}
	return nil
}

// mapWriteError turns constraint violations into AppErrors.
func (t table) mapWriteError(err error, data map[string]any) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("write %s: %w", t.name, err)
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		field, value := uniqueField(pgErr.ConstraintName, data)
		return apperror.NewDuplicate(t.entity, field, value).WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewConflict(fmt.Sprintf("%s references a missing record", t.entity)).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	}
	return fmt.Errorf("write %s: %w", t.name, err)
}

// uniqueField names the column behind a unique constraint of the schema.
func uniqueField(constraint string, data map[string]any) (string, string) {
	var field string
	switch constraint {
	case "quotes_number_key":
		field = "number"
	case "quote_lots_code_key":
		field = "code"
	default:
		return constraint, ""
	}
	value, ok := data[field]
	if !ok {
		return field, ""
	}
	return field, fmt.Sprint(value)
}
