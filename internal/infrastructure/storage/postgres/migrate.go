package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"hubchantier/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// schemaLockID serializes concurrent migrations across instances.
const schemaLockID = 0x68756263

// Schema returns the embedded DDL.
func Schema() string {
	return schemaSQL
}

// Migrate applies the embedded schema in one transaction under an advisory lock.
func Migrate(ctx context.Context, txm *TxManager) error {
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		q := txm.GetQuerier(ctx)
		if _, err := q.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockID); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if _, err := q.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "database schema applied")
	return nil
}
