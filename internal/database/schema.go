package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.surql
var schema string

// Migrate defines the onboarding tables and indexes. It is idempotent.
func Migrate(ctx context.Context, db Database) error {
	if err := db.Execute(ctx, schema, nil); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
