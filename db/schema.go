package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	if err := CreateOrdersTable(ctx, db); err != nil {
		return fmt.Errorf("creating orders table: %w", err)
	}

	return nil
}
