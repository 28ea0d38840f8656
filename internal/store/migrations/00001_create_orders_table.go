package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upOrdersTable, downOrdersTable)
}

func upOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE orders
(
    id VARCHAR(64) PRIMARY KEY,
    total_amount BIGINT NOT NULL,
    customer_name VARCHAR(255) NOT NULL,
    customer_phone VARCHAR(32) NOT NULL,
    customer_email VARCHAR(255) NOT NULL DEFAULT '',
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    approval_no VARCHAR(64) NOT NULL DEFAULT '',
    transaction_no VARCHAR(64) NOT NULL DEFAULT '',
    pay_method VARCHAR(32) NOT NULL DEFAULT '',
    cancel_reason VARCHAR(255) NOT NULL DEFAULT '',
    cancelled_amount BIGINT NOT NULL DEFAULT 0,
    remaining_amount BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    cancelled_at TIMESTAMPTZ
);`)
	return err
}

func downOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE orders;")
	return err
}
