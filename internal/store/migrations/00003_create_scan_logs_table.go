package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upScanLogsTable, downScanLogsTable)
}

func upScanLogsTable(ctx context.Context, tx *sql.Tx) error {
	// the UNIQUE constraint on order_id is the at-most-once redemption
	// guard; do not relax it
	_, err := tx.ExecContext(ctx, `CREATE TABLE scan_logs
(
    id UUID PRIMARY KEY,
    order_id VARCHAR(64) NOT NULL UNIQUE REFERENCES orders (id),
    code VARCHAR(255) NOT NULL,
    scanner_id VARCHAR(64) NOT NULL,
    location VARCHAR(128) NOT NULL DEFAULT '',
    scanned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`)
	return err
}

func downScanLogsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE scan_logs;")
	return err
}
