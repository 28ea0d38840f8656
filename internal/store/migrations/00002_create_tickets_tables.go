package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upTicketsTables, downTicketsTables)
}

func upTicketsTables(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `CREATE TABLE order_lines
(
    id BIGSERIAL PRIMARY KEY,
    order_id VARCHAR(64) NOT NULL REFERENCES orders (id),
    label VARCHAR(64) NOT NULL,
    quantity INT NOT NULL,
    unit_price BIGINT NOT NULL
);`); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx, `CREATE TABLE tickets
(
    id BIGSERIAL PRIMARY KEY,
    order_id VARCHAR(64) NOT NULL REFERENCES orders (id),
    label VARCHAR(64) NOT NULL,
    quantity INT NOT NULL,
    unit_price BIGINT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'active',
    used_at TIMESTAMPTZ
);`)
	return err
}

func downTicketsTables(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DROP TABLE tickets;"); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DROP TABLE order_lines;")
	return err
}
