package store

import (
	"context"
	"database/sql"
	"fmt"

	"ticket-service/internal/models"
)

// CreateOrder persists a pending order together with its ticket-type
// lines in one transaction. Redeemable ticket rows are not created
// here; they materialize only when the order completes.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, lines []models.TicketLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("order %s has no ticket lines", order.ID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, total_amount, customer_name, customer_phone, customer_email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if err := tx.GetContext(ctx, &order.CreatedAt, query,
		order.ID, order.TotalAmount, order.CustomerName, order.CustomerPhone,
		order.CustomerEmail, models.OrderStatusPending); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO order_lines (order_id, label, quantity, unit_price) VALUES ($1, $2, $3, $4)",
			order.ID, line.Label, line.Quantity, line.UnitPrice); err != nil {
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderLines retrieves the ticket-type lines of an order
func (s *Store) GetOrderLines(ctx context.Context, orderID string) ([]models.TicketLine, error) {
	var lines []models.TicketLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT label, quantity, unit_price FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

// CompleteOrder transitions a pending order to completed and creates
// its ticket rows, atomically. Either the order completes with at
// least one active ticket or nothing is written.
func (s *Store) CompleteOrder(ctx context.Context, orderID, approvalNo, transactionNo, payMethod string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, approval_no = $2, transaction_no = $3, pay_method = $4, remaining_amount = total_amount
		WHERE id = $5 AND status = $6`,
		models.OrderStatusCompleted, approvalNo, transactionNo, payMethod,
		orderID, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("order %s is not pending", orderID)
	}

	var lines []models.TicketLine
	if err := tx.SelectContext(ctx, &lines,
		"SELECT label, quantity, unit_price FROM order_lines WHERE order_id = $1 ORDER BY id", orderID); err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("order %s has no ticket lines", orderID)
	}

	for _, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tickets (order_id, label, quantity, unit_price, status) VALUES ($1, $2, $3, $4, $5)",
			orderID, line.Label, line.Quantity, line.UnitPrice, models.TicketStatusActive); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
	}

	return tx.Commit()
}

// CancelOrder records a settled cancellation. Guarded on the completed
// status so a cancel can never touch a pending or already-cancelled
// order.
func (s *Store) CancelOrder(ctx context.Context, orderID string, amount int64, reason string, remaining int64, partial bool) error {
	status := models.OrderStatusCancelled
	if partial {
		status = models.OrderStatusPartialCancelled
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, cancel_reason = $2, cancelled_amount = cancelled_amount + $3,
		    remaining_amount = $4, cancelled_at = NOW()
		WHERE id = $5 AND status = $6`,
		status, reason, amount, remaining, orderID, models.OrderStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("order %s is not completed", orderID)
	}
	return nil
}

// GetTicketsByOrderID retrieves all tickets under an order
func (s *Store) GetTicketsByOrderID(ctx context.Context, orderID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.SelectContext(ctx, &tickets,
		"SELECT * FROM tickets WHERE order_id = $1 ORDER BY id", orderID)
	return tickets, err
}

// RedeemOrder appends the scan log entry and flips every ticket under
// the order to used, atomically. The unique constraint on
// scan_logs.order_id is the at-most-once guard: if the insert is a
// no-op the prior entry is returned and nothing else changes, so two
// concurrent scans can never both succeed.
func (s *Store) RedeemOrder(ctx context.Context, entry *models.ScanLogEntry) (bool, *models.ScanLogEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scan_logs (id, order_id, code, scanner_id, location, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO NOTHING`,
		entry.ID, entry.OrderID, entry.Code, entry.ScannerID, entry.Location, entry.ScannedAt)
	if err != nil {
		return false, nil, fmt.Errorf("failed to insert scan log: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		var prior models.ScanLogEntry
		if err := tx.GetContext(ctx, &prior,
			"SELECT * FROM scan_logs WHERE order_id = $1", entry.OrderID); err != nil {
			return false, nil, fmt.Errorf("failed to load prior scan log: %w", err)
		}
		return false, &prior, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tickets SET status = $1, used_at = $2 WHERE order_id = $3",
		models.TicketStatusUsed, entry.ScannedAt, entry.OrderID); err != nil {
		return false, nil, fmt.Errorf("failed to mark tickets used: %w", err)
	}

	return true, nil, tx.Commit()
}

// UnredeemOrder deletes the scan log entry and reverts the tickets to
// active. Operator-facing reversal; errors if the order was never
// redeemed.
func (s *Store) UnredeemOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM scan_logs WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to delete scan log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s has no scan log", orderID)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE tickets SET status = $1, used_at = NULL WHERE order_id = $2",
		models.TicketStatusActive, orderID); err != nil {
		return fmt.Errorf("failed to revert tickets: %w", err)
	}

	return tx.Commit()
}

// GetScanLogByOrderID retrieves the scan log entry for an order, or
// nil if the order has not been redeemed.
func (s *Store) GetScanLogByOrderID(ctx context.Context, orderID string) (*models.ScanLogEntry, error) {
	var entry models.ScanLogEntry
	err := s.db.GetContext(ctx, &entry, "SELECT * FROM scan_logs WHERE order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
