package models

import "time"

// Order represents one admission purchase settled through the PG
type Order struct {
	ID              string     `db:"id" json:"id"`
	TotalAmount     int64      `db:"total_amount" json:"total_amount"`
	CustomerName    string     `db:"customer_name" json:"customer_name"`
	CustomerPhone   string     `db:"customer_phone" json:"customer_phone"`
	CustomerEmail   string     `db:"customer_email" json:"customer_email,omitempty"`
	Status          string     `db:"status" json:"status"`
	ApprovalNo      string     `db:"approval_no" json:"approval_no,omitempty"`
	TransactionNo   string     `db:"transaction_no" json:"transaction_no,omitempty"`
	PayMethod       string     `db:"pay_method" json:"pay_method,omitempty"`
	CancelReason    string     `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CancelledAmount int64      `db:"cancelled_amount" json:"cancelled_amount"`
	RemainingAmount int64      `db:"remaining_amount" json:"remaining_amount"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	CancelledAt     *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Ticket represents one ticket-type line under an order
type Ticket struct {
	ID        int64      `db:"id" json:"id"`
	OrderID   string     `db:"order_id" json:"order_id"`
	Label     string     `db:"label" json:"label"`
	Quantity  int        `db:"quantity" json:"quantity"`
	UnitPrice int64      `db:"unit_price" json:"unit_price"`
	Status    string     `db:"status" json:"status"`
	UsedAt    *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// TicketLine is a ticket-type line before it is persisted
type TicketLine struct {
	Label     string `db:"label" json:"label" binding:"required"`
	Quantity  int    `db:"quantity" json:"quantity" binding:"required,min=1"`
	UnitPrice int64  `db:"unit_price" json:"unit_price" binding:"min=0"`
}

// ScanLogEntry is the immutable record of a successful redemption.
// Its presence is the authoritative already-used signal for the order.
type ScanLogEntry struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Code      string    `db:"code" json:"code"`
	ScannerID string    `db:"scanner_id" json:"scanner_id"`
	Location  string    `db:"location" json:"location"`
	ScannedAt time.Time `db:"scanned_at" json:"scanned_at"`
}

// Order statuses. Transitions run one way only:
// pending -> completed -> cancelled | partial_cancelled
const (
	OrderStatusPending          = "pending"
	OrderStatusCompleted        = "completed"
	OrderStatusCancelled        = "cancelled"
	OrderStatusPartialCancelled = "partial_cancelled"
)

// Ticket statuses
const (
	TicketStatusActive = "active"
	TicketStatusUsed   = "used"
)
