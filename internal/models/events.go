package models

import "time"

// Event types
const (
	EventTypeOrderCompleted   = "ORDER_COMPLETED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
	EventTypeTicketRedeemed   = "TICKET_REDEEMED"
	EventTypeTicketUnredeemed = "TICKET_UNREDEEMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCompletedEvent published when the PG approves an order and
// tickets are issued. Carries the data the notification collaborator
// needs to render and deliver the QR code.
type OrderCompletedEvent struct {
	BaseEvent
	OrderID       string       `json:"order_id"`
	TotalAmount   int64        `json:"total_amount"`
	ApprovalNo    string       `json:"approval_no"`
	CustomerName  string       `json:"customer_name"`
	CustomerPhone string       `json:"customer_phone"`
	Lines         []TicketLine `json:"lines"`
}

// OrderCancelledEvent published when a cancel settles with the PG
type OrderCancelledEvent struct {
	BaseEvent
	OrderID         string `json:"order_id"`
	CancelAmount    int64  `json:"cancel_amount"`
	RemainingAmount int64  `json:"remaining_amount"`
	Partial         bool   `json:"partial"`
	Reason          string `json:"reason"`
}

// TicketRedeemedEvent published on first successful gate scan
type TicketRedeemedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	ScannerID string `json:"scanner_id"`
	Location  string `json:"location"`
}

// TicketUnredeemedEvent published when an operator reverses a redemption
type TicketUnredeemedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
}
