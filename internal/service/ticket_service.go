package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticket-service/internal/gateway"
	"ticket-service/internal/models"
	"ticket-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence the ledger needs. *store.Store
// satisfies it; tests use fakes.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order, lines []models.TicketLine) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderLines(ctx context.Context, orderID string) ([]models.TicketLine, error)
	CompleteOrder(ctx context.Context, orderID, approvalNo, transactionNo, payMethod string) error
	CancelOrder(ctx context.Context, orderID string, amount int64, reason string, remaining int64, partial bool) error
	GetTicketsByOrderID(ctx context.Context, orderID string) ([]models.Ticket, error)
}

// PaymentGateway is the PG client seam.
type PaymentGateway interface {
	Checksum(orderID string, amount int64) (string, error)
	Approve(ctx context.Context, req gateway.ApproveRequest) (*gateway.ApproveResult, error)
	Cancel(ctx context.Context, req gateway.CancelRequest) (*gateway.CancelResult, error)
}

// EventPublisher pushes lifecycle events to the broker. Publish
// failures are logged, never fatal to the transition that already
// committed.
type EventPublisher interface {
	PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// OrderCache invalidates cached order summaries on state changes.
type OrderCache interface {
	InvalidateOrder(ctx context.Context, orderID string) error
}

// TicketService is the authoritative order/ticket state machine:
// pending -> completed -> {cancelled | partial_cancelled}. It is the
// only writer of order status.
type TicketService struct {
	store          OrderStore
	pg             PaymentGateway
	eventPublisher EventPublisher
	cache          OrderCache
	logger         *zap.Logger
}

// NewTicketService creates a new ticket service
func NewTicketService(store OrderStore, pg PaymentGateway, eventPublisher EventPublisher, cache OrderCache) *TicketService {
	return &TicketService{
		store:          store,
		pg:             pg,
		eventPublisher: eventPublisher,
		cache:          cache,
		logger:         util.GetLogger(),
	}
}

// PrepareOrderRequest creates a pending order ahead of the PG popup.
type PrepareOrderRequest struct {
	OrderID       string              `json:"order_id"`
	CustomerName  string              `json:"customer_name" binding:"required"`
	CustomerPhone string              `json:"customer_phone" binding:"required"`
	CustomerEmail string              `json:"customer_email"`
	Lines         []models.TicketLine `json:"lines" binding:"required,min=1,dive"`
}

// PrepareOrderResponse carries the checksum token the payment popup
// must present, binding the displayed amount to the order.
type PrepareOrderResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
	Checksum    string `json:"checksum"`
}

// PrepareOrder persists a pending order with its ticket lines and
// returns the tamper token for the popup.
func (s *TicketService) PrepareOrder(ctx context.Context, req *PrepareOrderRequest) (*PrepareOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.PrepareOrder")
	defer span.End()

	if req.OrderID == "" {
		req.OrderID = uuid.New().String()
	}

	var total int64
	for _, line := range req.Lines {
		total += line.UnitPrice * int64(line.Quantity)
	}

	order := &models.Order{
		ID:            req.OrderID,
		TotalAmount:   total,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		Status:        models.OrderStatusPending,
	}

	if err := s.store.CreateOrder(ctx, order, req.Lines); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	token, err := s.pg.Checksum(order.ID, total)
	if err != nil {
		return nil, fmt.Errorf("failed to generate checksum: %w", err)
	}

	util.OrdersPreparedTotal.Inc()
	s.logger.Info("Order prepared",
		zap.String("order_id", order.ID),
		zap.Int64("total_amount", total))

	return &PrepareOrderResponse{
		OrderID:     order.ID,
		TotalAmount: total,
		Checksum:    token,
	}, nil
}

// ApproveOrderRequest forwards the fields the PG popup handed back.
type ApproveOrderRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	PayMethod     string `json:"pay_method" binding:"required"`
	Key           string `json:"key" binding:"required"`
	TransactionNo string `json:"transaction_no" binding:"required"`
	AuthType      string `json:"auth_type"`
	Iden          string `json:"iden"`
	IPAddr        string `json:"ip_addr"`
}

// ApproveOrder runs the PG approval and, on success, atomically
// transitions the order to completed and issues its tickets. A failed
// approval leaves the order exactly as it was; it is never retried
// here (the PG may have charged on an attempt whose reply was lost -
// reconcile before retrying).
func (s *TicketService) ApproveOrder(ctx context.Context, req *ApproveOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.ApproveOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is not pending: %s", order.ID, order.Status)
	}

	result, err := s.pg.Approve(ctx, gateway.ApproveRequest{
		PayMethod:     req.PayMethod,
		OrderID:       order.ID,
		Amount:        order.TotalAmount,
		Key:           req.Key,
		TransactionNo: req.TransactionNo,
		AuthType:      req.AuthType,
		Iden:          req.Iden,
		IPAddr:        req.IPAddr,
	})
	if err != nil {
		util.ApprovalsFailedTotal.WithLabelValues(failureKind(err)).Inc()
		s.logger.Warn("Approval failed, order left pending",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, approvalError(err)
	}

	if err := s.store.CompleteOrder(ctx, order.ID, result.ApprovalNo, result.TransactionNo, result.PayMethod); err != nil {
		// PG charged but the ledger did not move; operator must
		// reconcile this order by hand
		s.logger.Error("PG approved but completion failed",
			zap.String("order_id", order.ID),
			zap.String("approval_no", result.ApprovalNo),
			zap.Error(err))
		return nil, fmt.Errorf("approval settled but order not completed, reconcile order %s: %w", order.ID, err)
	}

	util.ApprovalsTotal.Inc()
	s.invalidate(ctx, order.ID)

	lines, err := s.store.GetOrderLines(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to load lines for event", zap.Error(err))
	}

	event := &models.OrderCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCompleted,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		TotalAmount:   order.TotalAmount,
		ApprovalNo:    result.ApprovalNo,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		Lines:         lines,
	}
	if err := s.eventPublisher.PublishOrderCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCompleted event", zap.Error(err))
	}

	s.logger.Info("Order completed",
		zap.String("order_id", order.ID),
		zap.String("approval_no", result.ApprovalNo))

	return s.store.GetOrderByID(ctx, order.ID)
}

// CancelOrderRequest cancels a completed order, fully or partially.
type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Amount  int64  `json:"amount" binding:"required,min=1"`
	Reason  string `json:"reason" binding:"required"`
	IPAddr  string `json:"ip_addr"`
}

// CancelOrder checks the preconditions before any bytes reach the PG:
// the order must be completed, carry a transaction reference, and the
// amount must not exceed what remains.
func (s *TicketService) CancelOrder(ctx context.Context, req *CancelOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "TicketService.CancelOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusCompleted {
		util.CancelsFailedTotal.WithLabelValues("precondition").Inc()
		return nil, fmt.Errorf("order %s is not completed: %s", order.ID, order.Status)
	}
	if order.TransactionNo == "" {
		util.CancelsFailedTotal.WithLabelValues("precondition").Inc()
		return nil, fmt.Errorf("order %s has no transaction reference", order.ID)
	}
	if req.Amount > order.TotalAmount {
		util.CancelsFailedTotal.WithLabelValues("precondition").Inc()
		return nil, fmt.Errorf("cancel amount %d exceeds order total %d", req.Amount, order.TotalAmount)
	}

	partial := req.Amount < order.TotalAmount

	result, err := s.pg.Cancel(ctx, gateway.CancelRequest{
		OrderID:       order.ID,
		TransactionNo: order.TransactionNo,
		CancelAmount:  req.Amount,
		Partial:       partial,
		Reason:        req.Reason,
		IPAddr:        req.IPAddr,
	})
	if err != nil {
		util.CancelsFailedTotal.WithLabelValues(failureKind(err)).Inc()
		s.logger.Warn("Cancel failed, order unchanged",
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, approvalError(err)
	}

	remaining := result.RemainingAmount
	if !partial {
		remaining = 0
	}

	if err := s.store.CancelOrder(ctx, order.ID, req.Amount, req.Reason, remaining, partial); err != nil {
		s.logger.Error("PG cancelled but ledger update failed",
			zap.String("order_id", order.ID),
			zap.String("cancel_no", result.CancelNo),
			zap.Error(err))
		return nil, fmt.Errorf("cancel settled but order not updated, reconcile order %s: %w", order.ID, err)
	}

	kind := "full"
	if partial {
		kind = "partial"
	}
	util.CancelsTotal.WithLabelValues(kind).Inc()
	s.invalidate(ctx, order.ID)

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:         order.ID,
		CancelAmount:    req.Amount,
		RemainingAmount: remaining,
		Partial:         partial,
		Reason:          req.Reason,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", order.ID),
		zap.Bool("partial", partial),
		zap.Int64("amount", req.Amount))

	return s.store.GetOrderByID(ctx, order.ID)
}

// GetOrder retrieves an order with its tickets
func (s *TicketService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.Ticket, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	tickets, err := s.store.GetTicketsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, tickets, nil
}

func (s *TicketService) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to invalidate order cache",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}

// failureKind buckets gateway errors for metrics.
func failureKind(err error) string {
	var pe *gateway.ProtocolError
	switch {
	case errors.As(err, &pe):
		return "declined"
	case errors.Is(err, gateway.ErrCipherDecode):
		return "integrity"
	case gateway.IsTimeout(err):
		return "timeout"
	default:
		return "transport"
	}
}

// approvalError shapes a gateway failure for the operator. Protocol
// declines carry the PG's reason; integrity trouble is reported
// without detail (it is logged, not shown); transport failures warn
// against blind retry.
func approvalError(err error) error {
	var pe *gateway.ProtocolError
	if errors.As(err, &pe) {
		return fmt.Errorf("payment declined: %s: %w", pe.Message, err)
	}
	if errors.Is(err, gateway.ErrCipherDecode) {
		return fmt.Errorf("payment channel integrity failure: %w", err)
	}
	return fmt.Errorf("payment gateway unreachable, reconcile before retrying: %w", err)
}
