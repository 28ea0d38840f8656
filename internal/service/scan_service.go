package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticket-service/internal/models"
	"ticket-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScanStore is the persistence the redemption guard needs.
type ScanStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetTicketsByOrderID(ctx context.Context, orderID string) ([]models.Ticket, error)
	RedeemOrder(ctx context.Context, entry *models.ScanLogEntry) (bool, *models.ScanLogEntry, error)
	UnredeemOrder(ctx context.Context, orderID string) error
	GetScanLogByOrderID(ctx context.Context, orderID string) (*models.ScanLogEntry, error)
}

// RedeemPublisher pushes redemption events to the broker.
type RedeemPublisher interface {
	PublishTicketRedeemed(ctx context.Context, event *models.TicketRedeemedEvent) error
	PublishTicketUnredeemed(ctx context.Context, event *models.TicketUnredeemedEvent) error
}

// Redemption outcomes. Duplicate scans are a defined outcome with full
// prior-use detail, not an error - gate staff act on it directly.
const (
	RedeemAdmitted    = "admitted"
	RedeemAlreadyUsed = "already_used"
	RedeemInvalid     = "invalid"
)

// RedeemOutcome is the gate-facing result of one scan.
type RedeemOutcome struct {
	Status       string              `json:"status"`
	Reason       string              `json:"reason,omitempty"`
	OrderID      string              `json:"order_id,omitempty"`
	CustomerName string              `json:"customer_name,omitempty"`
	Tickets      []models.Ticket     `json:"tickets,omitempty"`
	ScannedAt    *time.Time          `json:"scanned_at,omitempty"`
	Location     string              `json:"location,omitempty"`
	Entry        *models.ScanLogEntry `json:"-"`
}

// ScanService enforces at-most-once redemption. Concurrent scanners
// run as separate processes, so serialization lives in the store's
// unique constraint, not in process memory.
type ScanService struct {
	store     ScanStore
	publisher RedeemPublisher
	cache     OrderCache
	logger    *zap.Logger
}

// NewScanService creates a new scan service
func NewScanService(store ScanStore, publisher RedeemPublisher, cache OrderCache) *ScanService {
	return &ScanService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		logger:    util.GetLogger(),
	}
}

const codePrefix = "TICKET:"

// parseCode decodes a presented code. Accepted forms are
// TICKET:<orderId>:<phone> and, for older printed tickets, a bare
// order id with no phone cross-check. The TICKET form promises a
// cross-check, so both segments must be present.
func parseCode(code string) (orderID, phone string, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", "", fmt.Errorf("empty code")
	}
	if !strings.HasPrefix(code, codePrefix) {
		if strings.Contains(code, ":") {
			return "", "", fmt.Errorf("malformed code")
		}
		return code, "", nil
	}
	parts := strings.Split(code[len(codePrefix):], ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed code")
	}
	return parts[0], parts[1], nil
}

// Redeem validates the code against the ledger and admits the order at
// most once. The scan-log insert and the ticket flip commit together;
// a lost race returns AlreadyUsed with the winner's entry.
func (s *ScanService) Redeem(ctx context.Context, code, scannerID, location string) (*RedeemOutcome, error) {
	ctx, span := util.StartSpan(ctx, "ScanService.Redeem")
	defer span.End()

	orderID, phone, err := parseCode(code)
	if err != nil {
		util.InvalidScansTotal.WithLabelValues("malformed").Inc()
		return &RedeemOutcome{Status: RedeemInvalid, Reason: err.Error()}, nil
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		util.InvalidScansTotal.WithLabelValues("unknown_order").Inc()
		return &RedeemOutcome{Status: RedeemInvalid, Reason: "unknown order"}, nil
	}

	if phone != "" && phone != order.CustomerPhone {
		util.InvalidScansTotal.WithLabelValues("phone_mismatch").Inc()
		s.logger.Warn("Scan phone mismatch",
			zap.String("order_id", orderID),
			zap.String("scanner_id", scannerID))
		return &RedeemOutcome{Status: RedeemInvalid, Reason: "customer phone does not match"}, nil
	}

	if order.Status != models.OrderStatusCompleted {
		util.InvalidScansTotal.WithLabelValues("not_completed").Inc()
		return &RedeemOutcome{
			Status:  RedeemInvalid,
			Reason:  "not a completed order",
			OrderID: order.ID,
		}, nil
	}

	entry := &models.ScanLogEntry{
		ID:        uuid.New().String(),
		OrderID:   order.ID,
		Code:      code,
		ScannerID: scannerID,
		Location:  location,
		ScannedAt: time.Now(),
	}

	admitted, prior, err := s.store.RedeemOrder(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to redeem order %s: %w", order.ID, err)
	}

	if !admitted {
		util.DuplicateScansTotal.Inc()
		s.logger.Info("Duplicate scan",
			zap.String("order_id", order.ID),
			zap.String("scanner_id", scannerID),
			zap.Time("first_scanned_at", prior.ScannedAt))
		return &RedeemOutcome{
			Status:       RedeemAlreadyUsed,
			OrderID:      order.ID,
			CustomerName: order.CustomerName,
			ScannedAt:    &prior.ScannedAt,
			Location:     prior.Location,
			Entry:        prior,
		}, nil
	}

	util.RedemptionsTotal.Inc()
	s.invalidate(ctx, order.ID)

	tickets, err := s.store.GetTicketsByOrderID(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to load tickets for summary", zap.Error(err))
	}

	event := &models.TicketRedeemedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTicketRedeemed,
			Timestamp: time.Now(),
		},
		OrderID:   order.ID,
		ScannerID: scannerID,
		Location:  location,
	}
	if err := s.publisher.PublishTicketRedeemed(ctx, event); err != nil {
		s.logger.Error("Failed to publish TicketRedeemed event", zap.Error(err))
	}

	s.logger.Info("Ticket admitted",
		zap.String("order_id", order.ID),
		zap.String("scanner_id", scannerID),
		zap.String("location", location))

	return &RedeemOutcome{
		Status:       RedeemAdmitted,
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Tickets:      tickets,
		ScannedAt:    &entry.ScannedAt,
		Location:     location,
		Entry:        entry,
	}, nil
}

// Unredeem reverses a redemption: deletes the scan log entry and
// reverts the tickets to active. Operator control path only, never
// exposed to the scanning device.
func (s *ScanService) Unredeem(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "ScanService.Unredeem")
	defer span.End()

	if err := s.store.UnredeemOrder(ctx, orderID); err != nil {
		return err
	}
	s.invalidate(ctx, orderID)

	event := &models.TicketUnredeemedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTicketUnredeemed,
			Timestamp: time.Now(),
		},
		OrderID: orderID,
	}
	if err := s.publisher.PublishTicketUnredeemed(ctx, event); err != nil {
		s.logger.Error("Failed to publish TicketUnredeemed event", zap.Error(err))
	}

	s.logger.Info("Redemption reversed", zap.String("order_id", orderID))
	return nil
}

func (s *ScanService) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrder(ctx, orderID); err != nil {
		s.logger.Warn("Failed to invalidate order cache",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}
