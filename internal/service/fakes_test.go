package service

import (
	"context"
	"fmt"
	"sync"

	"ticket-service/internal/gateway"
	"ticket-service/internal/models"
)

// fakeStore is an in-memory OrderStore/ScanStore with the same
// atomicity guarantees the SQL store provides: CompleteOrder either
// transitions the order and creates every ticket, or changes nothing;
// RedeemOrder serializes on a mutex the way the unique constraint
// serializes concurrent scanners.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	lines    map[string][]models.TicketLine
	tickets  map[string][]models.Ticket
	scanLogs map[string]*models.ScanLogEntry

	completeErr  error
	nextTicketID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[string]*models.Order),
		lines:    make(map[string][]models.TicketLine),
		tickets:  make(map[string][]models.Ticket),
		scanLogs: make(map[string]*models.ScanLogEntry),
	}
}

func (f *fakeStore) CreateOrder(_ context.Context, order *models.Order, lines []models.TicketLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	cp := *order
	f.orders[order.ID] = &cp
	f.lines[order.ID] = append([]models.TicketLine(nil), lines...)
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	cp := *order
	return &cp, nil
}

func (f *fakeStore) GetOrderLines(_ context.Context, orderID string) ([]models.TicketLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.TicketLine(nil), f.lines[orderID]...), nil
}

func (f *fakeStore) CompleteOrder(_ context.Context, orderID, approvalNo, transactionNo, payMethod string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return f.completeErr
	}
	order, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if order.Status != models.OrderStatusPending {
		return fmt.Errorf("order %s is not pending", orderID)
	}
	lines := f.lines[orderID]
	if len(lines) == 0 {
		return fmt.Errorf("order %s has no ticket lines", orderID)
	}
	order.Status = models.OrderStatusCompleted
	order.ApprovalNo = approvalNo
	order.TransactionNo = transactionNo
	order.PayMethod = payMethod
	order.RemainingAmount = order.TotalAmount
	for _, line := range lines {
		f.nextTicketID++
		f.tickets[orderID] = append(f.tickets[orderID], models.Ticket{
			ID:        f.nextTicketID,
			OrderID:   orderID,
			Label:     line.Label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Status:    models.TicketStatusActive,
		})
	}
	return nil
}

func (f *fakeStore) CancelOrder(_ context.Context, orderID string, amount int64, reason string, remaining int64, partial bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	if order.Status != models.OrderStatusCompleted {
		return fmt.Errorf("order %s is not completed", orderID)
	}
	if partial {
		order.Status = models.OrderStatusPartialCancelled
	} else {
		order.Status = models.OrderStatusCancelled
	}
	order.CancelReason = reason
	order.CancelledAmount += amount
	order.RemainingAmount = remaining
	return nil
}

func (f *fakeStore) GetTicketsByOrderID(_ context.Context, orderID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Ticket(nil), f.tickets[orderID]...), nil
}

func (f *fakeStore) RedeemOrder(_ context.Context, entry *models.ScanLogEntry) (bool, *models.ScanLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prior, exists := f.scanLogs[entry.OrderID]; exists {
		cp := *prior
		return false, &cp, nil
	}
	cp := *entry
	f.scanLogs[entry.OrderID] = &cp
	tickets := f.tickets[entry.OrderID]
	for i := range tickets {
		tickets[i].Status = models.TicketStatusUsed
		usedAt := entry.ScannedAt
		tickets[i].UsedAt = &usedAt
	}
	return true, nil, nil
}

func (f *fakeStore) UnredeemOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.scanLogs[orderID]; !exists {
		return fmt.Errorf("order %s has no scan log", orderID)
	}
	delete(f.scanLogs, orderID)
	tickets := f.tickets[orderID]
	for i := range tickets {
		tickets[i].Status = models.TicketStatusActive
		tickets[i].UsedAt = nil
	}
	return nil
}

func (f *fakeStore) GetScanLogByOrderID(_ context.Context, orderID string) (*models.ScanLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.scanLogs[orderID]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

// fakeGateway scripts PG responses and records calls.
type fakeGateway struct {
	mu           sync.Mutex
	approveRes   *gateway.ApproveResult
	approveErr   error
	cancelRes    *gateway.CancelResult
	cancelErr    error
	approveCalls int
	cancelCalls  int
}

func (f *fakeGateway) Checksum(orderID string, amount int64) (string, error) {
	return fmt.Sprintf("token-%s-%d", orderID, amount), nil
}

func (f *fakeGateway) Approve(_ context.Context, req gateway.ApproveRequest) (*gateway.ApproveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approveCalls++
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return f.approveRes, nil
}

func (f *fakeGateway) Cancel(_ context.Context, req gateway.CancelRequest) (*gateway.CancelResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelRes, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu         sync.Mutex
	completed  []*models.OrderCompletedEvent
	cancelled  []*models.OrderCancelledEvent
	redeemed   []*models.TicketRedeemedEvent
	unredeemed []*models.TicketUnredeemedEvent
}

func (f *fakePublisher) PublishOrderCompleted(_ context.Context, e *models.OrderCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, e)
	return nil
}

func (f *fakePublisher) PublishOrderCancelled(_ context.Context, e *models.OrderCancelledEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, e)
	return nil
}

func (f *fakePublisher) PublishTicketRedeemed(_ context.Context, e *models.TicketRedeemedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redeemed = append(f.redeemed, e)
	return nil
}

func (f *fakePublisher) PublishTicketUnredeemed(_ context.Context, e *models.TicketUnredeemedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unredeemed = append(f.unredeemed, e)
	return nil
}
