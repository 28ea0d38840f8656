package worker

import (
	"context"
	"time"

	"ticket-service/internal/broker"
	"ticket-service/internal/models"
	"ticket-service/internal/util"

	"go.uber.org/zap"
)

// NotificationRequest is the payload handed to the external delivery
// collaborator. Rendering the QR image and sending the message happen
// outside this service; we emit only the data it needs.
type NotificationRequest struct {
	Kind          string    `json:"kind"`
	OrderID       string    `json:"order_id"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}

// Notification kinds
const (
	NotifyKindIssued   = "ticket_issued"
	NotifyKindRedeemed = "ticket_redeemed"
)

// NotificationWorker turns ticket lifecycle events into notification
// requests on the notify topic.
type NotificationWorker struct {
	consumer     *broker.Consumer
	producer     *broker.Producer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, producer *broker.Producer) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		producer: producer,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCompleted(w.handleOrderCompleted)
	eventHandler.OnTicketRedeemed(w.handleTicketRedeemed)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	req := NotificationRequest{
		Kind:          NotifyKindIssued,
		OrderID:       event.OrderID,
		CustomerPhone: event.CustomerPhone,
		RequestedAt:   time.Now(),
	}

	w.logger.Info("Requesting issuance notification",
		zap.String("order_id", event.OrderID))

	return w.producer.PublishEvent(ctx, "notify-"+event.OrderID, req)
}

func (w *NotificationWorker) handleTicketRedeemed(ctx context.Context, event *models.TicketRedeemedEvent) error {
	req := NotificationRequest{
		Kind:        NotifyKindRedeemed,
		OrderID:     event.OrderID,
		RequestedAt: time.Now(),
	}

	w.logger.Info("Requesting redemption notification",
		zap.String("order_id", event.OrderID),
		zap.String("location", event.Location))

	return w.producer.PublishEvent(ctx, "notify-"+event.OrderID, req)
}
