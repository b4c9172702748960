package notify

import (
	"encoding/json"
	"fmt"

	"github.com/malabartours/bookings/internal/mailer"
	"github.com/malabartours/bookings/pkg/events"
	"github.com/malabartours/bookings/pkg/logger"
)

// Worker turns booking lifecycle events into guest email. It queue-subscribes
// so only one instance handles each event.
type Worker struct {
	bus    events.Subscriber
	mailer mailer.Mailer
}

func NewWorker(bus events.Subscriber, m mailer.Mailer) *Worker {
	return &Worker{bus: bus, mailer: m}
}

const queue = "notify"

func (w *Worker) Start() error {
	if err := w.bus.QueueSubscribe(events.BookingCreated, queue, w.onBookingCreated); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.BookingCreated, err)
	}
	if err := w.bus.QueueSubscribe(events.PaymentRequested, queue, w.onPaymentRequested); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.PaymentRequested, err)
	}
	if err := w.bus.QueueSubscribe(events.NotifySend, queue, w.onNotifySend); err != nil {
		return fmt.Errorf("subscribe %s: %w", events.NotifySend, err)
	}
	return nil
}

func (w *Worker) onBookingCreated(msg *events.Message) {
	var ev events.BookingCreatedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("bad booking.created payload", "error", err)
		return
	}
	if ev.GuestEmail == "" {
		return
	}

	subject := "We received your booking request"
	text := fmt.Sprintf("Hi %s,\n\nYour booking %s is awaiting approval. We will email you once it is reviewed.",
		ev.GuestName, ev.BookingID)
	if _, err := w.mailer.Send(ev.GuestEmail, ev.GuestName, subject, text, ""); err != nil {
		logger.Error("failed to send booking.created mail", "error", err, "booking_id", ev.BookingID)
	}
}

func (w *Worker) onPaymentRequested(msg *events.Message) {
	var ev events.PaymentRequestedEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("bad payment.requested payload", "error", err)
		return
	}
	logger.Info("payment requested", "booking_id", ev.BookingID, "amount", ev.Amount, "expires_at", ev.ExpiresAt)
}

func (w *Worker) onNotifySend(msg *events.Message) {
	var ev events.NotificationEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		logger.Error("bad notify.send payload", "error", err)
		return
	}
	text, _ := ev.Data["text"].(string)
	if _, err := w.mailer.Send(ev.Recipient, "", ev.Subject, text, ""); err != nil {
		logger.Error("failed to send notification mail", "error", err, "recipient", ev.Recipient)
	}
}
