package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/malabartours/bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "publishing event", "subject", subject)

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Subjects
const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"

	PaymentRequested = "payment.requested"
	PaymentCaptured  = "payment.captured"
	PaymentExpired   = "payment.expired"
	PaymentFailed    = "payment.failed"

	TripAccepted  = "trip.accepted"
	TripStarted   = "trip.started"
	TripCompleted = "trip.completed"

	NotifySend = "notify.send"
)

// Event payloads
type BookingCreatedEvent struct {
	BookingID     string    `json:"booking_id"`
	PackageID     string    `json:"package_id"`
	GuestEmail    string    `json:"guest_email"`
	GuestName     string    `json:"guest_name"`
	StartDateTime time.Time `json:"start_date_time"`
	PaxCount      int       `json:"pax_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type BookingDecidedEvent struct {
	BookingID   string    `json:"booking_id"`
	ApprovedBy  string    `json:"approved_by"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	TotalAmount int64     `json:"total_amount"`
	Note        string    `json:"note,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

type BookingCancelledEvent struct {
	BookingID   string    `json:"booking_id"`
	ActorID     string    `json:"actor_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type PaymentRequestedEvent struct {
	BookingID        string    `json:"booking_id"`
	PaymentRequestID string    `json:"payment_request_id"`
	Method           string    `json:"method"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	ExpiresAt        time.Time `json:"expires_at"`
	AttemptCount     int       `json:"attempt_count"`
}

type PaymentCapturedEvent struct {
	BookingID        string    `json:"booking_id"`
	PaymentRequestID string    `json:"payment_request_id"`
	PaymentID        string    `json:"payment_id"`
	Amount           int64     `json:"amount"`
	PaidAt           time.Time `json:"paid_at"`
}

type PaymentExpiredEvent struct {
	BookingID        string    `json:"booking_id"`
	PaymentRequestID string    `json:"payment_request_id"`
	AttemptCount     int       `json:"attempt_count"`
	ExpiredAt        time.Time `json:"expired_at"`
}

type TripEvent struct {
	BookingID    string    `json:"booking_id"`
	AssignmentID string    `json:"assignment_id"`
	DriverID     string    `json:"driver_id"`
	At           time.Time `json:"at"`
}

type NotificationEvent struct {
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
