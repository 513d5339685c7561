package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/boxbook/pkg/logger"
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
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url, name string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(wrap(msg))
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(wrap(msg))
	})
	return err
}

// Ping round-trips to the server; used by health checks.
func (n *NATSEventBus) Ping(ctx context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats: %s", n.conn.Status())
	}
	return n.conn.FlushWithContext(ctx)
}

func (n *NATSEventBus) Close() error {
	return n.conn.Drain()
}

func wrap(msg *nats.Msg) *Message {
	return &Message{
		Subject:   msg.Subject,
		Data:      msg.Data,
		Timestamp: time.Now(),
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
	}
}

// Event types and subjects
const (
	ReservationCreated   = "reservation.created"
	ReservationConfirmed = "reservation.confirmed"
	ReservationCanceled  = "reservation.canceled"
	ReservationDeleted   = "reservation.deleted"

	PaymentSessionCreated = "payment.session.created"
	PaymentSessionExpired = "payment.session.expired"

	// PromoOverRedeemed alerts operators that a paid reservation carried a
	// code whose usage cap was already reached.
	PromoOverRedeemed = "promo.over_redeemed"

	NotifySend = "notify.send"
)

type ReservationEvent struct {
	ReservationID int64     `json:"reservation_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	Duration      int       `json:"duration"`
	GroupSize     int       `json:"group_size"`
	Price         string    `json:"price"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type PaymentSessionEvent struct {
	ReservationID int64  `json:"reservation_id"`
	ExternalRef   string `json:"external_ref"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

type PromoEvent struct {
	PromoCodeID   int64  `json:"promo_code_id"`
	ReservationID int64  `json:"reservation_id"`
	ExternalRef   string `json:"external_ref"`
}

// NotificationEvent is consumed by the notify service. Template is one of the
// notification kinds; Data carries the fields the template renders.
type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Name      string                 `json:"name,omitempty"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
