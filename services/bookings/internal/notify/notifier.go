// Package notify hands reservation notifications to the notify service over
// the event bus. Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

type Kind string

const (
	KindCreated      Kind = "created"
	KindConfirmation Kind = "confirmation"
	KindCancelled    Kind = "cancelled"
	KindAdmin        Kind = "admin_notification"
)

type Notifier interface {
	Notify(ctx context.Context, res *domain.Reservation, kind Kind) error
}

// lifecycle maps a notification kind to the reservation event published
// alongside it.
var lifecycle = map[Kind]string{
	KindCreated:      events.ReservationCreated,
	KindConfirmation: events.ReservationConfirmed,
	KindCancelled:    events.ReservationCanceled,
}

type EventNotifier struct {
	bus        events.Publisher
	adminEmail string
	timeout    time.Duration
}

func NewEventNotifier(bus events.Publisher, adminEmail string, timeout time.Duration) *EventNotifier {
	return &EventNotifier{bus: bus, adminEmail: adminEmail, timeout: timeout}
}

func (n *EventNotifier) Notify(ctx context.Context, res *domain.Reservation, kind Kind) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	recipient, name := res.Customer.Email, res.Customer.Name
	if kind == KindAdmin {
		if n.adminEmail == "" {
			return nil
		}
		recipient, name = n.adminEmail, ""
	}

	var errs []error
	if subject, ok := lifecycle[kind]; ok {
		if err := n.bus.Publish(ctx, subject, ReservationEvent(res)); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", subject, err))
		}
	}

	msg := events.NotificationEvent{
		Type:      "email",
		Recipient: recipient,
		Name:      name,
		Template:  string(kind),
		Data:      templateData(res),
	}
	if err := n.bus.Publish(ctx, events.NotifySend, msg); err != nil {
		errs = append(errs, fmt.Errorf("publish %s: %w", events.NotifySend, err))
	}
	return errors.Join(errs...)
}

func ReservationEvent(res *domain.Reservation) events.ReservationEvent {
	ev := events.ReservationEvent{
		ReservationID: res.ID,
		Date:          res.DateLabel(),
		StartTime:     res.Start.String(),
		Duration:      res.Duration,
		GroupSize:     res.GroupSize,
		Price:         res.Price.StringFixed(2),
		Status:        string(res.Status),
		PaymentStatus: string(res.PaymentStatus),
		OccurredAt:    time.Now().UTC(),
	}
	if res.CancelReason != nil {
		ev.Reason = *res.CancelReason
	}
	return ev
}

func templateData(res *domain.Reservation) map[string]interface{} {
	data := map[string]interface{}{
		"reservation_id": res.ID,
		"customer_name":  res.Customer.Name,
		"customer_email": res.Customer.Email,
		"customer_phone": res.Customer.Phone,
		"message":        res.Customer.Message,
		"date":           res.DateLabel(),
		"start_time":     res.Start.String(),
		"duration":       res.Duration,
		"group_size":     res.GroupSize,
		"price":          res.Price.StringFixed(2),
		"manage_token":   res.ManageToken,
		"is_test":        res.IsTest,
	}
	if res.CancelReason != nil {
		data["reason"] = *res.CancelReason
	}
	return data
}
