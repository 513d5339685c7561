package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/services/bookings/internal/domain"
)

type published struct {
	subject string
	data    interface{}
}

type mockPublisher struct {
	sent   []published
	failOn string
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	if subject == m.failOn {
		return errors.New("nats: connection closed")
	}
	m.sent = append(m.sent, published{subject, data})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func reservation() *domain.Reservation {
	return &domain.Reservation{
		ID:        7,
		Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Start:     18,
		Duration:  2,
		GroupSize: 4,
		Price:     decimal.RequireFromString("95"),
		Status:    domain.StatusConfirmed,
		Customer:  domain.Customer{Name: "Ada", Email: "ada@example.com"},
	}
}

func TestEventNotifier_Confirmation(t *testing.T) {
	bus := &mockPublisher{}
	n := NewEventNotifier(bus, "owner@example.com", time.Second)

	if err := n.Notify(context.Background(), reservation(), KindConfirmation); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(bus.sent) != 2 {
		t.Fatalf("expected lifecycle event and email, got %d messages", len(bus.sent))
	}
	if bus.sent[0].subject != events.ReservationConfirmed {
		t.Fatalf("first subject = %s", bus.sent[0].subject)
	}
	msg, ok := bus.sent[1].data.(events.NotificationEvent)
	if !ok || bus.sent[1].subject != events.NotifySend {
		t.Fatalf("second message = %+v", bus.sent[1])
	}
	if msg.Recipient != "ada@example.com" || msg.Template != "confirmation" || msg.Data["price"] != "95.00" {
		t.Fatalf("unexpected notification %+v", msg)
	}
}

func TestEventNotifier_Admin(t *testing.T) {
	bus := &mockPublisher{}
	n := NewEventNotifier(bus, "owner@example.com", time.Second)

	if err := n.Notify(context.Background(), reservation(), KindAdmin); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(bus.sent) != 1 {
		t.Fatalf("admin notification publishes only the email, got %d", len(bus.sent))
	}
	if msg := bus.sent[0].data.(events.NotificationEvent); msg.Recipient != "owner@example.com" {
		t.Fatalf("recipient = %s", msg.Recipient)
	}

	silent := NewEventNotifier(&mockPublisher{}, "", time.Second)
	if err := silent.Notify(context.Background(), reservation(), KindAdmin); err != nil {
		t.Fatalf("no admin address should be a no-op, got %v", err)
	}
}

func TestEventNotifier_ReportsPublishFailure(t *testing.T) {
	bus := &mockPublisher{failOn: events.NotifySend}
	n := NewEventNotifier(bus, "", time.Second)

	err := n.Notify(context.Background(), reservation(), KindCancelled)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(bus.sent) != 1 || bus.sent[0].subject != events.ReservationCanceled {
		t.Fatalf("lifecycle event should still be published, got %+v", bus.sent)
	}
}
