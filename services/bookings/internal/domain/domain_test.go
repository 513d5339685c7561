package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

var limits = GroupLimits{Min: 2, Max: 10}

func validRequest() ReservationRequest {
	return ReservationRequest{
		Date:      "2025-03-14",
		StartTime: "18:00",
		Duration:  2,
		GroupSize: 4,
		Customer: Customer{
			Name:  "  Ada Lovelace ",
			Email: " Ada@Example.COM ",
			Phone: "+33 6 12 34 56 78",
		},
	}
}

func TestReservationRequest_Parse(t *testing.T) {
	req := validRequest()
	draft, err := req.Parse(limits)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if draft.Start.Hour() != 18 || draft.Duration != 2 || draft.GroupSize != 4 {
		t.Fatalf("unexpected draft %+v", draft)
	}
	if draft.Date.Weekday() != time.Friday || draft.Date.Location() != time.UTC {
		t.Fatalf("date not normalized: %v", draft.Date)
	}
	if draft.Customer.Email != "ada@example.com" || draft.Customer.Name != "Ada Lovelace" || draft.Customer.Phone != "+33612345678" {
		t.Fatalf("customer not normalized: %+v", draft.Customer)
	}
}

func TestReservationRequest_ParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ReservationRequest)
		field  string
	}{
		{"bad date", func(r *ReservationRequest) { r.Date = "14/03/2025" }, "date"},
		{"half hour start", func(r *ReservationRequest) { r.StartTime = "18:30" }, "start_time"},
		{"zero duration", func(r *ReservationRequest) { r.Duration = 0 }, "duration"},
		{"five hours", func(r *ReservationRequest) { r.Duration = 5 }, "duration"},
		{"group too small", func(r *ReservationRequest) { r.GroupSize = 1 }, "group_size"},
		{"group too large", func(r *ReservationRequest) { r.GroupSize = 11 }, "group_size"},
		{"missing name", func(r *ReservationRequest) { r.Name = " " }, "name"},
		{"bad email", func(r *ReservationRequest) { r.Email = "ada@" }, "email"},
		{"short phone", func(r *ReservationRequest) { r.Phone = "12" }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			_, err := req.Parse(limits)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
		})
	}
}

func TestReservation_CheckCancel(t *testing.T) {
	tests := []struct {
		status Status
		actor  Actor
		ok     bool
	}{
		{StatusPending, ActorCustomer, true},
		{StatusPending, ActorOperator, true},
		{StatusConfirmed, ActorCustomer, false},
		{StatusConfirmed, ActorOperator, true},
		{StatusCancelled, ActorOperator, false},
	}

	for _, tt := range tests {
		r := &Reservation{Status: tt.status}
		err := r.CheckCancel(tt.actor)
		if tt.ok && err != nil {
			t.Fatalf("%s by %s: unexpected error %v", tt.status, tt.actor, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s by %s: expected ErrInvalidTransition, got %v", tt.status, tt.actor, err)
		}
	}
}

func TestRanges_SkipsInactive(t *testing.T) {
	deleted := time.Now()
	rs := []Reservation{
		{Start: 18, Duration: 1, Status: StatusPending},
		{Start: 19, Duration: 2, Status: StatusCancelled},
		{Start: 20, Duration: 1, Status: StatusConfirmed, DeletedAt: &deleted},
		{Start: 21, Duration: 1, Status: StatusConfirmed},
	}
	got := Ranges(rs)
	if len(got) != 2 || got[0].Start != 18 || got[1].Start != 21 {
		t.Fatalf("Ranges = %+v", got)
	}
}

func TestPaymentTimeoutIsSessionError(t *testing.T) {
	if !errors.Is(ErrPaymentTimeout, ErrPaymentSession) {
		t.Fatal("timeout must also be a payment session error")
	}
	err := &PromoError{Code: "SPRING", Reason: PromoExpired}
	if !errors.Is(err, ErrPromoInvalid) {
		t.Fatal("promo error must match ErrPromoInvalid")
	}
}

func TestReservation_MarshalJSONIncludesDate(t *testing.T) {
	r := Reservation{
		ID:     7,
		Date:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Start:  18,
		Status: StatusPending,
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"date":"2025-03-14"`, `"start_time":"18:00"`, `"status":"pending"`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("%s missing from %s", want, b)
		}
	}
}
