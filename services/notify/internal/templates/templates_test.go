package templates

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/diagnosis/boxbook/pkg/events"
)

// event decodes like the consumer does, so numbers arrive as float64.
func event(t *testing.T, template string, extra map[string]interface{}) events.NotificationEvent {
	t.Helper()
	data := map[string]interface{}{
		"reservation_id": 42,
		"customer_name":  "Ada <script>",
		"customer_email": "ada@example.com",
		"date":           "2025-03-14",
		"start_time":     "19:00",
		"duration":       2,
		"group_size":     4,
		"price":          "95.00",
		"manage_token":   "tok",
		"is_test":        false,
	}
	for k, v := range extra {
		data[k] = v
	}
	raw, err := json.Marshal(events.NotificationEvent{Type: "email", Recipient: "ada@example.com", Template: template, Data: data})
	if err != nil {
		t.Fatal(err)
	}
	var ev events.NotificationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestRender_Kinds(t *testing.T) {
	r := NewRenderer("Boxbook", "https://boxbook.example/reservations/")

	tests := []struct {
		template string
		subject  string
		contains string
	}{
		{Created, "Boxbook: reservation received", "https://boxbook.example/reservations/42?manage_token=tok"},
		{Confirmation, "Boxbook: reservation confirmed", "2025-03-14 at 19:00 for 2h is confirmed"},
		{Cancelled, "Boxbook: reservation cancelled", "Reason: customer_requested"},
		{Admin, "New confirmed reservation #42", "4 people, 95.00"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			msg, err := r.Render(event(t, tt.template, map[string]interface{}{"reason": "customer_requested"}))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if msg.Subject != tt.subject {
				t.Fatalf("subject = %q, want %q", msg.Subject, tt.subject)
			}
			if !strings.Contains(msg.Text, tt.contains) {
				t.Fatalf("text missing %q:\n%s", tt.contains, msg.Text)
			}
			if msg.ToEmail != "ada@example.com" {
				t.Fatalf("recipient = %q", msg.ToEmail)
			}
		})
	}
}

func TestRender_EscapesHTML(t *testing.T) {
	msg, err := NewRenderer("Boxbook", "https://x").Render(event(t, Confirmation, nil))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(msg.HTML, "<script>") || !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Fatalf("html not escaped: %s", msg.HTML)
	}
}

func TestRender_TestBookingSubject(t *testing.T) {
	msg, err := NewRenderer("Boxbook", "https://x").Render(event(t, Created, map[string]interface{}{"is_test": true}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg.Subject, "[TEST] ") {
		t.Fatalf("subject = %q", msg.Subject)
	}
}

func TestRender_Errors(t *testing.T) {
	r := NewRenderer("Boxbook", "https://x")

	if _, err := r.Render(event(t, "birthday", nil)); err == nil {
		t.Fatal("expected unknown template error")
	}
	ev := event(t, Created, nil)
	ev.Recipient = " "
	if _, err := r.Render(ev); err == nil {
		t.Fatal("expected missing recipient error")
	}
}
