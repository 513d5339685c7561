// Package templates renders the customer and venue emails for each
// notification kind.
package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/services/notify/internal/mailer"
)

const (
	Created      = "created"
	Confirmation = "confirmation"
	Cancelled    = "cancelled"
	Admin        = "admin_notification"
)

type Renderer struct {
	venue     string
	manageURL string
}

func NewRenderer(venue, manageURL string) *Renderer {
	return &Renderer{venue: venue, manageURL: strings.TrimRight(manageURL, "/")}
}

// fields is the template data flattened to display strings.
type fields map[string]interface{}

func (f fields) get(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (r *Renderer) Render(ev events.NotificationEvent) (mailer.Message, error) {
	if strings.TrimSpace(ev.Recipient) == "" {
		return mailer.Message{}, fmt.Errorf("notification %q has no recipient", ev.Template)
	}

	f := fields(ev.Data)
	when := fmt.Sprintf("%s at %s for %sh", f.get("date"), f.get("start_time"), f.get("duration"))
	manage := fmt.Sprintf("%s/%s?manage_token=%s", r.manageURL, f.get("reservation_id"), f.get("manage_token"))

	msg := mailer.Message{ToEmail: ev.Recipient, ToName: ev.Name}
	var lines []string
	switch ev.Template {
	case Created:
		msg.Subject = fmt.Sprintf("%s: reservation received", r.venue)
		lines = []string{
			fmt.Sprintf("Hi %s,", f.get("customer_name")),
			fmt.Sprintf("We received your reservation for %s, %s people.", when, f.get("group_size")),
			fmt.Sprintf("Total: %s. Your slot is held once payment is complete.", f.get("price")),
			"Manage your reservation: " + manage,
		}
	case Confirmation:
		msg.Subject = fmt.Sprintf("%s: reservation confirmed", r.venue)
		lines = []string{
			fmt.Sprintf("Hi %s,", f.get("customer_name")),
			fmt.Sprintf("Your reservation for %s is confirmed.", when),
			fmt.Sprintf("Group size: %s. Paid: %s.", f.get("group_size"), f.get("price")),
			"Reservation details: " + manage,
		}
	case Cancelled:
		msg.Subject = fmt.Sprintf("%s: reservation cancelled", r.venue)
		lines = []string{
			fmt.Sprintf("Hi %s,", f.get("customer_name")),
			fmt.Sprintf("Your reservation for %s has been cancelled.", when),
		}
		if reason := f.get("reason"); reason != "" {
			lines = append(lines, "Reason: "+reason)
		}
	case Admin:
		msg.Subject = fmt.Sprintf("New confirmed reservation #%s", f.get("reservation_id"))
		lines = []string{
			fmt.Sprintf("Reservation #%s: %s, %s people, %s.", f.get("reservation_id"), when, f.get("group_size"), f.get("price")),
			fmt.Sprintf("Customer: %s <%s> %s", f.get("customer_name"), f.get("customer_email"), f.get("customer_phone")),
		}
		if m := f.get("message"); m != "" {
			lines = append(lines, "Message: "+m)
		}
	default:
		return mailer.Message{}, fmt.Errorf("unknown notification template %q", ev.Template)
	}

	if f.get("is_test") == "true" {
		msg.Subject = "[TEST] " + msg.Subject
	}
	msg.Text = strings.Join(lines, "\n\n")
	msg.HTML = toHTML(lines)
	return msg, nil
}

func toHTML(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(l))
		b.WriteString("</p>\n")
	}
	return b.String()
}
