package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

// ErrDisabled is returned when no API key or sender address is configured.
var ErrDisabled = errors.New("mailer disabled (missing MAILERSEND_API_KEY or MAILER_FROM)")

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	timeout time.Duration
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		timeout: 10 * time.Second,
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}
	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}
	return m
}

func (m *MailerSendClient) Send(ctx context.Context, in Message) (string, error) {
	if !m.enabled {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: in.ToName, Email: in.ToEmail}})
	msg.SetSubject(in.Subject)
	if strings.TrimSpace(in.Text) != "" {
		msg.SetText(in.Text)
	}
	if strings.TrimSpace(in.HTML) != "" {
		msg.SetHTML(in.HTML)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	// MailerSend uses X-Message-Id
	return res.Header.Get("X-Message-Id"), nil
}
