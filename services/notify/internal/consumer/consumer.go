// Package consumer turns notify.send events into emails.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/boxbook/pkg/events"
	"github.com/diagnosis/boxbook/pkg/logger"
	"github.com/diagnosis/boxbook/pkg/retry"
	"github.com/diagnosis/boxbook/services/notify/internal/mailer"
	"github.com/diagnosis/boxbook/services/notify/internal/templates"
)

type Consumer struct {
	renderer *templates.Renderer
	mailer   mailer.Mailer
	policy   retry.Policy
	timeout  time.Duration
}

func New(renderer *templates.Renderer, m mailer.Mailer, policy retry.Policy) *Consumer {
	return &Consumer{renderer: renderer, mailer: m, policy: policy, timeout: time.Minute}
}

// HandleMessage is the bus callback. Failures are logged; the message is not
// redelivered.
func (c *Consumer) HandleMessage(msg *events.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.Handle(ctx, msg.Data); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver notification", "error", err, "subject", msg.Subject, "message_id", msg.ID)
	}
}

func (c *Consumer) Handle(ctx context.Context, data []byte) error {
	var ev events.NotificationEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode notification: %w", err)
	}
	if ev.Type != "" && ev.Type != "email" {
		logger.WarnContext(ctx, "Unsupported notification type", "type", ev.Type)
		return nil
	}

	msg, err := c.renderer.Render(ev)
	if err != nil {
		return err
	}

	var id string
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		var sendErr error
		id, sendErr = c.mailer.Send(ctx, msg)
		if errors.Is(sendErr, mailer.ErrDisabled) {
			return retry.Stop(sendErr)
		}
		if sendErr != nil {
			logger.WarnContext(ctx, "Email send attempt failed", "error", sendErr, "template", ev.Template)
		}
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("send %s email: %w", ev.Template, err)
	}

	logger.InfoContext(ctx, "Notification sent", "template", ev.Template, "to", ev.Recipient, "message_id", id)
	return nil
}
