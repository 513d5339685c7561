package mailer

import (
	"context"
	"fmt"

	"github.com/diagnosis/boxbook/pkg/logger"
)

// DevMailer prints emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(ctx context.Context, msg Message) (string, error) {
	logger.InfoContext(ctx, "[DEV MAIL] Email",
		"to", msg.ToEmail,
		"name", msg.ToName,
		"subject", msg.Subject,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"EMAIL (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: %s\n"+
		"\n"+
		"%s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		msg.ToEmail, msg.ToName, msg.Subject, msg.Text)

	return "dev", nil
}
