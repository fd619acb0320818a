package notify

import (
	"context"
	"fmt"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

type ResendNotifier struct {
	client *resend.Client
	from   string
	brand  string
	log    zerolog.Logger
}

func NewResendNotifier(client *resend.Client, from, brand string) *ResendNotifier {
	return &ResendNotifier{
		client: client,
		from:   from,
		brand:  brand,
		log:    logger.Component("notify"),
	}
}

func (n *ResendNotifier) SendConfirmation(ctx context.Context, c Confirmation, pdf []byte) error {
	html, err := render("confirmation.html", c, n.brand)
	if err != nil {
		return err
	}

	req := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{c.StudentEmail},
		Subject: confirmationSubject(c),
		Html:    html,
	}
	if len(pdf) > 0 {
		req.Attachments = []*resend.Attachment{{
			Content:  pdf,
			Filename: attachmentName(c),
		}}
	}

	sent, err := n.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send confirmation for %s: %w", c.RequestID, err)
	}

	n.log.Info().Str("request_id", c.RequestID).Str("email_id", sent.Id).Msg("Confirmation email sent")
	return nil
}

func (n *ResendNotifier) SendSchoolNotification(ctx context.Context, to string, c Confirmation) error {
	html, err := render("school_notification.html", c, n.brand)
	if err != nil {
		return err
	}

	sent, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{to},
		Subject: schoolSubject(c),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send school notification for %s: %w", c.RequestID, err)
	}

	n.log.Info().Str("request_id", c.RequestID).Str("email_id", sent.Id).Msg("School notification sent")
	return nil
}

func (n *ResendNotifier) Mode() string {
	return config.ModeLive
}

// LogNotifier stands in when no mail API key is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.Component("notify")}
}

func (n *LogNotifier) SendConfirmation(ctx context.Context, c Confirmation, pdf []byte) error {
	n.log.Info().
		Str("request_id", c.RequestID).
		Str("subject", confirmationSubject(c)).
		Str("attachment", attachmentName(c)).
		Int("attachment_bytes", len(pdf)).
		Msg("Mail disabled, confirmation not sent")
	return nil
}

func (n *LogNotifier) SendSchoolNotification(ctx context.Context, to string, c Confirmation) error {
	n.log.Info().
		Str("request_id", c.RequestID).
		Str("subject", schoolSubject(c)).
		Msg("Mail disabled, school notification not sent")
	return nil
}

func (n *LogNotifier) Mode() string {
	return config.ModeSimulated
}

// New returns the notifier selected by the resolved mail mode.
func New(cfg *config.Config) Notifier {
	if cfg.Mail.ResolvedMode() == config.ModeLive {
		return NewResendNotifier(resend.NewClient(cfg.Mail.APIKey), cfg.Mail.Sender(), cfg.Documents.BrandName)
	}
	return NewLogNotifier()
}
