package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/types"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridMailSendPath = "/v3/mail/send"

type SendGridProvider struct {
	APIHost string
	APIKey  string
	DryRun  bool
}

func NewSendGridProvider(cfg *config.Config) *SendGridProvider {
	return &SendGridProvider{
		APIHost: cfg.SendGridApiHost,
		APIKey:  cfg.SendGridEmailSendApiKey,
		DryRun:  !cfg.AppSendEnabled,
	}
}

func (p *SendGridProvider) Name() string {
	return "sendgrid"
}

func (p *SendGridProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	if p.DryRun {
		return p.SendDryRun(ctx, d)
	}

	request := sendgrid.GetRequest(p.APIKey, sendGridMailSendPath, p.APIHost)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(newSendGridMail(d))

	resp, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return "", fmt.Errorf("sendgrid api error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}

	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

func (p *SendGridProvider) SendDryRun(ctx context.Context, d *types.EmailData) (string, error) {
	slog.DebugContext(ctx, "dry-run sendgrid send",
		"subject", d.Subject,
		"src_address", d.SourceAddress,
		"dst_address", d.DestinationAddress,
		"reply_to", d.ReplyToAddress,
		"attachments", len(d.Attachments),
	)
	return dryRunMessageID(), nil
}

func newSendGridMail(d *types.EmailData) *mail.SGMailV3 {
	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(d.SenderName, d.SourceAddress))
	msg.Subject = d.Subject
	msg.AddContent(mail.NewContent("text/html", d.HTMLContent))
	if d.ReplyToAddress != "" {
		msg.SetReplyTo(mail.NewEmail("", d.ReplyToAddress))
	}

	to := mail.NewPersonalization()
	to.AddTos(mail.NewEmail(d.DestinationName, d.DestinationAddress))
	msg.AddPersonalizations(to)

	for _, a := range d.Attachments {
		att := mail.NewAttachment()
		att.SetContent(a.Content)
		att.SetType(a.ContentType)
		att.SetFilename(a.Name)
		att.SetDisposition("attachment")
		msg.AddAttachment(att)
	}

	return msg
}
