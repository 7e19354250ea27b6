package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	awstypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/types"
)

var ErrHeaderLineBreak = errors.New("header value contains a line break")

type sesAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESProvider struct {
	Client sesAPI
	Health *SESHealthChecker
	DryRun bool
}

func NewSESProvider(cfg *config.Config, client sesAPI) *SESProvider {
	return &SESProvider{
		Client: client,
		DryRun: !cfg.AppSendEnabled,
	}
}

func (p *SESProvider) Name() string {
	return "ses"
}

// IsHealthy reports the account sending status when a health checker is set.
func (p *SESProvider) IsHealthy(ctx context.Context) bool {
	if p.Health == nil {
		return true
	}
	return p.Health.IsHealthy(ctx)
}

func (p *SESProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	if p.DryRun {
		return p.SendDryRun(ctx, d)
	}

	raw, err := buildRawMessage(d)
	if err != nil {
		return "", fmt.Errorf("error building raw message: %w", err)
	}

	out, err := p.Client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       awssdk.String(FormatAddress(d.SenderName, d.SourceAddress)),
		Destinations: []string{d.DestinationAddress},
		RawMessage:   &awstypes.RawMessage{Data: raw},
	})
	if err != nil {
		return "", fmt.Errorf("error sending raw email: %w", err)
	}

	return awssdk.ToString(out.MessageId), nil
}

func (p *SESProvider) SendDryRun(ctx context.Context, d *types.EmailData) (string, error) {
	slog.DebugContext(ctx, "dry-run ses send",
		"subject", d.Subject,
		"src_address", d.SourceAddress,
		"dst_address", d.DestinationAddress,
		"reply_to", d.ReplyToAddress,
		"attachments", len(d.Attachments),
	)
	return dryRunMessageID(), nil
}

// buildRawMessage renders d as a multipart/mixed MIME message with a
// quoted-printable html part followed by the attachments.
func buildRawMessage(d *types.EmailData) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=UTF-8")
	htmlHeader.Set("Content-Transfer-Encoding", "quoted-printable")
	part, err := mw.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(d.HTMLContent)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	for _, a := range d.Attachments {
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", mime.FormatMediaType(a.ContentType, map[string]string{"name": a.Name}))
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
		h.Set("Content-Transfer-Encoding", "base64")
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write([]byte(wrapBase64(a.Content))); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	headers := [][2]string{
		{"From", FormatAddress(d.SenderName, d.SourceAddress)},
		{"To", FormatAddress(d.DestinationName, d.DestinationAddress)},
	}
	if d.ReplyToAddress != "" {
		headers = append(headers, [2]string{"Reply-To", FormatAddress("", d.ReplyToAddress)})
	}
	headers = append(headers,
		[2]string{"Subject", mime.QEncoding.Encode("utf-8", d.Subject)},
		[2]string{"MIME-Version", "1.0"},
		[2]string{"Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()})},
	)

	var msg bytes.Buffer
	for _, h := range headers {
		if err := writeHeader(&msg, h[0], h[1]); err != nil {
			return nil, err
		}
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

// writeHeader refuses values that would start a new header line.
func writeHeader(b *bytes.Buffer, key, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s", ErrHeaderLineBreak, key)
	}
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
	return nil
}

// wrapBase64 splits encoded content into 76 character lines.
func wrapBase64(s string) string {
	s = strings.Join(strings.Fields(s), "")
	var b strings.Builder
	for len(s) > 76 {
		b.WriteString(s[:76])
		b.WriteString("\r\n")
		s = s[76:]
	}
	b.WriteString(s)
	return b.String()
}
