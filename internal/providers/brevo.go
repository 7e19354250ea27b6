package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/types"
)

// max bytes of an api response kept for error messages
const maxResponseBytes = 1 << 20

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoAttachment struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type brevoRequest struct {
	Sender      brevoContact      `json:"sender"`
	To          []brevoContact    `json:"to"`
	ReplyTo     *brevoContact     `json:"replyTo,omitempty"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Attachment  []brevoAttachment `json:"attachment,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

// BrevoProvider sends through the Brevo transactional email API.
type BrevoProvider struct {
	Client *http.Client
	URL    string
	APIKey string
	DryRun bool
}

func NewBrevoProvider(cfg *config.Config) *BrevoProvider {
	return &BrevoProvider{
		Client: &http.Client{Timeout: cfg.AppEmailHTTPTimeout},
		URL:    cfg.BrevoApiUrl,
		APIKey: cfg.BrevoApiKey,
		DryRun: !cfg.AppSendEnabled,
	}
}

func (p *BrevoProvider) Name() string {
	return "brevo"
}

func (p *BrevoProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	if p.DryRun {
		return p.SendDryRun(ctx, d)
	}

	body, err := json.Marshal(newBrevoRequest(d))
	if err != nil {
		return "", fmt.Errorf("error marshaling brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating brevo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.APIKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("error reading brevo response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("brevo api error: %d - %s", resp.StatusCode, respBody)
	}

	var out brevoResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("error decoding brevo response: %w", err)
	}

	return out.MessageID, nil
}

func (p *BrevoProvider) SendDryRun(ctx context.Context, d *types.EmailData) (string, error) {
	slog.DebugContext(ctx, "dry-run brevo send",
		"subject", d.Subject,
		"src_address", d.SourceAddress,
		"dst_address", d.DestinationAddress,
		"reply_to", d.ReplyToAddress,
		"attachments", len(d.Attachments),
	)
	return dryRunMessageID(), nil
}

func newBrevoRequest(d *types.EmailData) brevoRequest {
	r := brevoRequest{
		Sender:      brevoContact{Name: d.SenderName, Email: d.SourceAddress},
		To:          []brevoContact{{Name: d.DestinationName, Email: d.DestinationAddress}},
		Subject:     d.Subject,
		HTMLContent: d.HTMLContent,
	}
	if d.ReplyToAddress != "" {
		r.ReplyTo = &brevoContact{Email: d.ReplyToAddress}
	}
	for _, a := range d.Attachments {
		r.Attachment = append(r.Attachment, brevoAttachment{Name: a.Name, Content: a.Content})
	}
	return r
}
