// Package relay turns a form submission into the two outbound emails: the
// notification for the agency and the confirmation for the submitter.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/opa"
	"github.com/romenn/site-worker/internal/providers"
	"github.com/romenn/site-worker/internal/submission"
	"github.com/romenn/site-worker/internal/templates"
	"github.com/romenn/site-worker/internal/types"
	"github.com/romenn/site-worker/internal/verifier"
)

// PolicyQuery is the rego query evaluated for every submission.
const PolicyQuery = "data.site_worker_relay_policy.result"

const (
	policyActionAllow = "allow"
	policyActionDeny  = "deny"
)

type PolicyInput struct {
	FormType          string                            `json:"formType"`
	Kind              string                            `json:"kind"`
	Name              string                            `json:"name"`
	Email             string                            `json:"email"`
	Fields            map[string]string                 `json:"fields"`
	HasAttachment     bool                              `json:"hasAttachment"`
	EmailVerification *verifier.EmailVerificationResult `json:"emailVerification,omitempty"`
}

type PolicyOutput struct {
	Action          string `json:"action"`
	Reason          string `json:"reason,omitempty"`
	BusinessAddress string `json:"businessAddress,omitempty"`
}

// Result holds the provider message ids of both emails.
type Result struct {
	BusinessMessageID string
	ClientMessageID   string
}

type Relay struct {
	provider providers.Provider
	renderer *templates.Renderer
	verifier verifier.EmailVerifier
	policy   *opa.PreparedPolicy

	senderName      string
	senderAddress   string
	businessAddress string
	missing         string
}

type Option func(*Relay)

func WithProvider(p providers.Provider) Option {
	return func(r *Relay) { r.provider = p }
}

func WithRenderer(t *templates.Renderer) Option {
	return func(r *Relay) { r.renderer = t }
}

func WithVerifier(v verifier.EmailVerifier) Option {
	return func(r *Relay) { r.verifier = v }
}

func WithPolicy(pp *opa.PreparedPolicy) Option {
	return func(r *Relay) { r.policy = pp }
}

// New builds a relay from cfg. Dependencies not supplied through opts are
// built from cfg. Without a provider credential the relay is created
// unconfigured and every Send returns ErrNotConfigured.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Relay, error) {
	r := &Relay{
		senderName:      cfg.AppEmailSenderName,
		senderAddress:   cfg.AppEmailSenderAddress,
		businessAddress: cfg.AppBusinessEmail,
		missing:         cfg.MissingCredential(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var err error

	if r.renderer == nil {
		r.renderer, err = templates.New(templates.WithBrand(cfg.AppEmailSenderName))
		if err != nil {
			return nil, err
		}
	}

	if r.provider == nil && r.missing == "" {
		r.provider, err = providers.NewProvider(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init email provider: %w", err)
		}
	}

	if r.verifier == nil {
		r.verifier, err = verifier.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to init email verifier: %w", err)
		}
	}

	if r.policy == nil && cfg.AppRelayPolicyPath != "" {
		r.policy, err = opa.LoadPolicy(ctx, cfg.AppRelayPolicyPath, PolicyQuery)
		if err != nil {
			return nil, fmt.Errorf("failed to load relay policy: %w", err)
		}
	}

	return r, nil
}

// Configured reports whether the relay has a provider to send through.
func (r *Relay) Configured() bool {
	return r.provider != nil
}

// MissingCredential names the unset credential of an unconfigured relay.
func (r *Relay) MissingCredential() string {
	return r.missing
}

// Send validates s and sends the business notification, then the client
// confirmation. The confirmation is only attempted after the notification
// was accepted; a failure of either is returned as a *SendError.
func (r *Relay) Send(ctx context.Context, s *submission.Submission) (*Result, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	verification, err := r.verify(ctx, s.Email)
	if err != nil {
		return nil, err
	}

	businessAddress, err := r.evaluatePolicy(ctx, s, verification)
	if err != nil {
		return nil, err
	}

	businessHTML, err := r.renderer.Business(s)
	if err != nil {
		return nil, err
	}
	clientHTML, err := r.renderer.Client(s)
	if err != nil {
		return nil, err
	}

	business := &types.EmailData{
		SenderName:         r.senderName,
		SourceAddress:      r.senderAddress,
		DestinationAddress: businessAddress,
		ReplyToAddress:     s.Email,
		Subject:            templates.BusinessSubject(s.Kind),
		HTMLContent:        businessHTML,
	}
	if s.Attachment != nil {
		business.Attachments = []types.Attachment{*s.Attachment}
	}

	client := &types.EmailData{
		SenderName:         r.senderName,
		SourceAddress:      r.senderAddress,
		DestinationName:    s.Name,
		DestinationAddress: s.Email,
		Subject:            templates.ClientSubject(s.Kind),
		HTMLContent:        clientHTML,
	}

	res := &Result{}

	res.BusinessMessageID, err = r.provider.Send(ctx, business)
	if err != nil {
		slog.ErrorContext(ctx, "business notification failed", "form_type", s.FormType, "error", err)
		return nil, &SendError{Stage: StageBusiness, Err: err}
	}

	res.ClientMessageID, err = r.provider.Send(ctx, client)
	if err != nil {
		slog.ErrorContext(ctx, "client confirmation failed",
			"form_type", s.FormType,
			"business_message_id", res.BusinessMessageID,
			"error", err,
		)
		return nil, &SendError{Stage: StageClient, BusinessMessageID: res.BusinessMessageID, Err: err}
	}

	slog.InfoContext(ctx, "submission relayed",
		"form_type", s.FormType,
		"kind", string(s.Kind),
		"provider", r.provider.Name(),
		"business_message_id", res.BusinessMessageID,
		"client_message_id", res.ClientMessageID,
	)

	return res, nil
}

// verify never blocks a lead on a verifier outage; errors count as valid.
func (r *Relay) verify(ctx context.Context, email string) (*verifier.EmailVerificationResult, error) {
	if r.verifier == nil {
		return nil, nil
	}

	result, err := r.verifier.VerifyEmail(ctx, email)
	if err != nil {
		slog.WarnContext(ctx, "email verification failed, accepting address", "error", err)
		return nil, nil
	}

	if !result.IsValid {
		slog.InfoContext(ctx, "submitter email rejected", "raw", result.Raw)
		return result, ErrInvalidEmail
	}

	return result, nil
}

// evaluatePolicy returns the mailbox the notification goes to.
func (r *Relay) evaluatePolicy(ctx context.Context, s *submission.Submission, v *verifier.EmailVerificationResult) (string, error) {
	if r.policy == nil {
		return r.businessAddress, nil
	}

	input := PolicyInput{
		FormType:          s.FormType,
		Kind:              string(s.Kind),
		Name:              s.Name,
		Email:             s.Email,
		Fields:            s.Fields,
		HasAttachment:     s.Attachment != nil,
		EmailVerification: v,
	}

	out, err := opa.Evaluate[PolicyOutput](ctx, r.policy, input)
	if errors.Is(err, opa.ErrNoResult) {
		return r.businessAddress, nil
	}
	if err != nil {
		return "", fmt.Errorf("relay policy: %w", err)
	}

	switch out.Action {
	case policyActionAllow:
		if out.BusinessAddress != "" {
			return out.BusinessAddress, nil
		}
		return r.businessAddress, nil
	case policyActionDeny:
		slog.InfoContext(ctx, "submission denied by policy", "form_type", s.FormType, "reason", out.Reason)
		return "", &DeniedError{Reason: out.Reason}
	default:
		return "", fmt.Errorf("relay policy: unknown action %q", out.Action)
	}
}
