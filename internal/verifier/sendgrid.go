package verifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/romenn/site-worker/internal/config"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
)

const sendGridValidationPath = "/v3/validations/email"

type SendGridEmailEmailAddressValidationRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

type SendGridEmailEmailAddressValidationResult struct {
	Email   string  `json:"email"`
	Verdict string  `json:"verdict"`
	Score   float32 `json:"score"`
	Checks  struct {
		Additional struct {
			IsRoleAddress bool `json:"is_role_address"`
		} `json:"additional"`
		Domain struct {
			IsSuspectedDisposableAddress bool `json:"is_suspected_disposable_address"`
		} `json:"domain"`
	} `json:"checks"`
}

type SendGridEmailEmailAddressValidationResponse struct {
	Result SendGridEmailEmailAddressValidationResult `json:"result"`
}

type SendGridEmailVerifier struct {
	Whitelist Whitelist
	APIHost   string
	APIKey    string
}

// VerifyEmail checks the whitelist first and only calls the validation API
// for addresses it does not cover.
func (v *SendGridEmailVerifier) VerifyEmail(ctx context.Context, email string) (*EmailVerificationResult, error) {
	if r, _ := v.VerifyEmailViaWhitelist(ctx, email); r != nil {
		return r, nil
	}
	return v.VerifyEmailViaAPI(ctx, email)
}

func (v *SendGridEmailVerifier) VerifyEmailViaWhitelist(ctx context.Context, email string) (*EmailVerificationResult, error) {
	return v.Whitelist.Match(email), nil
}

func (v *SendGridEmailVerifier) VerifyEmailViaAPI(ctx context.Context, email string) (*EmailVerificationResult, error) {
	body, err := json.Marshal(SendGridEmailEmailAddressValidationRequest{Email: email, Source: "site-worker"})
	if err != nil {
		return nil, fmt.Errorf("sendgrid marshal error: %w", err)
	}

	request := sendgrid.GetRequest(v.APIKey, sendGridValidationPath, v.APIHost)
	request.Method = rest.Post
	request.Body = body

	response, err := rest.SendWithContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("sendgrid api error: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("sendgrid validation failed: status=%d body=%s", response.StatusCode, response.Body)
	}

	var payload SendGridEmailEmailAddressValidationResponse
	if err := json.Unmarshal([]byte(response.Body), &payload); err != nil {
		return nil, fmt.Errorf("sendgrid unmarshal error: %w", err)
	}

	result := payload.Result

	return &EmailVerificationResult{
		Score:        result.Score,
		IsValid:      result.Verdict != "Invalid",
		IsDisposable: result.Checks.Domain.IsSuspectedDisposableAddress,
		IsRoleBased:  result.Checks.Additional.IsRoleAddress,
		Raw:          response.Body,
	}, nil
}

func NewSendGridVerifier(cfg *config.Config) *SendGridEmailVerifier {
	return &SendGridEmailVerifier{
		Whitelist: cfg.AppEmailVerificationWhitelist,
		APIHost:   cfg.SendGridApiHost,
		APIKey:    cfg.SendGridEmailVerificationApiKey,
	}
}
