package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/romenn/site-worker/internal/types"
)

// ErrNoProviderAvailable is returned when every provider in the chain was
// skipped as unhealthy.
var ErrNoProviderAvailable = errors.New("no email provider available")

// FailoverProvider wraps multiple providers and attempts to send emails
// through them in order, failing over to the next provider if one is unhealthy
// or fails to send.
type FailoverProvider struct {
	providers []Provider
}

// NewFailoverProvider creates a new failover provider with the given providers.
// Providers are tried in order - the first healthy provider that successfully
// sends the email wins.
func NewFailoverProvider(providers []Provider) *FailoverProvider {
	return &FailoverProvider{
		providers: providers,
	}
}

func (f *FailoverProvider) Name() string {
	return "failover"
}

// Send attempts to send an email through each provider in order, skipping
// providers whose HealthChecker reports unhealthy. When every attempt fails
// the last error is returned.
func (f *FailoverProvider) Send(ctx context.Context, d *types.EmailData) (string, error) {
	var lastErr error

	for _, p := range f.providers {
		providerName := p.Name()

		if hc, ok := p.(HealthChecker); ok {
			if !hc.IsHealthy(ctx) {
				slog.WarnContext(ctx, "provider unhealthy, skipping",
					"provider", providerName,
				)
				continue
			}
		}

		id, err := p.Send(ctx, d)
		if err == nil {
			slog.InfoContext(ctx, "email sent successfully",
				"provider", providerName,
				"message_id", id,
			)
			return id, nil
		}

		slog.WarnContext(ctx, "provider send failed, trying next",
			"provider", providerName,
			"error", err,
		)
		lastErr = fmt.Errorf("%s: %w", providerName, err)
	}

	if lastErr != nil {
		slog.ErrorContext(ctx, "all providers failed to send email",
			"last_error", lastErr,
			"destination", d.DestinationAddress,
		)
		return "", lastErr
	}

	slog.ErrorContext(ctx, "no providers available to send email",
		"destination", d.DestinationAddress,
	)
	return "", ErrNoProviderAvailable
}

// Providers returns the list of providers in this failover chain.
func (f *FailoverProvider) Providers() []Provider {
	return f.providers
}
