package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/google/uuid"
	"github.com/romenn/site-worker/internal/config"
	"github.com/romenn/site-worker/internal/types"
)

type Provider interface {
	Name() string
	// Send delivers one email and returns the provider's message id.
	Send(ctx context.Context, d *types.EmailData) (string, error)
}

// NewProvider builds the configured provider, or the failover chain when
// failover is enabled. Every provider is traced.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	if !cfg.AppEmailFailoverEnabled {
		p, err := newNamedProvider(ctx, cfg, cfg.AppEmailProvider, false)
		if err != nil {
			return nil, err
		}
		return Traced(p), nil
	}

	chain := make([]Provider, 0, len(cfg.AppEmailFailoverProviders))
	for _, name := range cfg.AppEmailFailoverProviders {
		p, err := newNamedProvider(ctx, cfg, name, true)
		if err != nil {
			return nil, err
		}
		chain = append(chain, Traced(p))
	}

	slog.DebugContext(ctx, "email failover enabled", "providers", cfg.AppEmailFailoverProviders)

	return NewFailoverProvider(chain), nil
}

func newNamedProvider(ctx context.Context, cfg *config.Config, name string, withHealth bool) (Provider, error) {
	switch name {
	case config.ProviderBrevo:
		return NewBrevoProvider(cfg), nil
	case config.ProviderSendGrid:
		return NewSendGridProvider(cfg), nil
	case config.ProviderSES:
		awscfg, err := cfg.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		p := NewSESProvider(cfg, ses.NewFromConfig(awscfg))
		if withHealth {
			p.Health = NewSESHealthChecker(sesv2.NewFromConfig(awscfg), cfg.AppEmailFailoverCacheTTL)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", name)
	}
}

// FormatAddress renders a display name and address as an RFC 5322 mailbox.
func FormatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

func dryRunMessageID() string {
	return "dry-run-" + uuid.NewString()
}
