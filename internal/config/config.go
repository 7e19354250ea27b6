package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/caarlos0/env/v11"
)

const (
	ProviderBrevo    = "brevo"
	ProviderSES      = "ses"
	ProviderSendGrid = "sendgrid"

	VerifierOffline  = "offline"
	VerifierSendGrid = "sendgrid"

	SecretsFormatKMS  = "kms"
	SecretsFormatESDK = "esdk"
)

var knownProviders = []string{ProviderBrevo, ProviderSES, ProviderSendGrid}

type Config struct {
	awsConfig *aws.Config

	AppLogLevel   slog.Level `env:"APP_LOG_LEVEL" envDefault:"info"`
	AppHTTPAddr   string     `env:"APP_HTTP_ADDR" envDefault:":8080"`
	AppAssetsDir  string     `env:"APP_ASSETS_DIR" envDefault:"dist"`
	AppAssetsS3   string     `env:"APP_ASSETS_BUCKET"`
	AppAssetsPath string     `env:"APP_ASSETS_PREFIX"`

	AppEmailProvider      string        `env:"APP_EMAIL_PROVIDER" envDefault:"brevo"`
	AppEmailSenderName    string        `env:"APP_EMAIL_SENDER_NAME" envDefault:"Römenn Inmobiliaria"`
	AppEmailSenderAddress string        `env:"APP_EMAIL_SENDER_ADDRESS" envDefault:"no-reply@romenninmobiliaria.es"`
	AppBusinessEmail      string        `env:"APP_BUSINESS_EMAIL" envDefault:"romenn.inmo@gmail.com"`
	AppEmailHTTPTimeout   time.Duration `env:"APP_EMAIL_HTTP_TIMEOUT" envDefault:"10s"`
	AppMaxBodyBytes       int64         `env:"APP_MAX_BODY_BYTES" envDefault:"8388608"`
	AppSendEnabled        bool          `env:"APP_SEND_ENABLED" envDefault:"true"`
	AppRelayPolicyPath    string        `env:"APP_RELAY_POLICY_PATH"`

	AppEmailVerificationEnabled   bool     `env:"APP_EMAIL_VERIFICATION_ENABLED"`
	AppEmailVerificationProvider  string   `env:"APP_EMAIL_VERIFICATION_PROVIDER" envDefault:"offline"`
	AppEmailVerificationWhitelist []string `env:"APP_EMAIL_VERIFICATION_WHITELIST" envSeparator:","`

	// Failover configuration
	AppEmailFailoverEnabled   bool          `env:"APP_EMAIL_FAILOVER_ENABLED"`
	AppEmailFailoverProviders []string      `env:"APP_EMAIL_FAILOVER_PROVIDERS" envSeparator:","`
	AppEmailFailoverCacheTTL  time.Duration `env:"APP_EMAIL_FAILOVER_CACHE_TTL" envDefault:"30s"`

	// Secrets below are ciphertext when a key id is set.
	AppSecretsKmsKeyId string `env:"APP_SECRETS_KMS_KEY_ID"`
	AppSecretsFormat   string `env:"APP_SECRETS_FORMAT" envDefault:"kms"`

	AppOtelEnabled  bool   `env:"APP_OTEL_ENABLED" envDefault:"true"`
	AppOtelEndpoint string `env:"APP_OTEL_ENDPOINT"`

	BrevoApiUrl string `env:"APP_BREVO_API_URL" envDefault:"https://api.brevo.com/v3/smtp/email"`
	BrevoApiKey string `env:"APP_BREVO_API_KEY"`

	SendGridApiHost                 string `env:"APP_SENDGRID_API_HOST" envDefault:"https://api.sendgrid.com"`
	SendGridEmailSendApiKey         string `env:"APP_SENDGRID_EMAIL_SEND_API_KEY"`
	SendGridEmailVerificationApiKey string `env:"APP_SENDGRID_EMAIL_VERIFICATION_API_KEY"`

	DebugMode     bool   `env:"APP_DEBUG_MODE"`
	DebugDataPath string `env:"APP_DEBUG_DATA_PATH"`
}

// New loads the configuration from the process environment.
func New() (*Config, error) {
	return Load(nil)
}

// Load parses configuration from environ, falling back to the process
// environment when environ is nil, and validates the result.
func Load(environ map[string]string) (*Config, error) {
	lookup := os.LookupEnv
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
		lookup = func(key string) (string, bool) {
			v, ok := environ[key]
			return v, ok
		}
	}

	cfg := Config{}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// disable send if debug mode by default
	if cfg.DebugMode {
		if v, _ := lookup("APP_SEND_ENABLED"); v != "true" {
			cfg.AppSendEnabled = false
		}
	}

	cfg.AppEmailProvider = strings.ToLower(strings.TrimSpace(cfg.AppEmailProvider))
	if !slices.Contains(knownProviders, cfg.AppEmailProvider) {
		slog.Warn("unknown email provider, defaulting to brevo", "provider", cfg.AppEmailProvider)
		cfg.AppEmailProvider = ProviderBrevo
	}

	cfg.AppEmailVerificationWhitelist = trimAll(cfg.AppEmailVerificationWhitelist)
	cfg.AppEmailFailoverProviders = trimAll(cfg.AppEmailFailoverProviders)

	// deprecated
	if cfg.BrevoApiKey == "" {
		if v, ok := lookup("BREVO_API_KEY"); ok && v != "" {
			cfg.BrevoApiKey = v
			slog.Warn("deprecated env var used", "old", "BREVO_API_KEY", "new", "APP_BREVO_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.EmailConfigured() {
		slog.Warn("email provider credential missing, relay will reject submissions",
			"provider", cfg.AppEmailProvider,
			"missing", cfg.MissingCredential(),
		)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and valid.
// A missing provider credential is not a validation error; see EmailConfigured.
func (c *Config) Validate() error {
	if _, err := mail.ParseAddress(c.AppEmailSenderAddress); err != nil {
		return fmt.Errorf("APP_EMAIL_SENDER_ADDRESS is invalid: %w", err)
	}

	if _, err := mail.ParseAddress(c.AppBusinessEmail); err != nil {
		return fmt.Errorf("APP_BUSINESS_EMAIL is invalid: %w", err)
	}

	if c.AppMaxBodyBytes <= 0 {
		return errors.New("APP_MAX_BODY_BYTES must be positive")
	}

	if c.AppEmailVerificationEnabled {
		switch c.AppEmailVerificationProvider {
		case VerifierOffline:
		case VerifierSendGrid:
			if c.SendGridEmailVerificationApiKey == "" {
				return errors.New("APP_SENDGRID_EMAIL_VERIFICATION_API_KEY is required when using sendgrid email verification")
			}
		default:
			return errors.New("invalid email verification provider: " + c.AppEmailVerificationProvider + " (must be 'offline' or 'sendgrid')")
		}
	}

	if c.AppSecretsKmsKeyId != "" && c.AppSecretsFormat != SecretsFormatKMS && c.AppSecretsFormat != SecretsFormatESDK {
		return errors.New("invalid APP_SECRETS_FORMAT: " + c.AppSecretsFormat + " (must be 'kms' or 'esdk')")
	}

	if c.AppEmailFailoverEnabled {
		if len(c.AppEmailFailoverProviders) == 0 {
			return errors.New("APP_EMAIL_FAILOVER_PROVIDERS is required when failover is enabled")
		}

		for _, p := range c.AppEmailFailoverProviders {
			if !slices.Contains(knownProviders, p) {
				return errors.New("invalid failover provider: " + p + " (must be 'brevo', 'ses' or 'sendgrid')")
			}
		}

		for _, p := range c.AppEmailFailoverProviders {
			if missing := c.missingCredentialFor(p); missing != "" {
				return errors.New(missing + " is required when " + p + " is in failover chain")
			}
		}
	}

	return nil
}

// EmailConfigured reports whether the primary email provider has a credential.
func (c *Config) EmailConfigured() bool {
	return c.MissingCredential() == ""
}

// MissingCredential names the env var holding the primary provider's
// credential when it is unset, or returns "".
func (c *Config) MissingCredential() string {
	return c.missingCredentialFor(c.AppEmailProvider)
}

func (c *Config) missingCredentialFor(provider string) string {
	switch provider {
	case ProviderBrevo:
		if c.BrevoApiKey == "" {
			return "APP_BREVO_API_KEY"
		}
	case ProviderSendGrid:
		if c.SendGridEmailSendApiKey == "" {
			return "APP_SENDGRID_EMAIL_SEND_API_KEY"
		}
	}
	// ses authenticates through the aws credential chain
	return ""
}

// AWSConfig returns the AWS SDK configuration, loading the default chain on
// first use.
func (c *Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	if c.awsConfig != nil {
		return *c.awsConfig, nil
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	c.awsConfig = &awscfg

	return awscfg, nil
}

// SetAWSConfig overrides the AWS SDK configuration.
func (c *Config) SetAWSConfig(awscfg aws.Config) {
	c.awsConfig = &awscfg
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
