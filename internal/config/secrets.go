package config

import (
	"context"
	"fmt"
)

// Decrypter turns a base64 ciphertext into plaintext.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// DecryptSecrets replaces every provider credential with its plaintext.
// It is a no-op unless APP_SECRETS_KMS_KEY_ID is set.
func (c *Config) DecryptSecrets(ctx context.Context, d Decrypter) error {
	if c.AppSecretsKmsKeyId == "" {
		return nil
	}

	secrets := []struct {
		name  string
		value *string
	}{
		{"APP_BREVO_API_KEY", &c.BrevoApiKey},
		{"APP_SENDGRID_EMAIL_SEND_API_KEY", &c.SendGridEmailSendApiKey},
		{"APP_SENDGRID_EMAIL_VERIFICATION_API_KEY", &c.SendGridEmailVerificationApiKey},
	}

	for _, s := range secrets {
		if *s.value == "" {
			continue
		}
		plain, err := d.Decrypt(ctx, *s.value)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", s.name, err)
		}
		*s.value = plain
	}

	return nil
}
