package encryption

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/chainifynet/aws-encryption-sdk-go/pkg/client"
	"github.com/chainifynet/aws-encryption-sdk-go/pkg/clientconfig"
	"github.com/chainifynet/aws-encryption-sdk-go/pkg/materials"
	"github.com/chainifynet/aws-encryption-sdk-go/pkg/providers/kmsprovider"
	"github.com/chainifynet/aws-encryption-sdk-go/pkg/suite"
)

// Decrypter decrypts AWS Encryption SDK messages with a KMS keyring.
type Decrypter struct {
	KeyId string
}

func NewDecrypter(keyId string) *Decrypter {
	return &Decrypter{KeyId: keyId}
}

func (d *Decrypter) Decrypt(ctx context.Context, encryptedText string) (string, error) {
	if encryptedText == "" {
		return "", nil
	}

	cipherText, err := base64.StdEncoding.DecodeString(encryptedText)
	if err != nil {
		return "", fmt.Errorf("invalid base64 ciphertext: %w", err)
	}

	cfg, err := clientconfig.NewConfigWithOpts(
		clientconfig.WithCommitmentPolicy(suite.CommitmentPolicyForbidEncryptAllowDecrypt),
	)
	if err != nil {
		return "", fmt.Errorf("client config setup failed: %w", err)
	}
	c := client.NewClientWithConfig(cfg)

	kmsKeyProvider, err := kmsprovider.New(d.KeyId)
	if err != nil {
		return "", fmt.Errorf("kms key provider setup failed: %w", err)
	}

	cmm, err := materials.NewDefault(kmsKeyProvider)
	if err != nil {
		return "", fmt.Errorf("materials manager setup failed: %w", err)
	}

	plaintext, _, err := c.Decrypt(ctx, cipherText, cmm)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}
