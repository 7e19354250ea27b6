package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// MockedKeyId makes Decrypt return its input unchanged. Only honoured when
// the client allows it, which is debug mode.
const MockedKeyId = "MOCKED_KEY_ID"

var ErrMockedKeyNotAllowed = errors.New(MockedKeyId + " is only allowed in debug mode")

type kmsAPI interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// KMSClient decrypts secrets encrypted directly with a KMS key, which is what
// the Lambda console encryption helpers produce.
type KMSClient struct {
	Client      kmsAPI
	KeyId       string
	AllowMocked bool
}

func NewKMSClient(cfg aws.Config, keyId string, allowMocked bool) *KMSClient {
	return &KMSClient{Client: kms.NewFromConfig(cfg), KeyId: keyId, AllowMocked: allowMocked}
}

func (c *KMSClient) Decrypt(ctx context.Context, encodedEncryptedStr string) (string, error) {
	if encodedEncryptedStr == "" {
		return "", nil
	}

	if c.KeyId == MockedKeyId {
		if !c.AllowMocked {
			return "", ErrMockedKeyNotAllowed
		}
		return encodedEncryptedStr, nil
	}

	blob, err := base64.StdEncoding.DecodeString(encodedEncryptedStr)
	if err != nil {
		return "", fmt.Errorf("invalid base64 ciphertext: %w", err)
	}

	input := &kms.DecryptInput{
		CiphertextBlob: blob,
		KeyId:          aws.String(c.KeyId),
	}
	// console-encrypted lambda env vars are bound to the function name
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		input.EncryptionContext = map[string]string{"LambdaFunctionName": fn}
	}

	out, err := c.Client.Decrypt(ctx, input)
	if err != nil {
		return "", fmt.Errorf("kms decrypt: %w", err)
	}

	return string(out.Plaintext), nil
}
