package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSClient bundles the AWS clients used outside the email providers.
type AWSClient struct {
	KMS *KMSClient
	S3  *s3.Client
}

func NewAWSClient(ctx context.Context, cfg aws.Config, kmsKeyId string, allowMockedKey bool) *AWSClient {
	return &AWSClient{
		KMS: NewKMSClient(cfg, kmsKeyId, allowMockedKey),
		S3:  s3.NewFromConfig(cfg),
	}
}
