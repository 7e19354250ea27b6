package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store serves assets uploaded by the site build to a bucket prefix.
type S3Store struct {
	Client s3API
	Bucket string
	Prefix string
}

func NewS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{Client: client, Bucket: bucket, Prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) Open(ctx context.Context, name string) (*Asset, error) {
	key := path.Join(s.Prefix, strings.TrimPrefix(name, "/"))

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(s.Bucket),
		Key:    awssdk.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}

	h := http.Header{}
	if ct := awssdk.ToString(out.ContentType); ct != "" {
		h.Set("Content-Type", ct)
	} else {
		h.Set("Content-Type", contentType(name))
	}
	if out.ContentLength != nil {
		h.Set("Content-Length", strconv.FormatInt(*out.ContentLength, 10))
	}
	if etag := awssdk.ToString(out.ETag); etag != "" {
		h.Set("ETag", etag)
	}
	if out.LastModified != nil {
		h.Set("Last-Modified", out.LastModified.UTC().Format(http.TimeFormat))
	}

	return &Asset{Body: out.Body, Header: h}, nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
