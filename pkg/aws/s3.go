package aws

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const imageCacheControl = "max-age=3600"

// S3Storage stores product images in a bucket and serves them from a public URL.
type S3Storage struct {
	uploader      *manager.Uploader
	presigner     *s3.PresignClient
	bucket        string
	region        string
	publicBaseURL string
}

// NewS3Storage builds the storage. publicBaseURL overrides the default virtual-hosted URL,
// e.g. a CDN or the LocalStack endpoint.
func NewS3Storage(cfg sdkaws.Config, bucket, publicBaseURL string) *S3Storage {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = UsesCustomEndpoint(cfg)
	})
	return &S3Storage{
		uploader:      manager.NewUploader(client),
		presigner:     s3.NewPresignClient(client),
		bucket:        bucket,
		region:        cfg.Region,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Upload writes body under key. Existing objects are never overwritten.
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:       sdkaws.String(s.bucket),
		Key:          sdkaws.String(key),
		Body:         body,
		CacheControl: sdkaws.String(imageCacheControl),
		IfNoneMatch:  sdkaws.String("*"),
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 upload %s: %w", key, err)
	}
	return nil
}

func (s *S3Storage) PublicURL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// PresignPut returns a URL the admin client can PUT an image to directly, plus the headers
// it must send.
func (s *S3Storage) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, map[string]string, error) {
	input := &s3.PutObjectInput{
		Bucket: sdkaws.String(s.bucket),
		Key:    sdkaws.String(key),
	}
	if contentType != "" {
		input.ContentType = sdkaws.String(contentType)
	}
	presigned, err := s.presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	headers := make(map[string]string)
	for k, v := range presigned.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return presigned.URL, headers, nil
}
