package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// CloudflareR2Storage работает через S3-совместимый API R2.
// Endpoint вида https://<account_id>.r2.cloudflarestorage.com
type CloudflareR2Storage struct {
	s3       *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	baseURL  string
	acl      *string
}

func NewCloudflareR2Storage(cfg Config) (*CloudflareR2Storage, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, errors.New("storage: r2 endpoint is required")
	case cfg.Bucket == "":
		return nil, errors.New("storage: r2 bucket is required")
	}

	awsCfg := aws.NewConfig().
		WithRegion("auto").
		WithEndpoint(cfg.Endpoint).
		WithS3ForcePathStyle(true).
		WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("storage: r2 session: %w", err)
	}

	st := &CloudflareR2Storage{
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
		baseURL:  cfg.BaseURL,
	}
	if st.baseURL == "" {
		st.baseURL = "https://" + cfg.Bucket + ".r2.dev"
	}
	if cfg.PublicRead {
		st.acl = aws.String(s3.ObjectCannedACLPublicRead)
	}
	return st, nil
}

func (s *CloudflareR2Storage) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
		ACL:          s.acl,
	})
	if err != nil {
		return fmt.Errorf("storage: r2 put %s: %w", key, err)
	}
	return nil
}

// Remove: S3 DeleteObject на несуществующий ключ и так отвечает 204
func (s *CloudflareR2Storage) Remove(ctx context.Context, key string) error {
	_, err := s.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: r2 delete %s: %w", key, err)
	}
	return nil
}

func (s *CloudflareR2Storage) URL(key string) string {
	return joinURL(s.baseURL, key)
}
