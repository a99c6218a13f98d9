package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 is a client for an S3-compatible media host.
type S3 struct {
	Client     *s3.Client
	BucketName string
	baseURL    string
}

// Config holds the media host configuration. PublicBaseURL is the
// externally reachable address objects are served from; when empty the
// endpoint itself is used.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// New creates a new media host client. Credentials are fixed for the
// lifetime of the client.
func New(ctx context.Context, cfg Config) (*S3, error) {
	// Route all requests to the configured endpoint (MinIO or any
	// S3-compatible host).
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.Endpoint,
			HostnameImmutable: true,
			SigningRegion:     "us-east-1",
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
		config.WithRegion("us-east-1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true // MinIO requires path-style addressing
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}

	s3Client := &S3{
		Client:     client,
		BucketName: cfg.Bucket,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}

	if err := s3Client.EnsureBucketExists(ctx); err != nil {
		return nil, err
	}

	return s3Client, nil
}

// EnsureBucketExists creates the configured bucket if it is missing.
func (s *S3) EnsureBucketExists(ctx context.Context) error {
	_, err := s.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.BucketName),
	})
	if err == nil {
		return nil
	}

	_, err = s.Client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.BucketName),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}

// UploadObject writes an object to the media host.
func (s *S3) UploadObject(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.BucketName),
		Key:         aws.String(key),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// DeleteObject removes an object from the media host.
func (s *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// ObjectURL returns the public URL an uploaded object is served from.
// With path-style addressing the bucket is part of the path.
func (s *S3) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.BucketName, key)
}
