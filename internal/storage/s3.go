package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// S3Client wraps the AWS S3 client for export bundle storage.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
}

// NewS3Client creates a new S3 client for bucketName using the default AWS
// credential chain.
func NewS3Client(ctx context.Context, bucketName string) (*S3Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)
	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		bucketName: bucketName,
	}, nil
}

// Upload stores data under key. A non-empty password encrypts the payload
// with AES-GCM before upload (see crypt.go).
func (s *S3Client) Upload(ctx context.Context, key string, data []byte, password string, metadata map[string]string) error {
	body := data
	if password != "" {
		enc, err := encrypt(data, password)
		if err != nil {
			return fmt.Errorf("encrypt export: %w", err)
		}
		body = enc
		if metadata == nil {
			metadata = map[string]string{}
		}
		metadata["encrypted"] = "true"
	}
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucketName),
		Key:      aws.String(key),
		Body:     bytes.NewReader(body),
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().Str("bucket", s.bucketName).Str("key", key).Int("size", len(body)).Msg("uploaded export bundle to s3")
	return nil
}

// Download fetches and, when password is non-empty, decrypts an object.
func (s *S3Client) Download(ctx context.Context, key, password string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object: %w", err)
	}
	if password != "" {
		dec, err := decrypt(data, password)
		if err != nil {
			return nil, fmt.Errorf("decrypt export: %w", err)
		}
		data = dec
	}
	return data, nil
}

// URL returns the s3:// reference for key.
func (s *S3Client) URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucketName, key)
}
