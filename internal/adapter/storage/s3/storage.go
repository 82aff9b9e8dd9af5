// Package s3 stores rendered QR artifacts and appends scan audit entries
// to S3 buckets.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pavelzubkov/qrlink/internal/entity"
)

// Client is the subset of the S3 API used by Storage.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config contains the settings for the S3 buckets.
type Config struct {
	Region          string
	Endpoint        string // optional, for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	QRBucket        string
	ScanLogBucket   string
	BaseURL         string // public URL base for serving QR artifacts
	ForcePathStyle  bool
}

type Storage struct {
	client        Client
	qrBucket      string
	scanLogBucket string
	baseURL       string
}

// NewStorage builds a Storage backed by a real S3 client.
func NewStorage(ctx context.Context, cfg Config) (*Storage, error) {
	const op = "adapter.storage.s3.NewStorage"

	if cfg.QRBucket == "" || cfg.ScanLogBucket == "" {
		return nil, fmt.Errorf("%s: qr and scan log buckets are required", op)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to load aws config: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return NewStorageWithClient(client, cfg), nil
}

// NewStorageWithClient builds a Storage with a pre-configured client.
// Useful for testing with mocks.
func NewStorageWithClient(client Client, cfg Config) *Storage {
	return &Storage{
		client:        client,
		qrBucket:      cfg.QRBucket,
		scanLogBucket: cfg.ScanLogBucket,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// UploadQR stores a rendered QR code PNG and returns its public URL.
func (s *Storage) UploadQR(ctx context.Context, linkID string, png []byte) (string, error) {
	const op = "adapter.storage.s3.Storage.UploadQR"

	key := fmt.Sprintf("qr/%s.png", linkID)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.qrBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to upload qr artifact: %w", op, err)
	}

	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, key), nil
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.qrBucket, key), nil
}

// DownloadQR fetches the stored QR code PNG for a link.
func (s *Storage) DownloadQR(ctx context.Context, linkID string) ([]byte, error) {
	const op = "adapter.storage.s3.Storage.DownloadQR"

	key := fmt.Sprintf("qr/%s.png", linkID)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.qrBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch qr artifact: %w", op, err)
	}
	defer out.Body.Close()

	png, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read qr artifact: %w", op, err)
	}

	return png, nil
}

// AppendScan writes one immutable audit entry for a scan event. The key is
// partitioned by identifier and date, with a unique per-attempt suffix so
// that retried events never overwrite each other.
func (s *Storage) AppendScan(ctx context.Context, event entity.ScanEvent) (string, error) {
	const op = "adapter.storage.s3.Storage.AppendScan"

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal scan event: %w", op, err)
	}

	at := event.ScannedAt.UTC()
	key := fmt.Sprintf("scans/%s/%d/%02d/%02d/%s.json",
		event.LinkID, at.Year(), at.Month(), at.Day(), uuid.New().String())

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.scanLogBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("%s: failed to append scan entry: %w", op, err)
	}

	return key, nil
}
