package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"roomledger/internal/app/policies"
)

const (
	region        = "us-east-1"
	defaultExpiry = 24 * time.Hour
)

type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	LinkExpiry     time.Duration
}

// Publisher stores rate sheets in a private S3-compatible bucket and hands out presigned links.
type Publisher struct {
	bucket  string
	expiry  time.Duration
	client  *minio.Client
	signer  *minio.Client
	logger  *slog.Logger
	initOne sync.Once
	initErr error
}

func NewPublisher(opts Options, logger *slog.Logger) (*Publisher, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	creds := credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), "")

	client, err := minio.New(hostOf(endpoint), &minio.Options{Creds: creds, Secure: opts.UseSSL, Region: region})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	signer := client
	if public := strings.TrimSpace(opts.PublicEndpoint); public != "" {
		secure := opts.UseSSL
		if u, err := url.Parse(public); err == nil && u.Scheme != "" {
			secure = u.Scheme == "https"
		}
		// presigning is offline when the region is fixed
		signer, err = minio.New(hostOf(public), &minio.Options{Creds: creds, Secure: secure, Region: region})
		if err != nil {
			return nil, fmt.Errorf("s3: create signing client: %w", err)
		}
	}
	expiry := opts.LinkExpiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bucket: bucket, expiry: expiry, client: client, signer: signer, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, sheet policies.RateSheet) (string, error) {
	if sheet.Body == nil {
		return "", errors.New("s3: body is required")
	}
	key, err := ObjectKey(sheet.Key)
	if err != nil {
		return "", err
	}
	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}
	contentType := sheet.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := sheet.Size
	if size <= 0 {
		size = -1
	}
	info, err := p.client.PutObject(ctx, p.bucket, key, sheet.Body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	link, err := p.signer.PresignedGetObject(ctx, p.bucket, key, p.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	p.logger.Info("rate sheet uploaded", "bucket", p.bucket, "key", key, "bytes", info.Size)
	return link.String(), nil
}

// Ping checks the bucket is reachable.
func (p *Publisher) Ping(ctx context.Context) error {
	_, err := p.client.BucketExists(ctx, p.bucket)
	return err
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	p.initOne.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.initErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			p.initErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return p.initErr
}

// ObjectKey trims slashes and rejects empty or parent-relative keys.
func ObjectKey(raw string) (string, error) {
	key := strings.Trim(strings.TrimSpace(raw), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", fmt.Errorf("s3: invalid object key %q", raw)
		}
	}
	return key, nil
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.RateSheetPublisher = (*Publisher)(nil)
