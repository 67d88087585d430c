package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultLinkExpiry is how long a published report link stays valid.
const DefaultLinkExpiry = 24 * time.Hour

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectPresigner signs download links for published reports.
type ObjectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedLink, error)
}

// PresignedLink is a signed download URL.
type PresignedLink struct {
	URL string
}

// PublisherConfig holds configuration for publishing reports to an
// S3-compatible bucket (AWS S3 or Cloudflare R2).
type PublisherConfig struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string        // Default: "auto"
	LinkExpiry      time.Duration // Default: DefaultLinkExpiry
}

// Published describes an uploaded report.
type Published struct {
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Publisher uploads leaderboard workbooks.
type Publisher struct {
	putter     ObjectPutter
	presigner  ObjectPresigner
	bucketName string
	linkExpiry time.Duration
	timeNow    func() time.Time
}

// NewPublisher creates a Publisher backed by an S3 client.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	client := s3.New(opts)

	return newPublisher(client, &s3Presigner{client: s3.NewPresignClient(client)}, cfg.BucketName, cfg.LinkExpiry), nil
}

func newPublisher(putter ObjectPutter, presigner ObjectPresigner, bucket string, expiry time.Duration) *Publisher {
	if expiry <= 0 {
		expiry = DefaultLinkExpiry
	}
	return &Publisher{
		putter:     putter,
		presigner:  presigner,
		bucketName: bucket,
		linkExpiry: expiry,
		timeNow:    time.Now,
	}
}

// ObjectKey returns a unique key for a report generated at t.
// Pattern: leaderboards/YYYY-MM-DD/uuid.xlsx
func ObjectKey(t time.Time) string {
	return fmt.Sprintf("leaderboards/%s/%s.xlsx", t.UTC().Format("2006-01-02"), uuid.New().String())
}

// Publish uploads a workbook and returns a signed download link.
func (p *Publisher) Publish(ctx context.Context, workbook []byte) (*Published, error) {
	now := p.timeNow()
	key := ObjectKey(now)

	_, err := p.putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(workbook),
		ContentType:   aws.String(ContentTypeXLSX),
		ContentLength: aws.Int64(int64(len(workbook))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	link, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = p.linkExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign report link: %w", err)
	}

	return &Published{
		Bucket:    p.bucketName,
		Key:       key,
		URL:       link.URL,
		ExpiresAt: now.Add(p.linkExpiry),
	}, nil
}

type s3Presigner struct {
	client *s3.PresignClient
}

func (s *s3Presigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*PresignedLink, error) {
	req, err := s.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return nil, err
	}
	return &PresignedLink{URL: req.URL}, nil
}
