package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
	MaxBytes        int64
}

// R2Store uploads photos to a Cloudflare R2 bucket through the S3 API.
type R2Store struct {
	client   *s3.Client
	bucket   string
	cdnBase  string
	maxBytes int64
}

func NewR2Store(ctx context.Context, opts R2Options) (*R2Store, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	cdnBase := opts.CDNBaseURL
	if cdnBase == "" {
		cdnBase = endpoint + "/" + opts.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Store{
		client:   client,
		bucket:   opts.Bucket,
		cdnBase:  strings.TrimRight(cdnBase, "/"),
		maxBytes: opts.MaxBytes,
	}, nil
}

// Save uploads a multipart file to R2 and returns the public CDN URL.
func (s *R2Store) Save(ctx context.Context, fileHeader *multipart.FileHeader, key string) (string, error) {
	contentType, err := CheckPhoto(fileHeader, s.maxBytes)
	if err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.cdnBase, key), nil
}
