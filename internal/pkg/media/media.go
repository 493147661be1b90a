// Package media uploads audio files and artwork to the S3-compatible media host.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned by Upload when no bucket is configured.
var ErrNotConfigured = errors.New("media host is not configured")

// Options mirrors the media section of the runtime config.
type Options struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	CustomDomain    string
	PathStyle       bool
}

// Uploader stores objects on the media host and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, body io.Reader, contentType string) (string, error)
}

type s3Uploader struct {
	client       *s3.Client
	bucket       string
	region       string
	endpoint     string
	customDomain string
	pathStyle    bool
}

type disabledUploader struct{}

func (disabledUploader) Upload(context.Context, string, string, io.Reader, string) (string, error) {
	return "", ErrNotConfigured
}

// New builds an Uploader. Incomplete options yield an uploader that always fails with ErrNotConfigured.
func New(opts Options) (Uploader, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" {
		return disabledUploader{}, nil
	}
	if region == "" || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("incomplete media config: region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSuffix(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	pathStyle := opts.PathStyle || endpoint != ""

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &s3Uploader{
		client:       client,
		bucket:       bucket,
		region:       region,
		endpoint:     endpoint,
		customDomain: strings.TrimRight(strings.TrimSpace(opts.CustomDomain), "/"),
		pathStyle:    pathStyle,
	}, nil
}

func (u *s3Uploader) Upload(ctx context.Context, folder, filename string, body io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := ObjectKey(folder, filename, time.Now())

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return u.publicURL(key), nil
}

func (u *s3Uploader) publicURL(key string) string {
	switch {
	case u.customDomain != "":
		return u.customDomain + "/" + key
	case u.endpoint != "" && u.pathStyle:
		return u.endpoint + "/" + u.bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	}
}

// ObjectKey builds "<folder>/<yyyy>/<mm>/<uuid><ext>" for an uploaded file.
func ObjectKey(folder, filename string, now time.Time) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "misc"
	}
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%s/%s%s", folder, now.UTC().Format("2006/01"), uuid.NewString(), ext)
}
