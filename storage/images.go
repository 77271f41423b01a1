// Package storage uploads meal images to the S3-compatible bucket of the
// backend and builds their public URLs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"meal-admin/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/lucsky/cuid"
)

// MaxImageSize bounds a single upload.
const MaxImageSize = 5 << 20

var (
	ErrTooLarge = errors.New("image exceeds size limit")
	ErrNotImage = errors.New("file is not an image")
)

type putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type ImageStore struct {
	client        putter
	bucket        string
	publicBaseURL string
}

// NewImageStore builds an S3 client for cfg. A custom endpoint switches to
// path-style addressing, which S3-compatible backends expect.
func NewImageStore(ctx context.Context, cfg config.StorageConfig) (*ImageStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = cfg.Endpoint
	}
	return newImageStore(client, cfg.Bucket, base), nil
}

func newImageStore(client putter, bucket, publicBaseURL string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// NewObjectKey returns a collision-free key that keeps the extension of filename.
func NewObjectKey(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, `\`, "/"))))
	return cuid.New() + ext
}

// PublicURL returns the address the dashboard and apps load the object from.
func (s *ImageStore) PublicURL(key string) string {
	return s.publicBaseURL + "/" + s.bucket + "/" + key
}

// Upload stores an image under a new key and returns the key and its public URL.
// An empty contentType is sniffed from the data.
func (s *ImageStore) Upload(ctx context.Context, filename, contentType string, body io.Reader) (key, url string, err error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", "", ErrTooLarge
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}

	key = NewObjectKey(filename)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", "", fmt.Errorf("unable to upload image: %w", err)
	}
	return key, s.PublicURL(key), nil
}
