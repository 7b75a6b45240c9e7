// Package storage publishes run artifacts to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// S3ConfigFromEnv reads MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_USE_SSL.
func S3ConfigFromEnv() (S3Config, error) {
	cfg := S3Config{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Region:    os.Getenv("MINIO_REGION"),
	}
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return S3Config{}, errors.New("missing one or more required environment variables: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY")
	}
	return cfg, nil
}

// S3Publisher uploads local files into a bucket.
type S3Publisher struct {
	client *minio.Client
	region string
}

// NewS3Publisher creates a publisher. No network call is made until Publish.
func NewS3Publisher(cfg S3Config) (*S3Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}
	return &S3Publisher{client: client, region: cfg.Region}, nil
}

// Publish uploads every file under prefix/ in bucket, creating the bucket if
// it does not exist yet. It returns the object keys in upload order.
func (p *S3Publisher) Publish(ctx context.Context, bucket, prefix string, files []string) ([]string, error) {
	if err := p.ensureBucket(ctx, bucket); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, file := range files {
		key := ObjectKey(prefix, file)
		_, err := p.client.FPutObject(ctx, bucket, key, file, minio.PutObjectOptions{
			ContentType: contentType(file),
		})
		if err != nil {
			return keys, fmt.Errorf("upload %s to %s/%s: %w", file, bucket, key, err)
		}
		log.Info().Str("bucket", bucket).Str("key", key).Msg("Uploaded")
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := p.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: p.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// ObjectKey places a local file's base name under prefix.
func ObjectKey(prefix, file string) string {
	prefix = strings.Trim(prefix, "/")
	name := filepath.Base(file)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return "application/json"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".txt":
		return "text/plain; charset=utf-8"
	}
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}
