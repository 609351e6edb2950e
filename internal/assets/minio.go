package assets

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/anatolykoptev/go-phototag/internal/config"
)

// MinioStore keeps image files in a MinIO (or S3-compatible) bucket.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinioStore connects to MinIO and creates the bucket if it does not exist.
func NewMinioStore(ctx context.Context, cfg config.MinIOConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		slog.Info("phototag: created bucket", "bucket", cfg.Bucket)
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	name, err := safeKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}
	return s.publicURL + "/" + url.PathEscape(name), nil
}

func (s *MinioStore) Delete(ctx context.Context, src string) error {
	name, err := objectName(src)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// LocalPath downloads the object into a temporary file.
func (s *MinioStore) LocalPath(ctx context.Context, src string) (string, func(), error) {
	name, err := objectName(src)
	if err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp("", "phototag-*")
	if err != nil {
		return "", nil, err
	}
	release := func() { os.RemoveAll(dir) }

	p := filepath.Join(dir, name)
	if err := s.client.FGetObject(ctx, s.bucket, name, p, minio.GetObjectOptions{}); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to get object: %w", err)
	}
	return p, release, nil
}

func objectName(src string) (string, error) {
	name := src
	if i := strings.LastIndexByte(src, '/'); i >= 0 {
		name = src[i+1:]
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	return safeKey(name)
}
