// Package storage provides audio blob storage on an S3-compatible object store.
package storage

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	zlog "github.com/rs/zerolog/log"
)

// Config represents object storage configuration.
type Config struct {
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	PublicBaseURL string // Base of public object URLs; derived from Endpoint and Bucket when empty
}

// Storage stores objects in a single bucket.
type Storage struct {
	client     *minio.Client
	bucket     string
	region     string
	publicBase string
}

// New creates a storage client. It does not contact the server.
func New(cfg Config) (*Storage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create storage client")
	}

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBase = scheme + "://" + cfg.Endpoint + "/" + cfg.Bucket
	}

	return &Storage{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		publicBase: publicBase,
	}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "failed to check bucket: %s", s.bucket)
	}
	if exists {
		zlog.Info().Msgf("storage: bucket exists: bucket=%s", s.bucket)
		return nil
	}

	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrapf(err, "failed to create bucket: %s", s.bucket)
	}
	zlog.Info().Msgf("storage: bucket created: bucket=%s", s.bucket)
	return nil
}

// Put uploads an object.
func (s *Storage) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	info, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to upload object: %s", path)
	}
	zlog.Info().Msgf("storage: object uploaded: path=%s size=%d", path, info.Size)
	return nil
}

// Remove deletes an object. Removing a missing object is not an error.
func (s *Storage) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrapf(err, "failed to remove object: %s", path)
	}
	zlog.Info().Msgf("storage: object removed: path=%s", path)
	return nil
}

// PublicURL returns the public URL of an object.
func (s *Storage) PublicURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicBase + "/" + strings.Join(segments, "/")
}

// PathFromURL returns the object path of a public URL, or false if the URL
// does not point into this bucket.
func (s *Storage) PathFromURL(publicURL string) (string, bool) {
	prefix := s.publicBase + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	path, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || path == "" {
		return "", false
	}
	return path, true
}
