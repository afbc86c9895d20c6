package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"swapshelf/internal/config"
)

// Reference locates one stored object.
type Reference struct {
	Bucket string
	Key    string
}

type ObjectStore struct {
	client *minio.Client
	cfg    config.StorageConfig
}

func NewObjectStore(cfg config.StorageConfig) (*ObjectStore, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL

	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	return &ObjectStore{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *ObjectStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("bucket exists %s: %w", s.cfg.Bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
	}
	return nil
}

// Put writes data under key. The object starts private.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) (Reference, error) {
	ref := Reference{Bucket: s.cfg.Bucket, Key: key}
	_, err := s.client.PutObject(ctx, ref.Bucket, ref.Key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return Reference{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return ref, nil
}

// MakePublic grants anonymous read on the object by copying it onto itself
// with a public-read canned ACL.
func (s *ObjectStore) MakePublic(ctx context.Context, ref Reference) error {
	info, err := s.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		return fmt.Errorf("stat object %s: %w", ref.Key, err)
	}

	meta := map[string]string{"x-amz-acl": "public-read"}
	if info.ContentType != "" {
		meta["Content-Type"] = info.ContentType
	}
	_, err = s.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:          ref.Bucket,
			Object:          ref.Key,
			ReplaceMetadata: true,
			UserMetadata:    meta,
		},
		minio.CopySrcOptions{Bucket: ref.Bucket, Object: ref.Key},
	)
	if err != nil {
		return fmt.Errorf("set public acl %s: %w", ref.Key, err)
	}
	return nil
}

func (s *ObjectStore) Remove(ctx context.Context, ref Reference) error {
	if err := s.client.RemoveObject(ctx, ref.Bucket, ref.Key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", ref.Key, err)
	}
	return nil
}

// PublicURL is the stable anonymous URL of ref.
func (s *ObjectStore) PublicURL(ref Reference) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = s.cfg.Endpoint
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return fmt.Sprintf("%s/%s", base, path.Join(ref.Bucket, ref.Key))
}

// Ping checks that the bucket is reachable.
func (s *ObjectStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	return err
}

// ContentTypeFor derives an upload content type from a file extension.
func ContentTypeFor(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
