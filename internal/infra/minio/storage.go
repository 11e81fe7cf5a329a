package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type Storage struct {
	client         *miniogo.Client
	uploadBucket   string
	keyframeBucket string
	archiveBucket  string
	urlExpiry      time.Duration
}

type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Region         string
	UploadBucket   string
	KeyframeBucket string
	ArchiveBucket  string
	URLExpiry      time.Duration
}

func NewStorage(cfg StorageConfig) (*Storage, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Storage{
		client:         client,
		uploadBucket:   cfg.UploadBucket,
		keyframeBucket: cfg.KeyframeBucket,
		archiveBucket:  cfg.ArchiveBucket,
		urlExpiry:      cfg.URLExpiry,
	}, nil
}

func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.uploadBucket, s.keyframeBucket, s.archiveBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// Ping reports whether the upload bucket is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.uploadBucket)
	return err
}

func (s *Storage) DownloadObject(ctx context.Context, bucket, key, destPath string) error {
	if err := s.client.FGetObject(ctx, bucket, key, destPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return nil
}

// UploadVideo stores an uploaded video and returns its s3:// reference.
func (s *Storage) UploadVideo(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.uploadBucket, key, reader, size, miniogo.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.uploadBucket, key), nil
}

func (s *Storage) UploadArchive(ctx context.Context, key string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.archiveBucket, key, reader, size, miniogo.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}
	return nil
}

// StoreKeyframe writes <guide_id>/step_<order>.<ext> and returns a presigned GET URL.
func (s *Storage) StoreKeyframe(ctx context.Context, guideID, order int, frame *entity.EncodedFrame) (string, error) {
	key := KeyframeKey(guideID, order, frame)
	_, err := s.client.PutObject(ctx, s.keyframeBucket, key, bytes.NewReader(frame.Data), int64(len(frame.Data)), miniogo.PutObjectOptions{
		ContentType: frame.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload keyframe: %w", err)
	}

	return s.presignKeyframe(ctx, key)
}

// RefreshKeyframeURL re-signs a URL previously issued by StoreKeyframe so it is
// valid for another urlExpiry. URLs that do not point at the keyframe bucket
// on this endpoint, such as inline data URIs, are returned unchanged.
func (s *Storage) RefreshKeyframeURL(ctx context.Context, imageURL string) (string, error) {
	key, ok := s.keyframeKeyFromURL(imageURL)
	if !ok {
		return imageURL, nil
	}
	return s.presignKeyframe(ctx, key)
}

func (s *Storage) presignKeyframe(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.keyframeBucket, key, s.urlExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign keyframe: %w", err)
	}
	return u.String(), nil
}

// keyframeKeyFromURL extracts the object key from a path-style presigned URL.
func (s *Storage) keyframeKeyFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != s.client.EndpointURL().Host {
		return "", false
	}
	key, ok := strings.CutPrefix(u.Path, "/"+s.keyframeBucket+"/")
	return key, ok && key != ""
}

func KeyframeKey(guideID, order int, frame *entity.EncodedFrame) string {
	return fmt.Sprintf("%d/step_%d.%s", guideID, order, frame.Ext())
}
