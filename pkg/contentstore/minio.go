package contentstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinioBackend stores blobs as objects in a single MinIO bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

func NewMinioBackend(client *minio.Client, bucket string) *MinioBackend {
	return &MinioBackend{client: client, bucket: bucket}
}

func (b *MinioBackend) Put(ctx context.Context, blobID string, r io.Reader, meta Metadata) (int64, error) {
	opts := minio.PutObjectOptions{UserMetadata: meta}
	if ct, ok := meta["content-type"]; ok {
		opts.ContentType = ct
	}
	// Size -1 streams the object without buffering it in memory.
	info, err := b.client.PutObject(ctx, b.bucket, blobID, r, -1, opts)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (b *MinioBackend) Open(ctx context.Context, blobID string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, blobID, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat forces the existence check.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (b *MinioBackend) Remove(ctx context.Context, blobID string) error {
	err := b.client.RemoveObject(ctx, b.bucket, blobID, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
