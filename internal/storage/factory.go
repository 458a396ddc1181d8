package storage

import (
	"context"
	"fmt"

	"birthday-memory-app/config"
)

// NewBlobStore builds the backend selected by BLOB_BACKEND.
func NewBlobStore(ctx context.Context, blob config.BlobConfig, s3 config.S3Config) (BlobStore, error) {
	switch blob.Backend {
	case "", config.BlobBackendFS:
		return NewFSStore(blob.Root)
	case config.BlobBackendS3:
		return NewS3Store(ctx, S3Config{
			Region:    s3.Region,
			Bucket:    s3.Bucket,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Endpoint:  s3.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", blob.Backend)
	}
}
