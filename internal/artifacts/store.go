package artifacts

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// ErrArchiveNotFound reports a missing archive key.
var ErrArchiveNotFound = fmt.Errorf("archive not found")

// Store persists finished archives in a gocloud bucket. Local installs use a
// file:// URL; the same code path serves S3, GCS, and Azure deployments.
type Store struct {
	bucket *blob.Bucket
}

// OpenStore opens the bucket named by the URL.
func OpenStore(ctx context.Context, bucketURL string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open archive bucket: %w", err)
	}
	return &Store{bucket: bucket}, nil
}

// Put writes an archive and returns its key.
func (s *Store) Put(ctx context.Context, runID string, data []byte) (string, error) {
	key := keyFor(runID)
	opts := &blob.WriterOptions{ContentType: "application/zip"}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", fmt.Errorf("store archive %s: %w", key, err)
	}
	return key, nil
}

// Get reads a previously stored archive.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("read archive %s: %w", key, err)
	}
	return data, nil
}

// Delete removes an archive. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("delete archive %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

func keyFor(runID string) string {
	return "runs/" + runID + ".zip"
}
