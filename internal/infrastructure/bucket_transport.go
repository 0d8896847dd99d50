package infrastructure

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/yourusername/archivist-go/internal/domain"
)

// BucketTransport serves object bodies from a bucket mirror laid out as
// {Kind}/{ObjectID}, e.g. "ContentVersion/068..." or "Attachment/00P...".
// A mirror has no API quota, so it reports zero usage.
type BucketTransport struct {
	bucket *blob.Bucket
}

// OpenBucketTransport opens a bucket by URL (file:///path, mem://)
func OpenBucketTransport(ctx context.Context, bucketURL string) (*BucketTransport, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBucketTransport(bucket), nil
}

func NewBucketTransport(bucket *blob.Bucket) *BucketTransport {
	return &BucketTransport{bucket: bucket}
}

// ObjectKey returns the bucket key of an object
func ObjectKey(obj domain.DownloadableObject) string {
	return string(obj.Kind()) + "/" + obj.ObjectID()
}

func (t *BucketTransport) FetchObject(ctx context.Context, obj domain.DownloadableObject) (io.ReadCloser, error) {
	r, err := t.bucket.NewReader(ctx, ObjectKey(obj), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, &domain.FetchError{ObjectID: obj.ObjectID(), Err: ErrNotFound}
		}
		return nil, &domain.FetchError{ObjectID: obj.ObjectID(), Err: err}
	}
	return r, nil
}

func (t *BucketTransport) GetUsage(ctx context.Context, refresh bool) (domain.Usage, error) {
	return domain.Usage{}, nil
}

func (t *BucketTransport) Close() error {
	return t.bucket.Close()
}
