package snapshot

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCS archives snapshots to a Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ Provider = (*GCS)(nil)

// NewGCS builds a provider over the named bucket.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads the snapshot and returns its gs:// URI.
func (g *GCS) Put(ctx context.Context, pageURL, html string) (string, error) {
	object := ObjectPath(g.prefix, pageURL, html)
	w := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/html; charset=utf-8"
	if _, err := w.Write([]byte(html)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", object, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, object), nil
}
