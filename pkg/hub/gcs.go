package hub

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsBucket struct {
	client   *storage.Client
	bucketID string
	bucket   *storage.BucketHandle
}

// newGCSBucket reads credentials from credentialsFile, or from the
// application default credentials when it is empty.
func newGCSBucket(ctx context.Context, credentialsFile, bucketID string) (*gcsBucket, error) {
	if bucketID == "" {
		return nil, fmt.Errorf("bucket ID cannot be empty")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	// Validate bucket exists and is accessible
	bucket := client.Bucket(bucketID)
	if _, err := bucket.Attrs(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketID, err)
	}
	return &gcsBucket{client: client, bucketID: bucketID, bucket: bucket}, nil
}

func (g *gcsBucket) get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, errNoObject
	}
	if err != nil {
		return nil, fmt.Errorf("hub: get gs://%s/%s: %w", g.bucketID, key, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("hub: read gs://%s/%s: %w", g.bucketID, key, err)
	}
	return data, nil
}

func (g *gcsBucket) put(ctx context.Context, key string, data []byte) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("hub: put gs://%s/%s: %w", g.bucketID, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("hub: put gs://%s/%s: %w", g.bucketID, key, err)
	}
	return nil
}

func (g *gcsBucket) backend() string {
	return "gcs"
}

func (g *gcsBucket) close() error {
	return g.client.Close()
}
