package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

// DefaultURL is the public Hugging Face Hub.
const DefaultURL = "https://huggingface.co"

// RepoType is the kind of repository to create or write to.
type RepoType string

const (
	TypeModel   RepoType = "model"
	TypeDataset RepoType = "dataset"
	TypeSpace   RepoType = "space"
)

// Kind is the answer to "what, if anything, lives at this id".
type Kind int

const (
	KindNotFound Kind = iota
	KindSpace
	KindDataset
	KindModel
)

func (k Kind) String() string {
	switch k {
	case KindSpace:
		return "space"
	case KindDataset:
		return "dataset"
	case KindModel:
		return "model"
	}
	return "not_found"
}

// Kind maps a repository type to the kind a query reports for it.
func (t RepoType) Kind() Kind {
	switch t {
	case TypeSpace:
		return KindSpace
	case TypeDataset:
		return KindDataset
	case TypeModel:
		return KindModel
	}
	return KindNotFound
}

// ErrKindConflict is returned when an id already holds a repository of
// another kind.
var ErrKindConflict = errors.New("hub: repository exists with a different kind")

// Error is a failed remote call, carrying the remote status and text.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("hub: %s: %d %s", e.Op, e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the remote.
func IsNotFound(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Status == 404
}

// CreateOptions tune repository creation.
type CreateOptions struct {
	Private  bool
	SpaceSDK string
}

// Repository is a remote store of model, dataset and space repositories.
type Repository interface {
	// Kind reports what lives at id with a single lookup.
	Kind(ctx context.Context, id string) (Kind, error)
	// CreateRepo creates id, succeeding when it already exists.
	CreateRepo(ctx context.Context, id string, t RepoType, opts CreateOptions) error
	UploadFile(ctx context.Context, id string, t RepoType, localPath, pathInRepo, message string) error
	// UploadFolder uploads every file under folder, keeping relative paths.
	UploadFolder(ctx context.Context, id string, t RepoType, folder, message string) error
	// Download fetches pathInRepo to the local file dest.
	Download(ctx context.Context, id string, t RepoType, pathInRepo, dest string) error
	Close() error
}

// Open picks a backend from cfg.HubURL:
//
//	https://huggingface.co      Hub REST API (default)
//	s3://bucket/prefix          S3 or an S3-compatible store
//	gs://bucket/prefix          Google Cloud Storage
//	file:///dir                 local directory
func Open(ctx context.Context, cfg *config.Configs) (Repository, error) {
	url := cfg.HubURL
	if url == "" {
		url = DefaultURL
	}
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return NewHFClient(url, cfg.HFToken), nil
	case strings.HasPrefix(url, "s3://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(url, "s3://"))
		b, err := newS3Bucket(ctx, S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
		}, bucket)
		if err != nil {
			return nil, err
		}
		return newObjectRepo(b, prefix), nil
	case strings.HasPrefix(url, "gs://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(url, "gs://"))
		b, err := newGCSBucket(ctx, cfg.GCSCredentialsFile, bucket)
		if err != nil {
			return nil, err
		}
		return newObjectRepo(b, prefix), nil
	case strings.HasPrefix(url, "file:"):
		dir := strings.TrimPrefix(strings.TrimPrefix(url, "file:"), "//")
		return NewLocalRepository(dir), nil
	}
	return nil, fmt.Errorf("hub: unsupported hub url %q", url)
}

func splitBucket(s string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(s, "/")
	return bucket, strings.Trim(prefix, "/")
}
