package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
)

// MarkerFile sits at the root of every object-store repository and records
// its type, so a kind query is a single read.
const MarkerFile = ".repo.json"

var errNoObject = errors.New("hub: object does not exist")

// bucket is the minimal object store an objectRepo needs.
type bucket interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, b []byte) error
	backend() string
	close() error
}

type marker struct {
	Type    RepoType  `json:"type"`
	Private bool      `json:"private"`
	SDK     string    `json:"sdk,omitempty"`
	Created time.Time `json:"created"`
}

// objectRepo keeps repositories as key prefixes: <prefix>/<id>/<path>.
type objectRepo struct {
	b      bucket
	prefix string
}

func newObjectRepo(b bucket, prefix string) *objectRepo {
	return &objectRepo{b: b, prefix: prefix}
}

func (r *objectRepo) key(id, p string) string {
	return path.Join(r.prefix, id, p)
}

func (r *objectRepo) marker(ctx context.Context, id string) (*marker, error) {
	b, err := r.get(ctx, "kind", r.key(id, MarkerFile))
	if errors.Is(err, errNoObject) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m marker
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("hub: %s: corrupt %s: %w", id, MarkerFile, err)
	}
	return &m, nil
}

func (r *objectRepo) Kind(ctx context.Context, id string) (Kind, error) {
	m, err := r.marker(ctx, id)
	if err != nil || m == nil {
		return KindNotFound, err
	}
	return m.Type.Kind(), nil
}

func (r *objectRepo) CreateRepo(ctx context.Context, id string, t RepoType, opts CreateOptions) error {
	m, err := r.marker(ctx, id)
	if err != nil {
		return err
	}
	if m != nil {
		if m.Type != t {
			return fmt.Errorf("%w: %s is a %s", ErrKindConflict, id, m.Type)
		}
		log.Debug().Str("repo", id).Msg("Repository already exists")
		return nil
	}
	b, err := json.Marshal(marker{Type: t, Private: opts.Private, SDK: opts.SpaceSDK, Created: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.put(ctx, "create", r.key(id, MarkerFile), b); err != nil {
		return err
	}
	log.Info().Str("repo", id).Str("type", string(t)).Str("backend", r.b.backend()).Msg("Created repository")
	return nil
}

// requireRepo returns a 404 Error unless id exists with type t.
func (r *objectRepo) requireRepo(ctx context.Context, op, id string, t RepoType) error {
	m, err := r.marker(ctx, id)
	if err != nil {
		return err
	}
	if m == nil || m.Type != t {
		return &Error{Op: op + " " + id, Status: 404, Message: fmt.Sprintf("%s repository not found", t)}
	}
	return nil
}

func (r *objectRepo) UploadFile(ctx context.Context, id string, t RepoType, localPath, pathInRepo, message string) error {
	if err := r.requireRepo(ctx, "upload", id, t); err != nil {
		return err
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	if err := r.put(ctx, "upload", r.key(id, pathInRepo), b); err != nil {
		return err
	}
	log.Info().Str("repo", id).Str("path", pathInRepo).Str("message", message).Msg("Uploaded file")
	return nil
}

func (r *objectRepo) UploadFolder(ctx context.Context, id string, t RepoType, folder, message string) error {
	if err := r.requireRepo(ctx, "upload", id, t); err != nil {
		return err
	}
	files, err := readFolder(folder)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := r.put(ctx, "upload", r.key(id, f.Path), f.Content); err != nil {
			return err
		}
	}
	log.Info().Str("repo", id).Int("files", len(files)).Str("message", message).Msg("Uploaded folder")
	return nil
}

func (r *objectRepo) Download(ctx context.Context, id string, t RepoType, pathInRepo, dest string) error {
	if err := r.requireRepo(ctx, "download", id, t); err != nil {
		return err
	}
	b, err := r.get(ctx, "download", r.key(id, pathInRepo))
	if errors.Is(err, errNoObject) {
		return &Error{Op: "download " + id + "/" + pathInRepo, Status: 404, Message: "entry not found"}
	}
	if err != nil {
		return err
	}
	return writeFileFrom(dest, bytes.NewReader(b))
}

func (r *objectRepo) Close() error {
	return r.b.close()
}

func (r *objectRepo) get(ctx context.Context, op, key string) ([]byte, error) {
	start := time.Now()
	b, err := r.b.get(ctx, key)
	r.record(op, start, err)
	return b, err
}

func (r *objectRepo) put(ctx context.Context, op, key string, b []byte) error {
	start := time.Now()
	err := r.b.put(ctx, key, b)
	r.record(op, start, err)
	return err
}

func (r *objectRepo) record(op string, start time.Time, err error) {
	if errors.Is(err, errNoObject) {
		err = nil
	}
	tags := metric.BuildTag(
		metric.NewTag(metric.TagBackend, r.b.backend()),
		metric.NewTag(metric.TagOperation, op),
		metric.StatusTag(err),
	)
	metric.Incr(metric.HubRequestCount, tags)
	metric.TimingWithStart(metric.HubRequestLatency, start, tags)
}
