package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/pipeline"
)

// File names inside an artifact directory.
const (
	ModelFile        = "model.msgpack.zst"
	PreprocessorFile = "preprocessor.msgpack.zst"
	MetaFile         = "meta.msgpack.zst"
	MetricsFile      = "metrics.json"
)

// BundleFiles are the blobs a model directory must hold to serve.
var BundleFiles = []string{ModelFile, PreprocessorFile, MetaFile}

// Subdirectories of the artifacts root.
const (
	DataDir       = "data"
	PreprocessDir = "preprocess"
)

// Partition file names under DataDir.
const (
	XTrainFile = "X_train.csv"
	XTestFile  = "X_test.csv"
	YTrainFile = "y_train.csv"
	YTestFile  = "y_test.csv"
)

// Bundle is everything the inference surface needs.
type Bundle struct {
	Preprocessor *pipeline.Preprocessor
	Model        model.Classifier
	Meta         pipeline.Meta
}

// NewBundle stamps meta with the winning model, its metrics and a fresh
// bundle id.
func NewBundle(p *pipeline.Preprocessor, clf model.Classifier, meta pipeline.Meta, name string, metrics model.Metrics) *Bundle {
	meta.Model = name
	meta.Metrics = metrics
	meta.BundleID = uuid.NewString()
	meta.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return &Bundle{Preprocessor: p, Model: clf, Meta: meta}
}

// SavePreprocess writes the fitted preprocessor and its schema.
func SavePreprocess(dir string, p *pipeline.Preprocessor, meta pipeline.Meta) error {
	if !p.Fitted {
		return pipeline.ErrNotFitted
	}
	if err := writeMsgpack(filepath.Join(dir, PreprocessorFile), KindPreprocessor, p); err != nil {
		return err
	}
	return writeMsgpack(filepath.Join(dir, MetaFile), KindMeta, meta)
}

// LoadPreprocess reads what SavePreprocess wrote.
func LoadPreprocess(dir string) (*pipeline.Preprocessor, pipeline.Meta, error) {
	p, err := LoadPreprocessor(filepath.Join(dir, PreprocessorFile))
	if err != nil {
		return nil, pipeline.Meta{}, err
	}
	meta, err := LoadMeta(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, pipeline.Meta{}, err
	}
	return p, meta, nil
}

// LoadPreprocessor reads a single preprocessor blob.
func LoadPreprocessor(path string) (*pipeline.Preprocessor, error) {
	p := &pipeline.Preprocessor{}
	if err := readMsgpack(path, KindPreprocessor, p); err != nil {
		return nil, err
	}
	p.Reindex()
	return p, nil
}

// LoadMeta reads a single meta blob.
func LoadMeta(path string) (pipeline.Meta, error) {
	var meta pipeline.Meta
	if err := readMsgpack(path, KindMeta, &meta); err != nil {
		return pipeline.Meta{}, err
	}
	return meta, nil
}

// SaveModelBundle writes the three blobs and metrics.json into dir.
func SaveModelBundle(dir string, b *Bundle) error {
	kind, payload, err := model.Marshal(b.Model)
	if err != nil {
		return err
	}
	if err := WriteBlob(filepath.Join(dir, ModelFile), kind, payload); err != nil {
		return err
	}
	if err := writeMsgpack(filepath.Join(dir, PreprocessorFile), KindPreprocessor, b.Preprocessor); err != nil {
		return err
	}
	if err := writeMsgpack(filepath.Join(dir, MetaFile), KindMeta, b.Meta); err != nil {
		return err
	}
	if err := WriteSummary(filepath.Join(dir, MetricsFile), b.Meta.Model, b.Meta.Metrics); err != nil {
		return err
	}
	log.Info().Str("dir", dir).Str("model", b.Meta.Model).Str("bundle_id", b.Meta.BundleID).Msg("Saved model bundle")
	return nil
}

// LoadBundle reads the three blobs from dir. Every missing blob is named in
// the returned error, which wraps ErrMissingArtifact.
func LoadBundle(dir string) (*Bundle, error) {
	if missing := MissingFiles(dir); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v in %s", ErrMissingArtifact, missing, dir)
	}
	kind, payload, err := ReadBlob(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}
	clf, err := model.Unmarshal(kind, payload)
	if err != nil {
		return nil, err
	}
	p, err := LoadPreprocessor(filepath.Join(dir, PreprocessorFile))
	if err != nil {
		return nil, err
	}
	meta, err := LoadMeta(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	return &Bundle{Preprocessor: p, Model: clf, Meta: meta}, nil
}

// MissingFiles lists the bundle blobs absent from dir.
func MissingFiles(dir string) []string {
	var missing []string
	for _, f := range BundleFiles {
		if _, err := os.Stat(filepath.Join(dir, f)); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, f)
		}
	}
	return missing
}

func writeMsgpack(path, kind string, v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", kind, err)
	}
	return WriteBlob(path, kind, payload)
}

func readMsgpack(path, kind string, v any) error {
	got, payload, err := ReadBlob(path)
	if err != nil {
		return err
	}
	if got != kind {
		return fmt.Errorf("%w: %s holds %q, want %q", ErrFormat, path, got, kind)
	}
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("artifact: decode %s: %w", path, err)
	}
	return nil
}
