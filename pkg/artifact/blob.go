package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Blob envelope identity.
const (
	Format  = "tourism-mlops"
	Version = 1
)

// Payload kinds besides the model kinds of package model.
const (
	KindPreprocessor = "preprocessor"
	KindMeta         = "meta"
)

var (
	// ErrMissingArtifact is returned when an expected file does not exist.
	ErrMissingArtifact = errors.New("artifact: missing artifact")
	// ErrFormat is returned for a file that is not a blob of this format.
	ErrFormat = errors.New("artifact: unrecognised blob")
)

// envelope makes every blob self-describing.
type envelope struct {
	Format  string `msgpack:"format"`
	Version int    `msgpack:"version"`
	Kind    string `msgpack:"kind"`
	Payload []byte `msgpack:"payload"`
}

// WriteBlob wraps payload in an envelope, compresses it and writes it to
// path atomically.
func WriteBlob(path, kind string, payload []byte) error {
	b, err := msgpack.Marshal(envelope{Format: Format, Version: Version, Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("artifact: encode %s: %w", kind, err)
	}
	return writeAtomic(path, compress(b))
}

// ReadBlob reads a blob written by WriteBlob.
func ReadBlob(path string) (kind string, payload []byte, err error) {
	cdata, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
	}
	if err != nil {
		return "", nil, fmt.Errorf("artifact: %w", err)
	}
	b, err := decompress(cdata)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	if env.Format != Format {
		return "", nil, fmt.Errorf("%w: %s: format %q", ErrFormat, path, env.Format)
	}
	if env.Version > Version {
		return "", nil, fmt.Errorf("%w: %s: version %d is newer than %d", ErrFormat, path, env.Version, Version)
	}
	return env.Kind, env.Payload, nil
}

func writeAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("artifact: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("artifact: %w", err)
	}
	return nil
}
