package hub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// localBucket stores objects as files under a root directory.
type localBucket struct {
	root string
}

// NewLocalRepository keeps repositories under dir. It backs file:// hub
// URLs and offline runs.
func NewLocalRepository(dir string) Repository {
	return newObjectRepo(&localBucket{root: dir}, "")
}

func (b *localBucket) get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoObject
	}
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}
	return data, nil
}

func (b *localBucket) put(_ context.Context, key string, data []byte) error {
	return writeFileFrom(filepath.Join(b.root, filepath.FromSlash(key)), bytes.NewReader(data))
}

func (b *localBucket) backend() string {
	return "local"
}

func (b *localBucket) close() error {
	return nil
}
