package serve

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
)

// Fetch downloads the bundle blobs of modelRepo into cacheDir/modelRepo and
// returns that directory. Blobs the repository does not hold are reported in
// missing; any other failure is an error.
func Fetch(ctx context.Context, repo hub.Repository, modelRepo, cacheDir string) (dir string, missing []string, err error) {
	dir = filepath.Join(cacheDir, filepath.FromSlash(modelRepo))
	for _, f := range artifact.BundleFiles {
		err := repo.Download(ctx, modelRepo, hub.TypeModel, f, filepath.Join(dir, f))
		if hub.IsNotFound(err) {
			missing = append(missing, f)
			continue
		}
		if err != nil {
			return "", nil, err
		}
	}
	log.Info().Str("repo", modelRepo).Str("dir", dir).Strs("missing", missing).Msg("Fetched model bundle")
	return dir, missing, nil
}

// Load reads the bundle in dir. When blobs are missing the bundle is nil and
// missing names them.
func Load(dir string) (*artifact.Bundle, []string, error) {
	if missing := artifact.MissingFiles(dir); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Str("dir", dir).Msg("Model bundle incomplete")
		return nil, missing, nil
	}
	b, err := artifact.LoadBundle(dir)
	if err != nil {
		return nil, nil, err
	}
	return b, nil, nil
}
