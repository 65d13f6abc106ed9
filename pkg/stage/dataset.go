package stage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
)

// RegisterDataset uploads the local CSV to the dataset repository, creating
// the repository first when needed.
func RegisterDataset(ctx context.Context, cfg *config.Configs, repo hub.Repository) (err error) {
	defer observe(RegisterDatasetStage, time.Now(), &err)

	if _, statErr := os.Stat(cfg.LocalPath); statErr != nil {
		return fmt.Errorf("%w: local file not found: %s", artifact.ErrMissingArtifact, cfg.LocalPath)
	}
	if err = repo.CreateRepo(ctx, cfg.DatasetRepo, hub.TypeDataset, hub.CreateOptions{Private: cfg.Private}); err != nil {
		return err
	}
	return repo.UploadFile(ctx, cfg.DatasetRepo, hub.TypeDataset, cfg.LocalPath, cfg.PathInRepo,
		fmt.Sprintf("Add dataset %s", cfg.PathInRepo))
}
