package stage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
)

// PublishModel uploads the model output dir to the model repository,
// creating the repository when needed.
func PublishModel(ctx context.Context, cfg *config.Configs, repo hub.Repository) (err error) {
	defer observe(PublishModelStage, time.Now(), &err)

	dir := cfg.ModelOutDir
	if !dirExists(dir) {
		return fmt.Errorf("%w: artifacts dir not found: %s", artifact.ErrMissingArtifact, dir)
	}
	if missing := artifact.MissingFiles(dir); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Str("dir", dir).Msg("Publishing an incomplete bundle")
	}
	if err = repo.CreateRepo(ctx, cfg.ModelRepo, hub.TypeModel, hub.CreateOptions{Private: cfg.Private}); err != nil {
		return err
	}
	return repo.UploadFolder(ctx, cfg.ModelRepo, hub.TypeModel, dir,
		fmt.Sprintf("Publish model artifacts from CI: %s", dir))
}

// PushSpace deploys the app folder to a space. The id is queried once:
// a space is updated, a free id is created as a space, and any other kind
// aborts with hub.ErrKindConflict.
func PushSpace(ctx context.Context, cfg *config.Configs, repo hub.Repository) (err error) {
	defer observe(PushSpaceStage, time.Now(), &err)

	if !dirExists(cfg.Folder) {
		return fmt.Errorf("%w: folder not found: %s", artifact.ErrMissingArtifact, cfg.Folder)
	}
	manifest, err := hub.EnsureManifest(cfg.Folder, cfg.SDK, cfg.AppPort, cfg.SpaceID)
	if err != nil {
		return err
	}

	kind, err := repo.Kind(ctx, cfg.SpaceID)
	if err != nil {
		return err
	}
	switch kind {
	case hub.KindSpace:
	case hub.KindNotFound:
		err = repo.CreateRepo(ctx, cfg.SpaceID, hub.TypeSpace, hub.CreateOptions{Private: cfg.Private, SpaceSDK: manifest.SDK})
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s is a %s", hub.ErrKindConflict, cfg.SpaceID, kind)
	}
	return repo.UploadFolder(ctx, cfg.SpaceID, hub.TypeSpace, cfg.Folder, "Deploy app from CI")
}

func dirExists(dir string) bool {
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
