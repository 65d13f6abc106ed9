package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/pipeline"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/tracking"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/train"
)

// TrainResult summarises a train run.
type TrainResult struct {
	Best    string
	Metrics model.Metrics
	Results []train.Result
	Bundle  *artifact.Bundle
}

// Train loads the prepared partitions and preprocessor, evaluates the
// candidate menu and writes the winning bundle to the model output dir.
func Train(ctx context.Context, cfg *config.Configs, tracker tracking.Tracker) (res *TrainResult, err error) {
	defer observe(TrainStage, time.Now(), &err)

	p, meta, err := artifact.LoadPreprocess(filepath.Join(cfg.ArtifactsDir, artifact.PreprocessDir))
	if err != nil {
		return nil, err
	}
	split, err := loadSplit(filepath.Join(cfg.ArtifactsDir, artifact.DataDir), p, meta)
	if err != nil {
		return nil, err
	}

	runName := cfg.RunName
	if runName == "" {
		runName = "baseline"
	}
	trainer := &train.Trainer{Tracker: tracker, Experiment: cfg.Experiment, RunName: runName}
	results, best, err := trainer.Run(ctx, train.DefaultCandidates(cfg.Seed), split)
	if err != nil {
		return nil, err
	}

	winner := results[best]
	bundle := artifact.NewBundle(p, winner.Model, meta, winner.Name, winner.Metrics)
	if err := artifact.SaveModelBundle(cfg.ModelOutDir, bundle); err != nil {
		return nil, err
	}
	log.Info().Str("model", winner.Name).Str("dir", cfg.ModelOutDir).Msg("Saved best model")
	return &TrainResult{Best: winner.Name, Metrics: winner.Metrics, Results: results, Bundle: bundle}, nil
}

// loadSplit reads the four partition files and transforms both feature
// partitions with the fitted preprocessor.
func loadSplit(dir string, p *pipeline.Preprocessor, meta pipeline.Meta) (train.Split, error) {
	missing := []string{}
	for _, f := range []string{artifact.XTrainFile, artifact.XTestFile, artifact.YTrainFile, artifact.YTestFile} {
		if !fileExists(filepath.Join(dir, f)) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return train.Split{}, fmt.Errorf("%w: %v in %s", artifact.ErrMissingArtifact, missing, dir)
	}

	// categorical columns stay text even when every value looks numeric
	opt := data.WithTextColumns(meta.CategoricalCols...)
	var s train.Split
	xTrain, err := data.ReadCSVFile(filepath.Join(dir, artifact.XTrainFile), opt)
	if err != nil {
		return s, err
	}
	xTest, err := data.ReadCSVFile(filepath.Join(dir, artifact.XTestFile), opt)
	if err != nil {
		return s, err
	}
	if s.YTrain, err = data.ReadLabelsFile(filepath.Join(dir, artifact.YTrainFile)); err != nil {
		return s, err
	}
	if s.YTest, err = data.ReadLabelsFile(filepath.Join(dir, artifact.YTestFile)); err != nil {
		return s, err
	}
	if s.XTrain, err = p.Transform(xTrain); err != nil {
		return s, err
	}
	if s.XTest, err = p.Transform(xTest); err != nil {
		return s, err
	}
	if len(s.XTrain) != len(s.YTrain) || len(s.XTest) != len(s.YTest) {
		return s, fmt.Errorf("stage: partition sizes disagree: X_train %d y_train %d X_test %d y_test %d",
			len(s.XTrain), len(s.YTrain), len(s.XTest), len(s.YTest))
	}
	return s, nil
}
