package stage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/artifact"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/data"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/dataprep"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/loader"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/pipeline"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/stats"
)

// PrepareResult summarises a prepare run.
type PrepareResult struct {
	Meta        pipeline.Meta
	TrainRows   int
	TestRows    int
	NumFeatures int
}

// Prepare downloads the dataset CSV from the dataset repository into
// <artifacts>/raw and runs PrepareFile on it.
func Prepare(ctx context.Context, cfg *config.Configs, repo hub.Repository) (*PrepareResult, error) {
	local := filepath.Join(cfg.ArtifactsDir, "raw", path.Base(cfg.DatasetPathInRepo))
	if err := repo.Download(ctx, cfg.DatasetRepo, hub.TypeDataset, cfg.DatasetPathInRepo, local); err != nil {
		return nil, fmt.Errorf("download %s from %s: %w", cfg.DatasetPathInRepo, cfg.DatasetRepo, err)
	}
	log.Info().Str("repo", cfg.DatasetRepo).Str("path", local).Msg("Downloaded dataset")
	return PrepareFile(cfg, local)
}

// PrepareFile cleans and splits csvPath, fits the preprocessor on the
// training partition and writes partitions, preprocessor and schema under
// the artifacts dir.
func PrepareFile(cfg *config.Configs, csvPath string) (res *PrepareResult, err error) {
	defer observe(PrepareStage, time.Now(), &err)

	ds, err := data.ReadCSVFile(csvPath)
	if err != nil {
		return nil, err
	}
	label := target(cfg.Target)
	x, y, err := dataprep.Clean(ds, label)
	if err != nil {
		return nil, err
	}
	numeric, categorical := dataprep.InferColumns(x, label)
	meta := pipeline.Meta{Target: label, NumericCols: numeric, CategoricalCols: categorical}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	frac := cfg.TestSize
	if frac == 0 {
		frac = loader.DefaultTestFraction
	}
	xTrain, xTest, yTrain, yTest, err := loader.SplitDataset(x, y, cfg.Seed, frac)
	if err != nil {
		return nil, err
	}

	p := pipeline.FromMeta(meta)
	if err := p.Fit(xTrain); err != nil {
		return nil, err
	}

	dataDir := filepath.Join(cfg.ArtifactsDir, artifact.DataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := artifact.WriteProfile(filepath.Join(dataDir, artifact.ProfileFile), profile(xTrain, numeric)); err != nil {
		return nil, err
	}
	if err := writePartitions(dataDir, label, xTrain, xTest, yTrain, yTest); err != nil {
		return nil, err
	}
	if err := artifact.SavePreprocess(filepath.Join(cfg.ArtifactsDir, artifact.PreprocessDir), p, meta); err != nil {
		return nil, err
	}

	log.Info().
		Int("train_rows", xTrain.Len()).
		Int("test_rows", xTest.Len()).
		Strs("numeric", numeric).
		Strs("categorical", categorical).
		Int("features", p.NumFeatures()).
		Msg("Prepared dataset")
	return &PrepareResult{Meta: meta, TrainRows: xTrain.Len(), TestRows: xTest.Len(), NumFeatures: p.NumFeatures()}, nil
}

// profile describes the numeric columns of ds. Non-finite cells count as
// missing, as they do for the median imputer.
func profile(ds *data.Dataset, numeric []string) map[string]stats.Profile {
	out := make(map[string]stats.Profile, len(numeric))
	for _, c := range numeric {
		col, err := ds.Column(c)
		if err != nil {
			continue
		}
		vals := make([]float64, 0, len(col))
		for _, v := range col {
			if f, ok := v.Float(); ok && stats.IsFinite(f) {
				vals = append(vals, f)
			}
		}
		out[c] = stats.Describe(vals, len(col)-len(vals))
	}
	return out
}

func writePartitions(dir, label string, xTrain, xTest *data.Dataset, yTrain, yTest []int) error {
	for name, ds := range map[string]*data.Dataset{artifact.XTrainFile: xTrain, artifact.XTestFile: xTest} {
		if err := writeFile(filepath.Join(dir, name), func(f *os.File) error { return data.WriteCSV(f, ds) }); err != nil {
			return err
		}
	}
	for name, y := range map[string][]int{artifact.YTrainFile: yTrain, artifact.YTestFile: yTest} {
		if err := writeFile(filepath.Join(dir, name), func(f *os.File) error { return data.WriteLabels(f, label, y) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
