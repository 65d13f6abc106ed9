package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/serve"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/stage"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/tracking"
)

func newRegisterDatasetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-dataset",
		Short: "Upload the local dataset CSV to a dataset repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "dataset_repo", "hf_token")
			if err != nil {
				return err
			}
			repo, err := hub.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := stage.RegisterDataset(cmd.Context(), cfg, repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s:%s\n", cfg.LocalPath, cfg.DatasetRepo, cfg.PathInRepo)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("dataset-repo", "", "Dataset repository id, e.g. labhara/tourism-wellness-dataset")
	f.String("local-path", "tourism_project/data/tourism.csv", "Local CSV to upload")
	f.String("path-in-repo", "data/tourism.csv", "Destination path inside the repository")
	f.Bool("private", false, "Create the repository as private if it does not exist")
	return cmd
}

func newPrepareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Download, clean and split the dataset and fit the preprocessor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "dataset_repo", "hf_token")
			if err != nil {
				return err
			}
			repo, err := hub.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			res, err := stage.Prepare(cmd.Context(), cfg, repo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data prep complete: %d train rows, %d test rows, %d features under %s/\n",
				res.TrainRows, res.TestRows, res.NumFeatures, cfg.ArtifactsDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("dataset-repo", "", "Dataset repository id")
	f.String("dataset-path-in-repo", "data/tourism.csv", "Path to the CSV inside the dataset repository")
	f.String("artifacts-dir", "artifacts", "Where to write split data and the preprocessor")
	f.String("target", stage.DefaultTarget, "Label column")
	f.Int64("seed", 42, "Split seed")
	f.Float64("test-size", 0.2, "Test fraction")
	return cmd
}

func newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the candidate models and save the best bundle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "artifacts_dir", "model_out_dir")
			if err != nil {
				return err
			}
			tracker, err := tracking.Open(cfg.MlflowURI)
			if err != nil {
				return err
			}
			defer tracker.Close()
			res, err := stage.Train(cmd.Context(), cfg, tracker)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Best model: %s (f1=%.4f). Saved to %s\n", res.Best, res.Metrics[model.MetricF1], cfg.ModelOutDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("artifacts-dir", "artifacts", "Directory written by prepare")
	f.String("model-out-dir", "artifacts/model", "Where to write the model bundle")
	f.String("mlflow-uri", tracking.DefaultURI, "Tracking URI: file:<dir>, http(s)://host or mysql://<dsn>")
	f.String("experiment", "tourism-wellness", "Tracking experiment name")
	f.String("run-name", "baseline", "Run name prefix")
	f.Int64("seed", 42, "Random forest seed")
	return cmd
}

func newPublishModelCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish-model",
		Short: "Upload the model bundle to a model repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "model_repo", "hf_token")
			if err != nil {
				return err
			}
			repo, err := hub.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := stage.PublishModel(cmd.Context(), cfg, repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published artifacts from '%s' to model repo '%s'\n", cfg.ModelOutDir, cfg.ModelRepo)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("model-repo", "", "Model repository id, e.g. labhara/tourism-wellness-model")
	f.String("model-out-dir", "artifacts/model", "Directory holding the model bundle")
	f.Bool("private", false, "Create the repository as private if it does not exist")
	return cmd
}

func newPushSpaceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push-space",
		Short: "Deploy the app folder to a space",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "space_id", "folder", "hf_token")
			if err != nil {
				return err
			}
			if cfg.SDK != "" && !hub.ValidSDK(cfg.SDK) {
				return fmt.Errorf("--sdk must be one of %v", hub.SpaceSDKs)
			}
			repo, err := hub.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()
			if err := stage.PushSpace(cmd.Context(), cfg, repo); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %s to space %s\n", cfg.Folder, cfg.SpaceID)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("space-id", "", "Space id, e.g. labhara/tourism-wellness-app")
	f.String("folder", "", "Folder with the app and its README.md")
	f.String("sdk", "streamlit", "Space SDK when the README has no manifest: streamlit, gradio, static or docker")
	f.Int("app-port", 8080, "Port of a docker space")
	f.Bool("private", false, "Create the space as private if it does not exist")
	return cmd
}

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form and API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, "addr")
			if err != nil {
				return err
			}
			dir := cfg.BundleDir
			var missing []string
			if dir == "" {
				if err := cfg.Require("model_repo"); err != nil {
					return fmt.Errorf("set --bundle-dir or --model-repo: %w", err)
				}
				repo, err := hub.Open(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				dir, missing, err = serve.Fetch(cmd.Context(), repo, cfg.ModelRepo, cfg.CacheDir)
				repo.Close()
				if err != nil {
					return err
				}
			}
			bundle, loadMissing, err := serve.Load(dir)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				// do not serve stale blobs left from an earlier fetch
				bundle = nil
			} else {
				missing = loadMissing
			}
			srv := serve.NewServer(bundle, missing, serve.Options{AppEnv: cfg.AppEnv, PredictionCacheMB: cfg.PredictionCacheMB})
			return srv.Run(cmd.Context(), cfg.Addr)
		},
	}
	f := cmd.Flags()
	f.String("addr", ":8080", "Listen address")
	f.String("bundle-dir", "", "Local model bundle directory; when empty the bundle is fetched from --model-repo")
	f.String("model-repo", "", "Model repository id (also HF_MODEL_REPO)")
	f.String("cache-dir", defaultCacheDir(), "Where fetched bundles are kept")
	f.Int("prediction-cache-mb", 16, "Prediction cache size; 0 disables it")
	return cmd
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "tourism-mlops")
	}
	return filepath.Join(".cache", "tourism-mlops")
}
