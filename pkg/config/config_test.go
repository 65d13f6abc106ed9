package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("train", pflag.ContinueOnError)
	fs.String("artifacts-dir", "artifacts", "")
	fs.String("mlflow-uri", "file:./mlruns", "")
	fs.Int64("seed", 42, "")
	fs.Float64("test-size", 0.2, "")
	fs.Bool("private", false, "")
	return fs
}

func TestLoadUsesFlagDefaults(t *testing.T) {
	cfg, err := Load(newFlags())
	require.NoError(t, err)
	assert.Equal(t, "artifacts", cfg.ArtifactsDir)
	assert.Equal(t, "file:./mlruns", cfg.MlflowURI)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.False(t, cfg.Private)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("ARTIFACTS_DIR", "/env/artifacts")
	t.Setenv("MLFLOW_URI", "http://mlflow:5000")
	t.Setenv("HF_TOKEN", "hf_secret")
	t.Setenv("PRIVATE", "true")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--mlflow-uri", "file:/tmp/runs", "--seed", "7"}))

	cfg, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, "/env/artifacts", cfg.ArtifactsDir, "env beats flag default")
	assert.Equal(t, "file:/tmp/runs", cfg.MlflowURI, "explicit flag beats env")
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "hf_secret", cfg.HFToken, "keys without a flag come from env")
	assert.True(t, cfg.Private)
}

func TestLoadModelRepoAlias(t *testing.T) {
	t.Setenv("HF_MODEL_REPO", "labhara/tourism-wellness-model")
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "labhara/tourism-wellness-model", cfg.ModelRepo)
}

func TestRequire(t *testing.T) {
	cfg := &Configs{DatasetRepo: "labhara/tourism-wellness-dataset"}
	require.NoError(t, cfg.Require("dataset_repo"))

	err := cfg.Require("dataset_repo", "hf_token", "model_repo")
	require.ErrorIs(t, err, ErrMissingConfig)
	assert.Contains(t, err.Error(), "--hf-token / HF_TOKEN")
	assert.Contains(t, err.Error(), "--model-repo / MODEL_REPO")

	assert.Error(t, cfg.Require("no_such_key"))
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "hf_token")
	assert.Contains(t, keys, "prediction_cache_mb")
	assert.Equal(t, "app_name", keys[0])
	assert.Equal(t, "hf_token", FlagKey("hf-token"))
}
