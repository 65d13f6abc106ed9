package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRequiredFlags(t *testing.T) {
	_, err := run(t, "register-dataset")
	require.ErrorIs(t, err, config.ErrMissingConfig)
	assert.Contains(t, err.Error(), "--dataset-repo / DATASET_REPO")
	assert.Contains(t, err.Error(), "--hf-token / HF_TOKEN")
}

func TestRegisterDatasetWithLocalHub(t *testing.T) {
	dir := t.TempDir()
	csv := filepath.Join(dir, "tourism.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Age,ProdTaken\n30,1\n"), 0o644))
	hubDir := filepath.Join(dir, "hub")

	out, err := run(t, "register-dataset",
		"--hub-url", "file://"+hubDir,
		"--dataset-repo", "org/tourism",
		"--local-path", csv,
	)
	require.NoError(t, err, "no token is needed for a local hub")
	assert.Contains(t, out, "Uploaded")
	assert.FileExists(t, filepath.Join(hubDir, "org", "tourism", "data", "tourism.csv"))
	assert.FileExists(t, filepath.Join(hubDir, "org", "tourism", hub.MarkerFile))
}

func TestPushSpaceRejectsUnknownSDK(t *testing.T) {
	_, err := run(t, "push-space",
		"--hub-url", "file://"+t.TempDir(),
		"--space-id", "org/app",
		"--folder", t.TempDir(),
		"--sdk", "flask",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--sdk must be one of")
}

func TestWithoutToken(t *testing.T) {
	keys := []string{"model_repo", "hf_token"}
	assert.Equal(t, keys, withoutToken(&config.Configs{HubURL: hub.DefaultURL}, keys))
	assert.Equal(t, []string{"model_repo"}, withoutToken(&config.Configs{HubURL: "s3://bucket"}, keys))
	assert.Equal(t, []string{"model_repo", "hf_token"}, keys, "input is not modified")
}
