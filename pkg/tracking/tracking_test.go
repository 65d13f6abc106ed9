package tracking

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func sampleRun() Run {
	run := NewRun("tourism-wellness", "baseline-logreg")
	run.Params["logreg_C"] = "1"
	run.Metrics["logreg_f1"] = 0.5
	run.Metrics["logreg_roc_auc"] = math.NaN()
	run.Tags["candidate"] = "logreg"
	run.Artifacts["roc.png"] = []byte("png")
	run.EndTime = run.StartTime.Add(time.Second)
	return run
}

func TestNewRunID(t *testing.T) {
	a, b := NewRun("e", "r"), NewRun("e", "r")
	assert.Len(t, a.ID, 32)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotContains(t, a.ID, "-")
}

func TestFileStoreLayout(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	run := sampleRun()
	require.NoError(t, s.LogRun(context.Background(), run))

	runDir := filepath.Join(root, "1", run.ID)
	var meta runMeta
	b, err := os.ReadFile(filepath.Join(runDir, "meta.yaml"))
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(b, &meta))
	assert.Equal(t, "baseline-logreg", meta.RunName)
	assert.Equal(t, "1", meta.ExperimentID)
	assert.Equal(t, runStatusFinished, meta.Status)

	p, err := os.ReadFile(filepath.Join(runDir, "params", "logreg_C"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(p))

	m, err := os.ReadFile(filepath.Join(runDir, "metrics", "logreg_f1"))
	require.NoError(t, err)
	fields := strings.Fields(string(m))
	require.Len(t, fields, 3)
	assert.Equal(t, "0.5", fields[1])

	tag, err := os.ReadFile(filepath.Join(runDir, "tags", "mlflow.runName"))
	require.NoError(t, err)
	assert.Equal(t, "baseline-logreg", string(tag))

	art, err := os.ReadFile(filepath.Join(runDir, "artifacts", "roc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(art))
}

func TestFileStoreReusesExperiment(t *testing.T) {
	root := t.TempDir()
	s := NewFileStore(root)
	require.NoError(t, s.LogRun(context.Background(), sampleRun()))
	require.NoError(t, s.LogRun(context.Background(), sampleRun()))
	other := sampleRun()
	other.Experiment = "other"
	require.NoError(t, s.LogRun(context.Background(), other))
	def := sampleRun()
	def.Experiment = ""
	require.NoError(t, s.LogRun(context.Background(), def))

	runs, err := os.ReadDir(filepath.Join(root, "1"))
	require.NoError(t, err)
	assert.Len(t, runs, 3, "two runs plus meta.yaml")
	assert.DirExists(t, filepath.Join(root, "2", other.ID))
	assert.DirExists(t, filepath.Join(root, "0", def.ID))
}

// fakeMLflow records the REST calls the client makes.
type fakeMLflow struct {
	mu         sync.Mutex
	calls      []string
	batch      map[string]any
	artifacts  map[string]string
	experiment bool
}

func (f *fakeMLflow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.URL.Path == "/api/2.0/mlflow/experiments/get-by-name":
		if !f.experiment {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error_code":"RESOURCE_DOES_NOT_EXIST","message":"no experiment"}`))
			return
		}
		_, _ = w.Write([]byte(`{"experiment":{"experiment_id":"7"}}`))
	case r.URL.Path == "/api/2.0/mlflow/experiments/create":
		f.experiment = true
		_, _ = w.Write([]byte(`{"experiment_id":"7"}`))
	case r.URL.Path == "/api/2.0/mlflow/runs/create":
		_, _ = w.Write([]byte(`{"run":{"info":{"run_id":"abc"}}}`))
	case r.URL.Path == "/api/2.0/mlflow/runs/log-batch":
		f.batch = map[string]any{}
		_ = json.Unmarshal(body, &f.batch)
		_, _ = w.Write([]byte(`{}`))
	case strings.HasPrefix(r.URL.Path, "/api/2.0/mlflow-artifacts/artifacts/"):
		f.artifacts[strings.TrimPrefix(r.URL.Path, "/api/2.0/mlflow-artifacts/artifacts/")] = string(body)
		_, _ = w.Write([]byte(`{}`))
	case r.URL.Path == "/api/2.0/mlflow/runs/update":
		_, _ = w.Write([]byte(`{}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestMLflowClientLogRun(t *testing.T) {
	fake := &fakeMLflow{artifacts: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := NewMLflowClient(srv.URL + "/")
	require.NoError(t, c.LogRun(context.Background(), sampleRun()))

	assert.Equal(t, []string{
		"GET /api/2.0/mlflow/experiments/get-by-name",
		"POST /api/2.0/mlflow/experiments/create",
		"POST /api/2.0/mlflow/runs/create",
		"POST /api/2.0/mlflow/runs/log-batch",
		"PUT /api/2.0/mlflow-artifacts/artifacts/7/abc/artifacts/roc.png",
		"POST /api/2.0/mlflow/runs/update",
	}, fake.calls)

	metrics, ok := fake.batch["metrics"].([]any)
	require.True(t, ok)
	require.Len(t, metrics, 1, "NaN metrics are skipped")
	assert.Equal(t, "logreg_f1", metrics[0].(map[string]any)["key"])
	assert.Equal(t, "png", fake.artifacts["7/abc/artifacts/roc.png"])

	// a second run finds the experiment
	fake.calls = nil
	require.NoError(t, c.LogRun(context.Background(), sampleRun()))
	assert.Equal(t, "GET /api/2.0/mlflow/experiments/get-by-name", fake.calls[0])
	assert.Equal(t, "POST /api/2.0/mlflow/runs/create", fake.calls[1])
}

func TestMLflowClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	err := NewMLflowClient(srv.URL).LogRun(context.Background(), sampleRun())
	var me *MLflowError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusInternalServerError, me.Status)
	assert.Equal(t, "boom", me.Message)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		uri  string
		want any
	}{
		{"", &FileStore{}},
		{"file:" + dir, &FileStore{}},
		{"file://" + dir, &FileStore{}},
		{dir, &FileStore{}},
		{"http://localhost:5000", &MLflowClient{}},
		{"https://mlflow.example.com", &MLflowClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			tr, err := Open(tt.uri)
			require.NoError(t, err)
			assert.IsType(t, tt.want, tr)
			assert.NoError(t, tr.Close())
		})
	}

	fs, err := Open("file://" + dir)
	require.NoError(t, err)
	assert.Equal(t, dir, fs.(*FileStore).Root)

	_, err = Open("ftp://host/x")
	assert.Error(t, err)
}

func TestFiniteMetrics(t *testing.T) {
	got := finiteMetrics(map[string]float64{"a": 1, "b": math.NaN(), "c": math.Inf(1)})
	assert.Equal(t, map[string]float64{"a": 1}, got)
}
