package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MLflowClient logs runs to an MLflow tracking server over its REST API.
type MLflowClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewMLflowClient points at a tracking server. MLFLOW_TRACKING_TOKEN, when
// set, is sent as a bearer token.
func NewMLflowClient(baseURL string) *MLflowClient {
	return &MLflowClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   os.Getenv("MLFLOW_TRACKING_TOKEN"),
	}
}

// MLflowError is a non-2xx answer from the tracking server.
type MLflowError struct {
	Path      string
	Status    int
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e *MLflowError) Error() string {
	return fmt.Sprintf("mlflow: %s: %d %s %s", e.Path, e.Status, e.ErrorCode, e.Message)
}

type mlflowKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mlflowMetric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

// LogRun creates the run, logs params, metrics and tags in one batch, uploads
// artifacts and marks the run finished.
func (c *MLflowClient) LogRun(ctx context.Context, run Run) error {
	expID, err := c.experimentID(ctx, run.Experiment)
	if err != nil {
		return err
	}

	var created struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	err = c.call(ctx, http.MethodPost, "runs/create", map[string]any{
		"experiment_id": expID,
		"run_name":      run.Name,
		"start_time":    run.StartTime.UnixMilli(),
		"tags":          kvs(run.Tags),
	}, &created)
	if err != nil {
		return err
	}
	runID := created.Run.Info.RunID

	ts := run.EndTime.UnixMilli()
	metrics := []mlflowMetric{}
	finite := finiteMetrics(run.Metrics)
	for _, k := range sortedKeys(finite) {
		metrics = append(metrics, mlflowMetric{Key: k, Value: finite[k], Timestamp: ts})
	}
	if len(finite) < len(run.Metrics) {
		log.Debug().Str("run", run.Name).Msg("Skipped non-finite metrics for MLflow")
	}
	err = c.call(ctx, http.MethodPost, "runs/log-batch", map[string]any{
		"run_id":  runID,
		"params":  kvs(run.Params),
		"metrics": metrics,
	}, nil)
	if err != nil {
		return err
	}

	for _, name := range sortedKeys(run.Artifacts) {
		if err := c.uploadArtifact(ctx, expID, runID, name, run.Artifacts[name]); err != nil {
			// servers without --serve-artifacts reject uploads
			log.Warn().Err(err).Str("artifact", name).Msg("Artifact upload to MLflow failed")
		}
	}

	return c.call(ctx, http.MethodPost, "runs/update", map[string]any{
		"run_id":   runID,
		"status":   "FINISHED",
		"end_time": ts,
	}, nil)
}

func (c *MLflowClient) Close() error { return nil }

func (c *MLflowClient) experimentID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "0", nil
	}
	var got struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := c.call(ctx, http.MethodGet, "experiments/get-by-name?experiment_name="+url.QueryEscape(name), nil, &got)
	if err == nil {
		return got.Experiment.ExperimentID, nil
	}
	var me *MLflowError
	if !errors.As(err, &me) || me.ErrorCode != "RESOURCE_DOES_NOT_EXIST" {
		return "", err
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.call(ctx, http.MethodPost, "experiments/create", map[string]any{"name": name}, &created); err != nil {
		return "", err
	}
	log.Info().Str("experiment", name).Str("id", created.ExperimentID).Msg("Created MLflow experiment")
	return created.ExperimentID, nil
}

func (c *MLflowClient) call(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("mlflow: %s: %w", path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/2.0/mlflow/"+path, rd)
	if err != nil {
		return fmt.Errorf("mlflow: %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, path, out)
}

func (c *MLflowClient) uploadArtifact(ctx context.Context, expID, runID, name string, content []byte) error {
	path := fmt.Sprintf("%s/%s/artifacts/%s", expID, runID, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/2.0/mlflow-artifacts/artifacts/"+path, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return c.do(req, "artifacts/"+name, nil)
}

func (c *MLflowClient) do(req *http.Request, path string, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to reach MLflow")
		return fmt.Errorf("mlflow: %s: %w", path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("mlflow: %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		me := &MLflowError{Path: path, Status: resp.StatusCode}
		if json.Unmarshal(b, me) != nil || me.Message == "" {
			me.Message = strings.TrimSpace(string(b))
		}
		return me
	}
	if out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("mlflow: %s: decode response: %w", path, err)
		}
	}
	return nil
}

func kvs(m map[string]string) []mlflowKV {
	out := make([]mlflowKV, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, mlflowKV{Key: k, Value: m[k]})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
