package tracking

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FileStore lays runs out like a local MLflow store:
//
//	<root>/<experiment id>/meta.yaml
//	<root>/<experiment id>/<run id>/meta.yaml
//	<root>/<experiment id>/<run id>/params/<key>
//	<root>/<experiment id>/<run id>/metrics/<key>
//	<root>/<experiment id>/<run id>/tags/<key>
//	<root>/<experiment id>/<run id>/artifacts/<name>
type FileStore struct {
	Root string
	mu   sync.Mutex
}

func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

type experimentMeta struct {
	ExperimentID   string `yaml:"experiment_id"`
	Name           string `yaml:"name"`
	ArtifactLoc    string `yaml:"artifact_location"`
	LifecycleStage string `yaml:"lifecycle_stage"`
}

type runMeta struct {
	RunID          string `yaml:"run_id"`
	RunName        string `yaml:"run_name"`
	ExperimentID   string `yaml:"experiment_id"`
	Status         int    `yaml:"status"`
	StartTime      int64  `yaml:"start_time"`
	EndTime        int64  `yaml:"end_time"`
	ArtifactURI    string `yaml:"artifact_uri"`
	LifecycleStage string `yaml:"lifecycle_stage"`
}

// runStatusFinished is MLflow's RunStatus.FINISHED.
const runStatusFinished = 3

// LogRun writes the run under its experiment, creating the experiment on
// first use.
func (s *FileStore) LogRun(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expID, err := s.experimentID(run.Experiment)
	if err != nil {
		return err
	}
	runDir := filepath.Join(s.Root, expID, run.ID)
	for _, sub := range []string{"params", "metrics", "tags", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0o755); err != nil {
			return fmt.Errorf("tracking: %w", err)
		}
	}

	abs, _ := filepath.Abs(filepath.Join(runDir, "artifacts"))
	meta := runMeta{
		RunID:          run.ID,
		RunName:        run.Name,
		ExperimentID:   expID,
		Status:         runStatusFinished,
		StartTime:      run.StartTime.UnixMilli(),
		EndTime:        run.EndTime.UnixMilli(),
		ArtifactURI:    "file://" + filepath.ToSlash(abs),
		LifecycleStage: "active",
	}
	if err := writeYAML(filepath.Join(runDir, "meta.yaml"), meta); err != nil {
		return err
	}

	ts := strconv.FormatInt(run.EndTime.UnixMilli(), 10)
	for k, v := range run.Params {
		if err := writeFile(filepath.Join(runDir, "params", k), []byte(v)); err != nil {
			return err
		}
	}
	for k, v := range run.Metrics {
		// "<timestamp> <value> <step>"
		line := ts + " " + strconv.FormatFloat(v, 'g', -1, 64) + " 0\n"
		if err := writeFile(filepath.Join(runDir, "metrics", k), []byte(line)); err != nil {
			return err
		}
	}
	tags := map[string]string{"mlflow.runName": run.Name}
	for k, v := range run.Tags {
		tags[k] = v
	}
	for k, v := range tags {
		if err := writeFile(filepath.Join(runDir, "tags", k), []byte(v)); err != nil {
			return err
		}
	}
	for name, content := range run.Artifacts {
		if err := writeFile(filepath.Join(runDir, "artifacts", name), content); err != nil {
			return err
		}
	}
	log.Debug().Str("run_id", run.ID).Str("dir", runDir).Msg("Logged run to file store")
	return nil
}

func (s *FileStore) Close() error { return nil }

// experimentID finds the experiment by name or creates it with the next
// free numeric id.
func (s *FileStore) experimentID(name string) (string, error) {
	if name == "" {
		name = "Default"
	}
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return "", fmt.Errorf("tracking: %w", err)
	}
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return "", fmt.Errorf("tracking: %w", err)
	}
	ids := []int{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
		var meta experimentMeta
		b, err := os.ReadFile(filepath.Join(s.Root, e.Name(), "meta.yaml"))
		if err != nil {
			continue
		}
		if yaml.Unmarshal(b, &meta) == nil && meta.Name == name {
			return e.Name(), nil
		}
	}
	// id 0 is reserved for the Default experiment
	next := 1
	sort.Ints(ids)
	if len(ids) > 0 && ids[len(ids)-1] >= next {
		next = ids[len(ids)-1] + 1
	}
	if name == "Default" && !contains(ids, 0) {
		next = 0
	}

	id := strconv.Itoa(next)
	dir := filepath.Join(s.Root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("tracking: %w", err)
	}
	abs, _ := filepath.Abs(dir)
	meta := experimentMeta{ExperimentID: id, Name: name, ArtifactLoc: "file://" + filepath.ToSlash(abs), LifecycleStage: "active"}
	if err := writeYAML(filepath.Join(dir, "meta.yaml"), meta); err != nil {
		return "", err
	}
	return id, nil
}

func contains(ids []int, v int) bool {
	for _, id := range ids {
		if id == v {
			return true
		}
	}
	return false
}

func writeYAML(path string, v any) error {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("tracking: %w", err)
	}
	return writeFile(path, b)
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}
	return nil
}
