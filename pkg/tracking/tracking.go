package tracking

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultURI keeps runs in a local directory.
const DefaultURI = "file:./mlruns"

// Run is one finished experiment run.
type Run struct {
	ID         string
	Experiment string
	Name       string
	Params     map[string]string
	Metrics    map[string]float64
	Tags       map[string]string
	StartTime  time.Time
	EndTime    time.Time
	// Artifacts maps a relative file name to its content.
	Artifacts map[string][]byte
}

// NewRun starts a run record with a fresh id.
func NewRun(experiment, name string) Run {
	return Run{
		ID:         strings.ReplaceAll(uuid.NewString(), "-", ""),
		Experiment: experiment,
		Name:       name,
		Params:     map[string]string{},
		Metrics:    map[string]float64{},
		Tags:       map[string]string{},
		Artifacts:  map[string][]byte{},
		StartTime:  time.Now(),
	}
}

// Tracker records runs in an experiment store.
type Tracker interface {
	LogRun(ctx context.Context, run Run) error
	Close() error
}

// Open returns the tracker for uri:
//
//	file:<dir>           run directories under <dir>
//	http(s)://host[:p]   MLflow tracking server REST API
//	mysql://<dsn>        MySQL tables via gorm
func Open(uri string) (Tracker, error) {
	if uri == "" {
		uri = DefaultURI
	}
	switch {
	case strings.HasPrefix(uri, "file:"):
		dir := strings.TrimPrefix(uri, "file:")
		dir = strings.TrimPrefix(dir, "//")
		return NewFileStore(dir), nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return NewMLflowClient(uri), nil
	case strings.HasPrefix(uri, "mysql://"):
		return OpenSQLStore(strings.TrimPrefix(uri, "mysql://"))
	case !strings.Contains(uri, "://"):
		return NewFileStore(uri), nil
	}
	return nil, fmt.Errorf("tracking: unsupported tracking uri %q", uri)
}

// finiteMetrics drops NaN and infinite values, which JSON and SQL stores
// cannot hold.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}
