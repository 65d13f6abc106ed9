package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/emirpasic/gods/maps/linkedhashmap"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
)

// Summary is the content of metrics.json.
type Summary struct {
	Model   string
	Metrics model.Metrics
}

// WriteSummary writes {"model": name, <metric>: value, ...} with two-space
// indentation, metrics in report order.
func WriteSummary(path, name string, metrics model.Metrics) error {
	m := linkedhashmap.New()
	m.Put("model", name)
	for _, k := range metrics.Keys() {
		m.Put(k, model.JSONFloat(metrics[k]))
	}
	raw, err := m.ToJSON()
	if err != nil {
		return fmt.Errorf("artifact: encode summary: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("artifact: encode summary: %w", err)
	}
	out.WriteByte('\n')
	return writeAtomic(path, out.Bytes())
}

// ReadSummary reads a metrics.json file.
func ReadSummary(path string) (Summary, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Summary{}, fmt.Errorf("%w: %s", ErrMissingArtifact, path)
	}
	if err != nil {
		return Summary{}, fmt.Errorf("artifact: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return Summary{}, fmt.Errorf("artifact: %s: %w", path, err)
	}
	s := Summary{Metrics: model.Metrics{}}
	for k, v := range raw {
		if k == "model" {
			s.Model, _ = v.(string)
			continue
		}
		f, err := model.ParseJSONFloat(v)
		if err != nil {
			return Summary{}, fmt.Errorf("artifact: %s: metric %q: %w", path, k, err)
		}
		s.Metrics[k] = f
	}
	return s, nil
}
