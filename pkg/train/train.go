package train

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/model"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/report"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/tracking"
)

// ErrNoCandidates is returned when the menu is empty.
var ErrNoCandidates = errors.New("train: no candidates")

// Result is a fitted candidate and its test-set scores.
type Result struct {
	Name    string
	Params  map[string]string
	Model   model.Classifier
	Metrics model.Metrics
	// ROC points, set when the model reports probabilities
	FPR, TPR []float64
	Elapsed  time.Duration
}

// Split is the transformed train and test partitions.
type Split struct {
	XTrain [][]float64
	YTrain []int
	XTest  [][]float64
	YTest  []int
}

// Evaluate fits c on the training partition and scores it on the test
// partition. ROC-AUC is computed only for probabilistic models and is NaN
// when the test labels hold a single class.
func Evaluate(c Candidate, s Split) (Result, error) {
	start := time.Now()
	clf := c.New()
	if err := clf.Fit(s.XTrain, s.YTrain); err != nil {
		return Result{}, fmt.Errorf("train: fit %s: %w", c.Name, err)
	}
	pred, err := clf.Predict(s.XTest)
	if err != nil {
		return Result{}, fmt.Errorf("train: predict %s: %w", c.Name, err)
	}

	res := Result{Name: c.Name, Params: c.Params, Model: clf}
	var proba []float64
	if pc, ok := model.AsProbabilistic(clf); ok {
		if proba, err = pc.PredictProba(s.XTest); err != nil {
			return Result{}, fmt.Errorf("train: predict_proba %s: %w", c.Name, err)
		}
		res.FPR, res.TPR = model.ROCCurve(s.YTest, proba)
	}
	res.Metrics = model.Score(s.YTest, pred, proba)
	res.Elapsed = time.Since(start)
	return res, nil
}

// SelectBest returns the index of the result with the highest F1. A later
// result must beat the current best strictly, so ties keep the earlier one.
func SelectBest(results []Result) (int, error) {
	if len(results) == 0 {
		return -1, ErrNoCandidates
	}
	best, bestF1 := -1, -1.0
	for i, r := range results {
		f1 := r.Metrics[model.MetricF1]
		if f1 > bestF1 {
			best, bestF1 = i, f1
		}
	}
	if best < 0 {
		// every F1 was NaN
		best = 0
	}
	return best, nil
}

// Trainer evaluates a candidate menu and logs a tracking run per candidate.
type Trainer struct {
	Tracker    tracking.Tracker
	Experiment string
	// RunName prefixes every run: <RunName>-<candidate>.
	RunName string
}

// Run evaluates every candidate in order and returns all results together
// with the index of the winner. Any fit or predict failure aborts the run.
func (t *Trainer) Run(ctx context.Context, candidates []Candidate, s Split) ([]Result, int, error) {
	if len(candidates) == 0 {
		return nil, -1, ErrNoCandidates
	}
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, -1, err
		}
		res, err := Evaluate(c, s)
		if err != nil {
			metric.Incr(metric.StageCount, metric.BuildTag(metric.NewTag(metric.TagCandidate, c.Name), metric.NewTag(metric.TagStatus, metric.TagValueFailure)))
			return nil, -1, err
		}
		tags := metric.BuildTag(metric.NewTag(metric.TagCandidate, c.Name))
		metric.Timing(metric.CandidateLatency, res.Elapsed, tags)
		metric.Gauge(metric.CandidateF1, res.Metrics[model.MetricF1], tags)

		ev := log.Info().Str("candidate", c.Name).Dur("elapsed", res.Elapsed)
		for _, k := range res.Metrics.Keys() {
			ev = ev.Float64(k, res.Metrics[k])
		}
		ev.Msg("Evaluated candidate")

		if err := t.log(ctx, res); err != nil {
			return nil, -1, err
		}
		results = append(results, res)
	}

	best, err := SelectBest(results)
	if err != nil {
		return nil, -1, err
	}
	log.Info().Str("model", results[best].Name).Float64(model.MetricF1, results[best].Metrics[model.MetricF1]).Msg("Selected best candidate")
	return results, best, nil
}

func (t *Trainer) log(ctx context.Context, res Result) error {
	if t.Tracker == nil {
		return nil
	}
	run := tracking.NewRun(t.Experiment, t.RunName+"-"+res.Name)
	run.StartTime = time.Now().Add(-res.Elapsed)
	run.EndTime = time.Now()
	run.Tags["candidate"] = res.Name
	for k, v := range res.Params {
		run.Params[res.Name+"_"+k] = v
	}
	for k, v := range res.Metrics {
		run.Metrics[res.Name+"_"+k] = v
	}
	if auc, ok := res.Metrics[model.MetricROCAUC]; ok && !math.IsNaN(auc) && len(res.FPR) > 0 {
		png, err := report.ROCPlot(res.Name, res.FPR, res.TPR, auc)
		if err != nil {
			log.Warn().Err(err).Str("candidate", res.Name).Msg("Could not render ROC curve")
		} else {
			run.Artifacts["roc_curve.png"] = png
		}
	}
	if err := t.Tracker.LogRun(ctx, run); err != nil {
		return fmt.Errorf("train: log run %s: %w", run.Name, err)
	}
	return nil
}
