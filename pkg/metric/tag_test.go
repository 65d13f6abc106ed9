package metric

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

func TestBuildTag(t *testing.T) {
	tags := BuildTag(
		NewTag(TagStage, "train"),
		NewTag(TagPath, "/api/v1/predict"),
		NewTag(TagCandidate, "rf run:1, a|b"),
	)
	assert.Equal(t, []string{"stage:train", "path:/api/v1/predict", "candidate:rf_run_1__a_b"}, tags)
}

func TestStatusTag(t *testing.T) {
	assert.Equal(t, "status:success", TagAsString(StatusTag(nil).Name, StatusTag(nil).Value))
	assert.Equal(t, TagValueFailure, StatusTag(errors.New("boom")).Value)
}

func TestNoOpClientBeforeInit(t *testing.T) {
	Init(&config.Configs{})
	assert.False(t, initialized)
	assert.NotPanics(t, func() {
		Incr(StageCount, nil)
		Gauge(CandidateF1, 0.5, BuildTag(NewTag(TagCandidate, "rf")))
		TimingWithStart(StageLatency, time.Now(), nil)
		Close()
	})
}
