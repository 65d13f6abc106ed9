package stage

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
)

// Stage names, used in logs and metric tags.
const (
	RegisterDatasetStage = "register_dataset"
	PrepareStage         = "prepare"
	TrainStage           = "train"
	PublishModelStage    = "publish_model"
	PushSpaceStage       = "push_space"
)

// DefaultTarget is the label column of the tourism dataset.
const DefaultTarget = "ProdTaken"

// observe records how a stage ended. Call it deferred with a pointer to the
// stage's named error.
func observe(stage string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	tags := metric.BuildTag(metric.NewTag(metric.TagStage, stage), metric.StatusTag(err))
	metric.Incr(metric.StageCount, tags)
	metric.TimingWithStart(metric.StageLatency, start, tags)
	if err != nil {
		log.Error().Err(err).Str("stage", stage).Msg("Stage failed")
		return
	}
	log.Info().Str("stage", stage).Dur("elapsed", time.Since(start)).Msg("Stage complete")
}

func target(t string) string {
	if t == "" {
		return DefaultTarget
	}
	return t
}
