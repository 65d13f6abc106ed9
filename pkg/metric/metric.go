package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
)

const (
	ApiRequestCount   = "api_request_count"
	ApiRequestLatency = "api_request_latency"

	StageCount        = "stage_count"
	StageLatency      = "stage_latency"
	CandidateF1       = "candidate_f1"
	CandidateLatency  = "candidate_fit_latency"
	PredictionCount   = "prediction_count"
	PredictionLatency = "prediction_latency"
	HubRequestCount   = "hub_request_count"
	HubRequestLatency = "hub_request_latency"
)

var (
	// it is safe to use one client from multiple goroutines simultaneously
	statsDClient statsd.ClientInterface = &statsd.NoOpClient{}
	// by default full sampling
	samplingRate = 1.0
	appName      = ""
	initialized  = false
	once         sync.Once
)

// Init points the metrics client at a StatsD agent. Until Init runs, or when
// no address is configured, every call is a no-op.
func Init(cfg *config.Configs) {
	if initialized {
		log.Debug().Msgf("Metrics already initialized!")
		return
	}
	if cfg.MetricAddr == "" {
		log.Debug().Msg("No metric address configured, metrics disabled")
		return
	}
	once.Do(func() {
		if cfg.MetricSamplingRate > 0 {
			samplingRate = cfg.MetricSamplingRate
		}
		appName = cfg.AppName
		globalTags := BuildTag(NewTag(TagEnv, cfg.AppEnv), NewTag(TagService, appName))

		client, err := statsd.New(cfg.MetricAddr, statsd.WithTags(globalTags))
		if err != nil {
			log.Warn().Err(err).Msg("StatsD client initialization failed, metrics disabled")
			return
		}
		statsDClient = client
		log.Info().Msgf("Metrics client initialized with address - %s, global tags - %v, and "+
			"sampling rate - %f", cfg.MetricAddr, globalTags, samplingRate)
		initialized = true
	})
}

// Close flushes buffered metrics.
func Close() {
	if err := statsDClient.Close(); err != nil {
		log.Warn().Err(err).Msg("Error occurred while closing statsd client")
	}
}

// Timing sends timing information
func Timing(name string, value time.Duration, tags []string) {
	err := statsDClient.Timing(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().AnErr("Error occurred while doing statsd timing", err).Send()
	}
}

// TimingWithStart is a handy func when we want to measure latency of a function
// Can be used as 'defer metric.TimingWithStart("metric_name", time.Now(), []string{})' at the start of the function
func TimingWithStart(name string, startTime time.Time, tags []string) {
	Timing(name, time.Since(startTime), tags)
}

// Count Increases metric counter by value
func Count(name string, value int64, tags []string) {
	err := statsDClient.Count(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().AnErr("Error occurred while doing statsd count", err).Send()
	}
}

// Incr Increases metric counter by 1
func Incr(name string, tags []string) {
	Count(name, 1, tags)
}

func Gauge(name string, value float64, tags []string) {
	err := statsDClient.Gauge(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().AnErr("Error occurred while doing statsd gauge", err).Send()
	}
}
