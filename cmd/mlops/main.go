package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/config"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/hub"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/logger"
	"github.com/arsenicraghav/tourism-mlops-wellness/pkg/metric"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	metric.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mlops",
		Short:         "Tourism wellness package purchase prediction pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("app-name", "tourism-mlops", "Application name in logs and metrics")
	pf.String("app-env", "local", "Deployment environment")
	pf.String("log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	pf.String("metric-addr", "", "StatsD agent address; metrics are off when empty")
	pf.String("hub-url", hub.DefaultURL, "Hub REST endpoint, or s3://bucket/prefix, gs://bucket/prefix, file:///dir")
	pf.String("hf-token", "", "Hub access token")

	root.AddCommand(
		newRegisterDatasetCommand(),
		newPrepareCommand(),
		newTrainCommand(),
		newPublishModelCommand(),
		newPushSpaceCommand(),
		newServeCommand(),
	)
	return root
}

// setup loads configuration for cmd, initialises logging and metrics and
// checks the keys the stage needs.
func setup(cmd *cobra.Command, required ...string) (*config.Configs, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger.Init(cfg)
	metric.Init(cfg)
	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Debug().Msgf(format, args...)
	})); err != nil {
		log.Warn().Err(err).Msg("Could not set GOMAXPROCS")
	}
	if err := cfg.Require(withoutToken(cfg, required)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withoutToken drops hf_token from keys when the hub is not a REST endpoint.
func withoutToken(cfg *config.Configs, keys []string) []string {
	if cfg.HubURL == "" || strings.HasPrefix(cfg.HubURL, "http://") || strings.HasPrefix(cfg.HubURL, "https://") {
		return keys
	}
	out := keys[:0:0]
	for _, k := range keys {
		if k != "hf_token" {
			out = append(out, k)
		}
	}
	return out
}
