package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cachebench/config"
	"cachebench/conn"
	"cachebench/runner"
	"cachebench/stats"
	"cachebench/tracing"
)

func newLoadtestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Run a load test",
	}

	for _, b := range backends {
		b := b
		fv := newFlagValues()
		leaf := &cobra.Command{
			Use:   b.name,
			Short: fmt.Sprintf("Run a load test against a %s", b.short),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := fv.resolve(cmd, b.cacheType)
				if err != nil {
					return err
				}
				return runLoadtest(cmd, cfg)
			},
		}
		fv.addCommonFlags(leaf)
		cmd.AddCommand(leaf)
	}

	return cmd
}

func runLoadtest(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	log := newLogger(cfg)

	if cfg.OtelMetricsEnabled {
		log.Warn("client-native OTel metrics are not available for this client; ignoring")
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	collector := stats.NewCollector(log)
	r := runner.New(cfg, nil, collector, log, cmd.OutOrStdout())
	if cfg.OtelTracingEnabled {
		r.OnAttempt = tracing.AttemptObserver(cfg)
	}

	// The master only coordinates; it never touches the cache itself.
	if cfg.ClusterMode == config.ModeMaster {
		return r.RunMaster(ctx)
	}

	client, err := conn.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()
	r.Client = client

	log.Infof("connected to %s at %s", cfg.CacheType, cfg.Addr())

	if cfg.ClusterMode == config.ModeWorker {
		return r.RunWorker(ctx)
	}
	return r.RunLocal(ctx)
}
