package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cachebench/config"
)

var rootCmd = &cobra.Command{
	Use:           "cachebench",
	Short:         "Load testing for Redis and Valkey caches",
	Long:          "cachebench generates a hit-rate-weighted GET/SET workload against Redis or Valkey, standalone or clustered, and reports hit rate, throughput and latency.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newLoadtestCommand())
	rootCmd.AddCommand(newInitCommand())
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Fatal("cachebench failed")
	}
}

// newLogger builds the process logger: JSON to stderr with the run's
// backend and role attached to every line.
func newLogger(cfg *config.Config) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})

	mode := cfg.ClusterMode
	if mode == config.ModeLocal {
		mode = "local"
	}
	return l.WithFields(logrus.Fields{
		"cache_type":   cfg.CacheType,
		"cluster_mode": mode,
	})
}
