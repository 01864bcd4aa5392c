package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cachebench/config"
	"cachebench/conn"
	"cachebench/tracing"
	"cachebench/workload"
)

func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed the cache key space before a load test",
	}

	for _, b := range backends {
		b := b
		fv := newFlagValues()
		leaf := &cobra.Command{
			Use:   b.name,
			Short: fmt.Sprintf("Seed a %s", b.short),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := fv.resolve(cmd, b.cacheType)
				if err != nil {
					return err
				}
				return runInit(cmd, cfg)
			},
		}
		fv.addCommonFlags(leaf)
		cmd.AddCommand(leaf)
	}

	return cmd
}

func runInit(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	log := newLogger(cfg)

	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	client, err := conn.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	log.Infof("populating cache with %d keys", cfg.SetKeys)

	seeder := &workload.Seeder{
		Keys:  workload.NewKeySpace(cfg.SetKeys),
		Value: workload.Value(cfg.ValueSize),
		TTL:   cfg.TTLDuration(),
		Out:   cmd.ErrOrStderr(),
	}
	if err := seeder.Seed(ctx, client); err != nil {
		return err
	}

	log.Info("cache initialized")
	return nil
}
