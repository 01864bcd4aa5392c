package workload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"cachebench/conn"
)

// Seeder populates the key space before a test run. Keys that already
// hold a value are left alone so repeated init runs don't reset TTLs.
type Seeder struct {
	Keys  *KeySpace
	Value string
	TTL   time.Duration
	Out   io.Writer
}

func (s *Seeder) Seed(ctx context.Context, client conn.Client) error {
	bar := progressbar.NewOptions(s.Keys.Size(),
		progressbar.OptionSetWriter(s.Out),
		progressbar.OptionSetDescription("seeding"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for i := 1; i <= s.Keys.Size(); i++ {
		key := s.Keys.Key(i)
		_, found, err := client.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("seed: get %s: %w", key, err)
		}
		if !found {
			if err := client.Set(ctx, key, s.Value, s.TTL); err != nil {
				return fmt.Errorf("seed: set %s: %w", key, err)
			}
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	return nil
}
