package runner

import (
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cachebench/config"
	"cachebench/retry"
	"cachebench/stats"
	"cachebench/workload"
)

// fakeClient is an in-memory stand-in for a cache cluster.
type fakeClient struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: make(map[string]string)}
}

func (c *fakeClient) seedKeys(n int) {
	keys := workload.NewKeySpace(n)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 1; i <= n; i++ {
		c.data[keys.Key(i)] = "seeded"
	}
}

func (c *fakeClient) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, found := c.data[key]
	return value, found, nil
}

func (c *fakeClient) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeClient) Ping(context.Context) error { return nil }
func (c *fakeClient) Close() error               { return nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Duration = 1
	cfg.Connections = 4
	cfg.SpawnRate = 100
	cfg.RequestRate = 200
	cfg.SetKeys = 10
	cfg.RetryAttempts = 0
	return &cfg
}

var _ = Describe("Runner", func() {
	Context("RunLocal", func() {
		It("generates load for the configured duration and reports it", func() {
			cfg := testConfig()
			client := newFakeClient()
			client.seedKeys(cfg.SetKeys)

			collector := stats.NewCollector(discardLogger())
			resultsFile := filepath.Join(GinkgoT().TempDir(), "results.csv")
			r := New(cfg, client, collector, discardLogger(), io.Discard)
			r.ResultsFile = resultsFile

			Expect(r.RunLocal(context.Background())).To(Succeed())

			snap := collector.Snapshot()
			Expect(snap.TotalRequests).To(BeNumerically(">", 0))
			Expect(snap.Entries).To(HaveKey("get_value_default"))
			Expect(snap.Entries).To(HaveKey("get_value_dummy"))
			// every miss forces a write-back
			Expect(snap.Entries["set_value_dummy"].Requests).To(
				Equal(snap.Entries["get_value_dummy"].Requests))

			Expect(resultsFile).To(BeAnExistingFile())
		})

		It("refuses a hit workload with no seeded key space", func() {
			cfg := testConfig()
			cfg.HitRate = 1.0
			cfg.SetKeys = 0

			collector := stats.NewCollector(discardLogger())
			r := New(cfg, newFakeClient(), collector, discardLogger(), io.Discard)

			Expect(r.RunLocal(context.Background())).To(MatchError(config.ErrConfiguration))
		})
	})

	Context("step", func() {
		runStep := func(cfg *config.Config, client *fakeClient, hitRate float64) stats.Snapshot {
			cfg.HitRate = hitRate
			collector := stats.NewCollector(discardLogger())
			go collector.Run()

			r := New(cfg, client, collector, discardLogger(), io.Discard)
			keys := workload.NewKeySpace(cfg.SetKeys)
			gen, err := workload.NewGenerator(cfg.HitRate, cfg.ValueSize, cfg.TTLDuration(), keys, rand.New(rand.NewSource(3)))
			Expect(err).NotTo(HaveOccurred())
			exec := retry.NewExecutor(cfg.RetryAttempts, cfg.RetryWaitDuration())

			r.step(gen, exec, workload.Value(cfg.ValueSize))

			collector.Close()
			return collector.Snapshot()
		}

		It("records a hit when the seeded key is present", func() {
			cfg := testConfig()
			client := newFakeClient()
			client.seedKeys(cfg.SetKeys)

			snap := runStep(cfg, client, 1.0)

			Expect(snap.TotalRequests).To(Equal(int64(1)))
			Expect(snap.CacheHits).To(Equal(int64(1)))
			Expect(snap.Entries).To(HaveKey("get_value_default"))
			Expect(snap.Entries).NotTo(HaveKey("set_value_default"))
		})

		It("re-seeds a hit key that expired server-side", func() {
			cfg := testConfig()
			client := newFakeClient() // nothing seeded: every GET misses

			snap := runStep(cfg, client, 1.0)

			Expect(snap.CacheHits).To(BeZero())
			Expect(snap.Entries).To(HaveKey("get_value_default"))
			Expect(snap.Entries).To(HaveKey("set_value_default"))
		})

		It("writes a fresh key on a miss decision", func() {
			cfg := testConfig()
			client := newFakeClient()
			client.seedKeys(cfg.SetKeys)

			snap := runStep(cfg, client, 0.0)

			Expect(snap.CacheHits).To(BeZero())
			Expect(snap.Entries).To(HaveKey("get_value_dummy"))
			Expect(snap.Entries).To(HaveKey("set_value_dummy"))

			client.mu.Lock()
			defer client.mu.Unlock()
			Expect(len(client.data)).To(Equal(cfg.SetKeys + 1))
		})
	})
})

var _ = Describe("SplitUsers", func() {
	It("divides users evenly", func() {
		Expect(SplitUsers(8, 4)).To(Equal([]int{2, 2, 2, 2}))
	})

	It("spreads the remainder over the first workers", func() {
		Expect(SplitUsers(10, 3)).To(Equal([]int{4, 3, 3}))
	})

	It("hands out zero shares when there are more workers than users", func() {
		Expect(SplitUsers(2, 4)).To(Equal([]int{1, 1, 0, 0}))
	})

	It("returns nothing for a nonsensical worker count", func() {
		Expect(SplitUsers(5, 0)).To(BeNil())
	})
})
