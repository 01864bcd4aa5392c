package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cachebench/config"
)

var _ = Describe("Config", func() {
	Context("defaults", func() {
		It("match the documented flag defaults", func() {
			cfg := config.Default()

			Expect(cfg.CacheHost).To(Equal("localhost"))
			Expect(cfg.CachePort).To(Equal(6379))
			Expect(cfg.CacheType).To(Equal(config.TypeRedisCluster))
			Expect(cfg.HitRate).To(Equal(0.5))
			Expect(cfg.SetKeys).To(Equal(1000))
			Expect(cfg.RetryAttempts).To(Equal(3))
			Expect(cfg.RetryWaitDuration()).To(Equal(2 * time.Second))
			Expect(cfg.TestDuration()).To(Equal(60 * time.Second))
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Context("validation", func() {
		var cfg config.Config

		BeforeEach(func() {
			cfg = config.Default()
		})

		It("rejects hit rates outside [0, 1]", func() {
			cfg.HitRate = 1.5
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})

		It("rejects a hit workload without a seeded key space", func() {
			cfg.HitRate = 1.0
			cfg.SetKeys = 0
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})

		It("allows a pure miss workload without seeded keys", func() {
			cfg.HitRate = 0.0
			cfg.SetKeys = 0
			Expect(cfg.Validate()).To(Succeed())
		})

		It("rejects unknown cache types", func() {
			cfg.CacheType = "memcached"
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})

		It("rejects unknown cluster modes", func() {
			cfg.ClusterMode = "primary"
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})

		It("rejects bad ssl-cert-reqs values", func() {
			cfg.SSLCertReqs = "maybe"
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})

		It("requires master binding details in cluster mode", func() {
			cfg.ClusterMode = config.ModeMaster
			cfg.MasterBindHost = ""
			Expect(cfg.Validate()).To(MatchError(config.ErrConfiguration))
		})
	})

	Context("environment overrides", func() {
		var cfg config.Config

		BeforeEach(func() {
			cfg = config.Default()
		})

		It("override individual fields", func() {
			GinkgoT().Setenv("HIT_RATE", "0.9")
			GinkgoT().Setenv("SET_KEYS", "50")
			GinkgoT().Setenv("SSL", "on")
			GinkgoT().Setenv("CACHE_TYPE", "valkey")

			Expect(cfg.ApplyEnv()).To(Succeed())
			Expect(cfg.HitRate).To(Equal(0.9))
			Expect(cfg.SetKeys).To(Equal(50))
			Expect(cfg.SSL).To(BeTrue())
			Expect(cfg.CacheType).To(Equal(config.TypeValkey))
			Expect(cfg.RequestType()).To(Equal("Valkey"))
		})

		It("honor the standard OTLP endpoint variable", func() {
			GinkgoT().Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")

			Expect(cfg.ApplyEnv()).To(Succeed())
			Expect(cfg.OtelExporterEndpoint).To(Equal("http://collector:4317"))
		})

		It("reject values of the wrong shape", func() {
			GinkgoT().Setenv("SET_KEYS", "plenty")

			Expect(cfg.ApplyEnv()).To(MatchError(config.ErrConfiguration))
		})
	})
})

var _ = Describe("LoadYAML", func() {
	writeFile := func(content string) string {
		path := filepath.Join(GinkgoT().TempDir(), "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("overlays file values onto the base", func() {
		path := writeFile(`
cache_type: valkey_cluster
connection:
  host: cache.internal
  port: 7000
  pool_size: 20
loadtest:
  hit_rate: 0.8
  set_keys: 5000
retry:
  attempts: 5
  wait: 4
runner:
  duration: 120
  connections: 8
`)

		cfg, err := config.LoadYAML(path, config.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CacheType).To(Equal(config.TypeValkeyCluster))
		Expect(cfg.CacheHost).To(Equal("cache.internal"))
		Expect(cfg.CachePort).To(Equal(7000))
		Expect(cfg.ConnectionsPool).To(Equal(20))
		Expect(cfg.HitRate).To(Equal(0.8))
		Expect(cfg.SetKeys).To(Equal(5000))
		Expect(cfg.RetryAttempts).To(Equal(5))
		Expect(cfg.RetryWait).To(Equal(4))
		Expect(cfg.Duration).To(Equal(120))
		Expect(cfg.Connections).To(Equal(8))

		// untouched fields keep their base values
		Expect(cfg.RequestRate).To(Equal(1.0))
		Expect(cfg.TTL).To(Equal(60))
	})

	It("keeps the base cache type when the file omits it", func() {
		path := writeFile(`
loadtest:
  hit_rate: 0.1
`)

		base := config.Default()
		base.CacheType = config.TypeRedis
		cfg, err := config.LoadYAML(path, base)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.CacheType).To(Equal(config.TypeRedis))
		Expect(cfg.HitRate).To(Equal(0.1))
	})

	It("rejects unknown keys", func() {
		path := writeFile(`
loadtest:
  hit_rte: 0.5
`)

		_, err := config.LoadYAML(path, config.Default())
		Expect(err).To(MatchError(config.ErrConfiguration))
	})

	It("rejects a missing file", func() {
		_, err := config.LoadYAML("/nonexistent/config.yaml", config.Default())
		Expect(err).To(MatchError(config.ErrConfiguration))
	})

	It("accepts an empty file", func() {
		path := writeFile("")

		cfg, err := config.LoadYAML(path, config.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.Default()))
	})
})
