package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"cachebench/config"
)

// flagValues collects the CLI flag state for one leaf command. Each leaf
// gets its own copy so the flag sets stay independent.
type flagValues struct {
	cfg        config.Config
	configPath string
}

func newFlagValues() *flagValues {
	return &flagValues{cfg: config.Default()}
}

// addCommonFlags registers the flag surface shared by every backend
// leaf command.
func (fv *flagValues) addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	c := &fv.cfg

	f.StringVarP(&fv.configPath, "config", "C", "", "path to YAML configuration file; cannot be combined with other flags")
	f.StringVarP(&c.CacheHost, "fqdn", "f", c.CacheHost, "hostname of the cache server")
	f.IntVarP(&c.CachePort, "port", "p", c.CachePort, "port of the cache server")
	f.BoolVarP(&c.SSL, "ssl", "x", c.SSL, "use SSL for the connection")
	f.StringVar(&c.SSLCertReqs, "ssl-cert-reqs", c.SSLCertReqs, "SSL certificate verification mode (none/optional/required)")
	f.StringVar(&c.SSLCACerts, "ssl-ca-certs", c.SSLCACerts, "path to CA certificate file for SSL verification")
	f.StringVar(&c.CacheUsername, "cache-username", c.CacheUsername, "username for cache authentication (ACL)")
	f.StringVar(&c.CachePassword, "cache-password", c.CachePassword, "password for cache authentication")
	f.IntVarP(&c.QueryTimeout, "query-timeout", "q", c.QueryTimeout, "query timeout in seconds")
	f.IntVarP(&c.ConnectionsPool, "connections-pool", "l", c.ConnectionsPool, "number of connections in the pool")
	f.Float64VarP(&c.HitRate, "hit-rate", "r", c.HitRate, "target cache hit rate between 0 and 1")
	f.IntVarP(&c.ValueSize, "value-size", "k", c.ValueSize, "size of the values in KB")
	f.IntVarP(&c.TTL, "ttl", "t", c.TTL, "time-to-live for the keys in seconds")
	f.Float64Var(&c.RequestRate, "request-rate", c.RequestRate, "request rate per user per second")
	f.IntVarP(&c.SetKeys, "set-keys", "s", c.SetKeys, "number of keys to seed in the cache")
	f.IntVar(&c.RetryAttempts, "retry-count", c.RetryAttempts, "number of retry attempts for cache operations")
	f.IntVar(&c.RetryWait, "retry-wait", c.RetryWait, "maximum wait (cap) for exponential backoff between retries in seconds")
	f.BoolVar(&c.OtelTracingEnabled, "otel-tracing-enabled", c.OtelTracingEnabled, "enable OpenTelemetry tracing")
	f.BoolVar(&c.OtelMetricsEnabled, "otel-metrics-enabled", c.OtelMetricsEnabled, "enable client-native OpenTelemetry metrics (accepted, unsupported)")
	f.StringVar(&c.OtelExporterEndpoint, "otel-exporter-endpoint", c.OtelExporterEndpoint, "OTLP exporter endpoint")
	f.StringVar(&c.OtelServiceName, "otel-service-name", c.OtelServiceName, "OpenTelemetry service name")
	f.IntVarP(&c.Duration, "duration", "d", c.Duration, "duration of the test in seconds")
	f.IntVarP(&c.Connections, "connections", "c", c.Connections, "number of concurrent simulated users")
	f.IntVarP(&c.SpawnRate, "spawn-rate", "n", c.SpawnRate, "users spawned per second")
	f.StringVar(&c.ClusterMode, "cluster-mode", c.ClusterMode, "distributed mode: master or worker")
	f.StringVar(&c.MasterBindHost, "master-bind-host", c.MasterBindHost, "hostname of the master node")
	f.IntVar(&c.MasterBindPort, "master-bind-port", c.MasterBindPort, "port of the master node")
	f.IntVar(&c.NumWorkers, "num-workers", c.NumWorkers, "number of workers the master waits for")
}

// resolve produces the final immutable config for a leaf command.
// Priority without --config: env > flag > default. With --config:
// env > YAML > default, and mixing --config with other flags is an
// error.
func (fv *flagValues) resolve(cmd *cobra.Command, cacheType string) (*config.Config, error) {
	var cfg config.Config

	if fv.configPath != "" {
		var conflicting []string
		cmd.Flags().Visit(func(f *pflag.Flag) {
			if f.Name != "config" {
				conflicting = append(conflicting, "--"+f.Name)
			}
		})
		if len(conflicting) > 0 {
			sort.Strings(conflicting)
			return nil, fmt.Errorf("%w: --config cannot be combined with other flags: %s",
				config.ErrConfiguration, strings.Join(conflicting, ", "))
		}

		base := config.Default()
		base.CacheType = cacheType
		loaded, err := config.LoadYAML(fv.configPath, base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = fv.cfg
		cfg.CacheType = cacheType
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// backends maps leaf command names to cache types. The bare names mean
// cluster mode.
var backends = []struct {
	name      string
	cacheType string
	short     string
}{
	{"redis", config.TypeRedisCluster, "Redis cluster"},
	{"valkey", config.TypeValkeyCluster, "Valkey cluster"},
	{"redis-standalone", config.TypeRedis, "standalone Redis"},
	{"valkey-standalone", config.TypeValkey, "standalone Valkey"},
}
