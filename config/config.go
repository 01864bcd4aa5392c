package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backend types, selected by the CLI subcommand or CACHE_TYPE.
const (
	TypeRedisCluster  = "redis_cluster"
	TypeValkeyCluster = "valkey_cluster"
	TypeRedis         = "redis"
	TypeValkey        = "valkey"
)

// Cluster roles for distributed runs.
const (
	ModeLocal  = ""
	ModeMaster = "master"
	ModeWorker = "worker"
)

// ErrConfiguration marks errors that must abort the process before any
// load is generated.
var ErrConfiguration = errors.New("configuration error")

// Config holds every knob of a run. It is resolved once at startup
// (env > CLI flag > default, or env > YAML > default with --config)
// and treated as immutable afterwards.
type Config struct {
	// Connection
	CacheHost       string
	CachePort       int
	SSL             bool
	SSLCertReqs     string
	SSLCACerts      string
	CacheUsername   string
	CachePassword   string
	QueryTimeout    int // seconds
	ConnectionsPool int
	CacheType       string

	// Workload
	HitRate     float64
	ValueSize   int // kilobytes
	TTL         int // seconds
	RequestRate float64
	SetKeys     int

	// Retry
	RetryAttempts int
	RetryWait     int // seconds, backoff cap

	// OpenTelemetry
	OtelTracingEnabled   bool
	OtelMetricsEnabled   bool
	OtelExporterEndpoint string
	OtelServiceName      string

	// Runner
	Duration       int // seconds
	Connections    int
	SpawnRate      int
	ClusterMode    string
	MasterBindHost string
	MasterBindPort int
	NumWorkers     int
}

func Default() Config {
	return Config{
		CacheHost:            "localhost",
		CachePort:            6379,
		QueryTimeout:         1,
		ConnectionsPool:      10,
		CacheType:            TypeRedisCluster,
		HitRate:              0.5,
		ValueSize:            1,
		TTL:                  60,
		RequestRate:          1.0,
		SetKeys:              1000,
		RetryAttempts:        3,
		RetryWait:            2,
		OtelExporterEndpoint: "http://localhost:4317",
		OtelServiceName:      "cachebench",
		Duration:             60,
		Connections:          1,
		SpawnRate:            1,
		MasterBindHost:       "127.0.0.1",
		MasterBindPort:       5557,
		NumWorkers:           1,
	}
}

func (c *Config) QueryTimeoutDuration() time.Duration { return time.Duration(c.QueryTimeout) * time.Second }
func (c *Config) TTLDuration() time.Duration          { return time.Duration(c.TTL) * time.Second }
func (c *Config) RetryWaitDuration() time.Duration    { return time.Duration(c.RetryWait) * time.Second }
func (c *Config) TestDuration() time.Duration         { return time.Duration(c.Duration) * time.Second }

// RequestType labels stats records and trace spans by backend family.
func (c *Config) RequestType() string {
	if c.CacheType == TypeValkey || c.CacheType == TypeValkeyCluster {
		return "Valkey"
	}
	return "Redis"
}

func (c *Config) Clustered() bool {
	return c.CacheType == TypeRedisCluster || c.CacheType == TypeValkeyCluster
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.CacheHost, c.CachePort)
}

// ApplyEnv overrides fields from the environment. Names are the
// upper-cased snake_case flag names; the OTel endpoint additionally
// honors the standard OTEL_EXPORTER_OTLP_ENDPOINT.
func (c *Config) ApplyEnv() error {
	var err error
	set := func(e error) {
		if err == nil {
			err = e
		}
	}

	set(envString("CACHE_HOST", &c.CacheHost))
	set(envInt("CACHE_PORT", &c.CachePort))
	set(envBool("SSL", &c.SSL))
	set(envString("SSL_CERT_REQS", &c.SSLCertReqs))
	set(envString("SSL_CA_CERTS", &c.SSLCACerts))
	set(envString("CACHE_USERNAME", &c.CacheUsername))
	set(envString("CACHE_PASSWORD", &c.CachePassword))
	set(envInt("QUERY_TIMEOUT", &c.QueryTimeout))
	set(envInt("CONNECTIONS_POOL", &c.ConnectionsPool))
	set(envString("CACHE_TYPE", &c.CacheType))
	set(envFloat("HIT_RATE", &c.HitRate))
	set(envInt("VALUE_SIZE", &c.ValueSize))
	set(envInt("TTL", &c.TTL))
	set(envFloat("REQUEST_RATE", &c.RequestRate))
	set(envInt("SET_KEYS", &c.SetKeys))
	set(envInt("RETRY_ATTEMPTS", &c.RetryAttempts))
	set(envInt("RETRY_WAIT", &c.RetryWait))
	set(envBool("OTEL_TRACING_ENABLED", &c.OtelTracingEnabled))
	set(envBool("OTEL_METRICS_ENABLED", &c.OtelMetricsEnabled))
	set(envString("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OtelExporterEndpoint))
	set(envString("OTEL_SERVICE_NAME", &c.OtelServiceName))
	set(envInt("DURATION", &c.Duration))
	set(envInt("CONNECTIONS", &c.Connections))
	set(envInt("SPAWN_RATE", &c.SpawnRate))
	set(envString("CLUSTER_MODE", &c.ClusterMode))
	set(envString("MASTER_BIND_HOST", &c.MasterBindHost))
	set(envInt("MASTER_BIND_PORT", &c.MasterBindPort))
	set(envInt("NUM_WORKERS", &c.NumWorkers))

	return err
}

// Validate rejects configurations the runner must not start with.
func (c *Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
	}

	switch c.CacheType {
	case TypeRedisCluster, TypeValkeyCluster, TypeRedis, TypeValkey:
	default:
		return fail("unknown cache type %q", c.CacheType)
	}
	if c.CacheHost == "" {
		return fail("cache host must be set")
	}
	if c.CachePort < 1 || c.CachePort > 65535 {
		return fail("cache port %d outside 1-65535", c.CachePort)
	}
	if c.HitRate < 0 || c.HitRate > 1 {
		return fail("hit rate %v outside [0, 1]", c.HitRate)
	}
	if c.HitRate > 0 && c.SetKeys < 1 {
		return fail("hit rate %v requires a seeded key space (set-keys >= 1)", c.HitRate)
	}
	if c.ValueSize < 1 {
		return fail("value size must be at least 1 KB")
	}
	if c.TTL < 1 {
		return fail("ttl must be at least 1 second")
	}
	if c.RequestRate <= 0 {
		return fail("request rate must be positive")
	}
	if c.QueryTimeout < 0 {
		return fail("query timeout must not be negative")
	}
	if c.ConnectionsPool < 1 {
		return fail("connection pool size must be at least 1")
	}
	if c.RetryAttempts < 0 || c.RetryWait < 0 {
		return fail("retry attempts and retry wait must not be negative")
	}
	if c.Duration < 1 {
		return fail("duration must be at least 1 second")
	}
	if c.Connections < 1 || c.SpawnRate < 1 {
		return fail("connections and spawn rate must be at least 1")
	}
	switch c.SSLCertReqs {
	case "", "none", "optional", "required":
	default:
		return fail("ssl-cert-reqs %q must be none, optional or required", c.SSLCertReqs)
	}
	switch c.ClusterMode {
	case ModeLocal, ModeMaster, ModeWorker:
	default:
		return fail("cluster mode %q must be master or worker", c.ClusterMode)
	}
	if c.ClusterMode != ModeLocal {
		if c.MasterBindHost == "" {
			return fail("master bind host is required in cluster mode")
		}
		if c.MasterBindPort < 1 || c.MasterBindPort > 65535 {
			return fail("master bind port %d outside 1-65535", c.MasterBindPort)
		}
		if c.NumWorkers < 1 {
			return fail("num workers must be at least 1")
		}
	}

	return nil
}

func envString(name string, dest *string) error {
	if v, ok := os.LookupEnv(name); ok {
		*dest = v
	}
	return nil
}

func envInt(name string, dest *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrConfiguration, name, v)
	}
	*dest = n
	return nil
}

func envFloat(name string, dest *float64) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", ErrConfiguration, name, v)
	}
	*dest = f
	return nil
}

func envBool(name string, dest *bool) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	b, err := parseBool(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a truth value", ErrConfiguration, name, v)
	}
	*dest = b
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", v)
}
