package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAML schema mirroring the sectioned config file format. Unknown keys are
// rejected so a typo'd knob cannot silently fall back to its default.

type yamlConnection struct {
	Host        *string `yaml:"host"`
	Port        *int    `yaml:"port"`
	SSL         *bool   `yaml:"ssl"`
	SSLCertReqs *string `yaml:"ssl_cert_reqs"`
	SSLCACerts  *string `yaml:"ssl_ca_certs"`
	Username    *string `yaml:"username"`
	Password    *string `yaml:"password"`
	Timeout     *int    `yaml:"timeout"`
	PoolSize    *int    `yaml:"pool_size"`
}

type yamlLoadtest struct {
	HitRate     *float64 `yaml:"hit_rate"`
	ValueSize   *int     `yaml:"value_size"`
	TTL         *int     `yaml:"ttl"`
	RequestRate *float64 `yaml:"request_rate"`
	SetKeys     *int     `yaml:"set_keys"`
}

type yamlRetry struct {
	Attempts *int `yaml:"attempts"`
	Wait     *int `yaml:"wait"`
}

type yamlOtel struct {
	TracingEnabled   *bool   `yaml:"tracing_enabled"`
	MetricsEnabled   *bool   `yaml:"metrics_enabled"`
	ExporterEndpoint *string `yaml:"exporter_endpoint"`
	ServiceName      *string `yaml:"service_name"`
}

type yamlRunner struct {
	Duration       *int    `yaml:"duration"`
	Connections    *int    `yaml:"connections"`
	SpawnRate      *int    `yaml:"spawn_rate"`
	ClusterMode    *string `yaml:"cluster_mode"`
	MasterBindHost *string `yaml:"master_bind_host"`
	MasterBindPort *int    `yaml:"master_bind_port"`
	NumWorkers     *int    `yaml:"num_workers"`
}

type yamlFile struct {
	CacheType  *string         `yaml:"cache_type"`
	Connection *yamlConnection `yaml:"connection"`
	Loadtest   *yamlLoadtest   `yaml:"loadtest"`
	Retry      *yamlRetry      `yaml:"retry"`
	Otel       *yamlOtel       `yaml:"opentelemetry"`
	Runner     *yamlRunner     `yaml:"runner"`
}

// LoadYAML returns base overlaid with the values present in the file.
// Environment overrides are not applied here; callers run ApplyEnv after.
func LoadYAML(path string, base Config) (Config, error) {
	cfg := base

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read config file: %v", ErrConfiguration, err)
	}

	var file yamlFile
	if err := unmarshalStrict(raw, &file); err != nil {
		return cfg, fmt.Errorf("%w: config file %s: %v", ErrConfiguration, path, err)
	}

	overlayString(&cfg.CacheType, file.CacheType)
	if c := file.Connection; c != nil {
		overlayString(&cfg.CacheHost, c.Host)
		overlayInt(&cfg.CachePort, c.Port)
		overlayBool(&cfg.SSL, c.SSL)
		overlayString(&cfg.SSLCertReqs, c.SSLCertReqs)
		overlayString(&cfg.SSLCACerts, c.SSLCACerts)
		overlayString(&cfg.CacheUsername, c.Username)
		overlayString(&cfg.CachePassword, c.Password)
		overlayInt(&cfg.QueryTimeout, c.Timeout)
		overlayInt(&cfg.ConnectionsPool, c.PoolSize)
	}
	if l := file.Loadtest; l != nil {
		overlayFloat(&cfg.HitRate, l.HitRate)
		overlayInt(&cfg.ValueSize, l.ValueSize)
		overlayInt(&cfg.TTL, l.TTL)
		overlayFloat(&cfg.RequestRate, l.RequestRate)
		overlayInt(&cfg.SetKeys, l.SetKeys)
	}
	if r := file.Retry; r != nil {
		overlayInt(&cfg.RetryAttempts, r.Attempts)
		overlayInt(&cfg.RetryWait, r.Wait)
	}
	if o := file.Otel; o != nil {
		overlayBool(&cfg.OtelTracingEnabled, o.TracingEnabled)
		overlayBool(&cfg.OtelMetricsEnabled, o.MetricsEnabled)
		overlayString(&cfg.OtelExporterEndpoint, o.ExporterEndpoint)
		overlayString(&cfg.OtelServiceName, o.ServiceName)
	}
	if r := file.Runner; r != nil {
		overlayInt(&cfg.Duration, r.Duration)
		overlayInt(&cfg.Connections, r.Connections)
		overlayInt(&cfg.SpawnRate, r.SpawnRate)
		overlayString(&cfg.ClusterMode, r.ClusterMode)
		overlayString(&cfg.MasterBindHost, r.MasterBindHost)
		overlayInt(&cfg.MasterBindPort, r.MasterBindPort)
		overlayInt(&cfg.NumWorkers, r.NumWorkers)
	}

	return cfg, nil
}

func unmarshalStrict(raw []byte, dest interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	err := dec.Decode(dest)
	if errors.Is(err, io.EOF) {
		// empty file, nothing to overlay
		return nil
	}
	return err
}

func overlayString(dest *string, v *string) {
	if v != nil {
		*dest = *v
	}
}

func overlayInt(dest *int, v *int) {
	if v != nil {
		*dest = *v
	}
}

func overlayFloat(dest *float64, v *float64) {
	if v != nil {
		*dest = *v
	}
}

func overlayBool(dest *bool, v *bool) {
	if v != nil {
		*dest = *v
	}
}
