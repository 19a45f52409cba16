// Package config reads the YAML configuration shared by the trellis
// commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Adapter kinds.
const (
	AdapterNumbers = "numbers"
	AdapterJSON    = "json"
	AdapterProto   = "proto"
	AdapterSQL     = "sql"
)

type Config struct {
	// Schema is the path of the schema SDL. The numbers adapter brings its
	// own schema.
	Schema  string  `yaml:"schema"`
	Adapter Adapter `yaml:"adapter"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	OTel    OTel    `yaml:"otel"`
	Batch   Batch   `yaml:"batch"`
}

type Adapter struct {
	Kind string `yaml:"kind"`
	// Data is the document read by the json and proto adapters.
	Data string `yaml:"data"`
	// Package names the protobuf package of the proto adapter.
	Package string `yaml:"package"`
	// Mapping and DSN configure the sql adapter.
	Mapping string `yaml:"mapping"`
	DSN     string `yaml:"dsn"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	Pretty       bool          `yaml:"pretty"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CORS         bool          `yaml:"cors"`
	// RateLimit is the sustained number of queries per second; zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
	Metrics   bool    `yaml:"metrics"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type OTel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type Batch struct {
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Adapter: Adapter{Kind: AdapterNumbers},
		Server: Server{
			Addr:         ":8080",
			Timeout:      30 * time.Second,
			MaxBodyBytes: 1 << 20,
			Burst:        1,
		},
		Log:   Log{Level: "info", Format: "text"},
		OTel:  OTel{Service: "trellis"},
		Batch: Batch{Workers: 4},
	}
}

// Load reads the file at path over the defaults. Relative paths inside the
// file are resolved against its directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for _, p := range []*string{&cfg.Schema, &cfg.Adapter.Data, &cfg.Adapter.Mapping} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults, rejecting unknown keys.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error
	switch c.Adapter.Kind {
	case AdapterNumbers:
	case AdapterJSON:
		if c.Schema == "" || c.Adapter.Data == "" {
			errs = append(errs, errors.New("adapter json requires schema and adapter.data"))
		}
	case AdapterProto:
		if c.Schema == "" || c.Adapter.Data == "" {
			errs = append(errs, errors.New("adapter proto requires schema and adapter.data"))
		}
	case AdapterSQL:
		if c.Schema == "" || c.Adapter.Mapping == "" || c.Adapter.DSN == "" {
			errs = append(errs, errors.New("adapter sql requires schema, adapter.mapping and adapter.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown adapter kind %q", c.Adapter.Kind))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		errs = append(errs, errors.New("server.burst must be at least 1 when rate limiting"))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, errors.New("batch.workers must be at least 1"))
	}
	return errors.Join(errs...)
}
