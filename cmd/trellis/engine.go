package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	config "github.com/hanpama/trellis/internal/config"
	executor "github.com/hanpama/trellis/internal/executor"
	jsonadapter "github.com/hanpama/trellis/internal/jsonadapter"
	numbers "github.com/hanpama/trellis/internal/numbers"
	protoadapter "github.com/hanpama/trellis/internal/protoadapter"
	protoreg "github.com/hanpama/trellis/internal/protoreg"
	schema "github.com/hanpama/trellis/internal/schema"
	sqladapter "github.com/hanpama/trellis/internal/sqladapter"
)

// defaultProtoPackage is used when the configuration names none.
const defaultProtoPackage = "trellis"

func loadSchema(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return schema.Build(filepath.Base(path), string(data))
}

// configuredSchema returns the schema of the configured adapter.
func configuredSchema(cfg *config.Config) (*schema.Schema, error) {
	if cfg.Schema == "" && cfg.Adapter.Kind == config.AdapterNumbers {
		return numbers.Schema()
	}
	return loadSchema(cfg.Schema)
}

func protoPackage(cfg *config.Config) string {
	if cfg.Adapter.Package != "" {
		return cfg.Adapter.Package
	}
	return defaultProtoPackage
}

// openExecutor builds the configured adapter and an executor over it. The
// returned func releases what the adapter holds open.
func openExecutor(cfg *config.Config) (*executor.Executor, func(), error) {
	s, err := configuredSchema(cfg)
	if err != nil {
		return nil, nil, err
	}
	nop := func() {}

	switch cfg.Adapter.Kind {
	case config.AdapterNumbers:
		a, err := numbers.New()
		if err != nil {
			return nil, nil, err
		}
		return executor.NewExecutor(a, s), nop, nil

	case config.AdapterJSON:
		a, err := jsonadapter.Open(s, cfg.Adapter.Data)
		if err != nil {
			return nil, nil, err
		}
		return executor.NewExecutor(a, s), nop, nil

	case config.AdapterProto:
		reg, err := protoreg.Build(s, protoPackage(cfg))
		if err != nil {
			return nil, nil, err
		}
		data, err := os.ReadFile(cfg.Adapter.Data)
		if err != nil {
			return nil, nil, err
		}
		decode := protoadapter.DecodeBinary
		if strings.EqualFold(filepath.Ext(cfg.Adapter.Data), ".json") {
			decode = protoadapter.DecodeJSON
		}
		msg, err := decode(reg, data)
		if err != nil {
			return nil, nil, err
		}
		a, err := protoadapter.New(s, reg, msg)
		if err != nil {
			return nil, nil, err
		}
		return executor.NewExecutor(a, s), nop, nil

	case config.AdapterSQL:
		m, err := sqladapter.LoadMapping(cfg.Adapter.Mapping)
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open("sqlite3", cfg.Adapter.DSN)
		if err != nil {
			return nil, nil, err
		}
		a, err := sqladapter.New(db, s, m)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return executor.NewExecutor(a, s), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter kind %q", cfg.Adapter.Kind)
}

// engine opens the configured executor and registers its release with
// o.
func (o *rootOptions) engine() (*executor.Executor, error) {
	exec, release, err := openExecutor(o.cfg)
	if err != nil {
		return nil, err
	}
	o.closers = append(o.closers, release)
	return exec, nil
}
