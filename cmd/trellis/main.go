package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	config "github.com/hanpama/trellis/internal/config"
	eventbus "github.com/hanpama/trellis/internal/eventbus"
	logging "github.com/hanpama/trellis/internal/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "trellis: %v\n", err)
		os.Exit(1)
	}
}

// run executes the command line args with a fresh event bus, so repeated
// runs in one process do not share subscribers.
func run(args []string, stdout, stderr io.Writer) error {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	opts := &rootOptions{}
	defer opts.close()

	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

// rootOptions holds the global flags and the configuration they resolve to.
type rootOptions struct {
	configPath string
	schema     string
	adapter    string
	data       string
	pkg        string
	mapping    string
	dsn        string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	closers []func()
}

func (o *rootOptions) close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
	o.closers = nil
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trellis",
		Short: "Query any data source as a graph",
		Long: `trellis runs graph queries against a schema and an adapter that
resolves it. Adapters read the integers, JSON documents, protobuf datasets
or SQL tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	f.StringVar(&opts.schema, "schema", "", "schema SDL file")
	f.StringVar(&opts.adapter, "adapter", "", "adapter kind (numbers|json|proto|sql)")
	f.StringVar(&opts.data, "data", "", "data file of the json and proto adapters")
	f.StringVar(&opts.pkg, "package", "", "protobuf package of the proto adapter")
	f.StringVar(&opts.mapping, "mapping", "", "table mapping of the sql adapter")
	f.StringVar(&opts.dsn, "dsn", "", "sqlite database of the sql adapter")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	f.StringVar(&opts.logFormat, "log-format", "", "log format (text|json)")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newBatchCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newCompileProtoCommand(opts))
	return cmd
}

// load reads the configuration file, applies flag overrides and sets up
// logging on the command's error stream.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return err
		}
	}

	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("schema", &cfg.Schema, o.schema)
	override("adapter", &cfg.Adapter.Kind, o.adapter)
	override("data", &cfg.Adapter.Data, o.data)
	override("package", &cfg.Adapter.Package, o.pkg)
	override("mapping", &cfg.Adapter.Mapping, o.mapping)
	override("dsn", &cfg.Adapter.DSN, o.dsn)
	override("log-level", &cfg.Log.Level, o.logLevel)
	override("log-format", &cfg.Log.Format, o.logFormat)
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	l := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
	o.closers = append(o.closers, logging.Subscribe(l))
	return nil
}
