package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	protoreg "github.com/hanpama/trellis/internal/protoreg"
	schema "github.com/hanpama/trellis/internal/schema"
)

func newSchemaCommand(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema [file]",
		Short: "Validate a schema and print it",
		Long: `Validate a schema SDL file and print its normalized form, including the
built-in scalars and directives. Without a file, the configured schema is
used. Exits non-zero listing every violation found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schemaArg(root, args)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, schema.Render(s))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	return cmd
}

func newCompileProtoCommand(root *rootOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "compile-proto [file]",
		Short: "Generate the protobuf messages of a schema",
		Long: `Generate the .proto file whose dataset message the proto adapter reads.
The package comes from --package or the configuration. Without --out the
file is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schemaArg(root, args)
			if err != nil {
				return err
			}
			reg, err := protoreg.Build(s, protoPackage(root.cfg))
			if err != nil {
				return fmt.Errorf("protoreg build: %w", err)
			}
			if outDir == "" {
				return protoreg.Print(reg, cmd.OutOrStdout())
			}
			path, err := protoreg.Render(reg, outDir)
			if err != nil {
				return fmt.Errorf("render proto: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory")
	return cmd
}

func schemaArg(root *rootOptions, args []string) (*schema.Schema, error) {
	if len(args) == 1 {
		return loadSchema(args[0])
	}
	return configuredSchema(root.cfg)
}

func writeOutput(stdout io.Writer, path, content string) error {
	if path == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
