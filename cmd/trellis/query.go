package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	executor "github.com/hanpama/trellis/internal/executor"
	reqid "github.com/hanpama/trellis/internal/reqid"
	value "github.com/hanpama/trellis/internal/value"
)

type queryOptions struct {
	file      string
	arguments string
	format    string
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query [query]",
		Short: "Run one query and print its rows",
		Long: `Run one query against the configured adapter.

Rows are printed as they are produced, one JSON object per line, unless
--format json collects them into an array. The query is read from the
argument, from --file, or from stdin when neither is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the query from a file")
	cmd.Flags().StringVarP(&opts.arguments, "arguments", "a", "", "query arguments as a JSON object")
	cmd.Flags().StringVar(&opts.format, "format", "ndjson", "output format (ndjson|json)")
	return cmd
}

func runQuery(cmd *cobra.Command, root *rootOptions, opts *queryOptions, args []string) error {
	if opts.format != "ndjson" && opts.format != "json" {
		return fmt.Errorf("invalid format %q: must be ndjson or json", opts.format)
	}
	query, err := readQuery(cmd.InOrStdin(), opts.file, args)
	if err != nil {
		return err
	}
	arguments, err := parseArguments(opts.arguments)
	if err != nil {
		return err
	}
	exec, err := root.engine()
	if err != nil {
		return err
	}

	ctx, _ := reqid.NewContext(cmd.Context())
	rows, err := exec.Execute(ctx, query, arguments)
	if err != nil {
		return fmt.Errorf("%s: %w", executor.ErrorKind(err), err)
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		collected, err := executor.Collect(rows)
		if err != nil {
			return fmt.Errorf("%s: %w", executor.ErrorKind(err), err)
		}
		if collected == nil {
			collected = []value.Row{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(collected)
	}

	enc := json.NewEncoder(out)
	for row, err := range rows {
		if err != nil {
			return fmt.Errorf("%s: %w", executor.ErrorKind(err), err)
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func readQuery(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case len(args) == 1 && file != "":
		return "", fmt.Errorf("give the query either as an argument or with --file")
	case len(args) == 1:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("no query given")
	}
	return string(data), nil
}

// parseArguments decodes a JSON object keeping numbers exact.
func parseArguments(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid --arguments: %w", err)
	}
	return args, nil
}
