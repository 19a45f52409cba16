package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	executor "github.com/hanpama/trellis/internal/executor"
	reqid "github.com/hanpama/trellis/internal/reqid"
	value "github.com/hanpama/trellis/internal/value"
)

// batchFile lists the queries of one batch run:
//
//	queries:
//	  - name: primes
//	    query: '{ Number(max: $max) { ... on Prime { value @output } } }'
//	    arguments: {max: 10}
type batchFile struct {
	Queries []batchQuery `yaml:"queries"`
}

type batchQuery struct {
	Name      string         `yaml:"name"`
	Query     string         `yaml:"query"`
	Arguments map[string]any `yaml:"arguments"`
}

type batchError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type batchResult struct {
	Name      string      `json:"name"`
	RequestID string      `json:"request_id"`
	Rows      []value.Row `json:"rows"`
	Error     *batchError `json:"error,omitempty"`
}

func newBatchCommand(root *rootOptions) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Run many queries concurrently",
		Long: `Run every query listed in a YAML file, at most --workers at a time.

Each result is printed as one JSON line, in the order the file lists the
queries. The command fails when any query fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("workers") {
				workers = root.cfg.Batch.Workers
			}
			return runBatch(cmd, root, args[0], workers)
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "number of queries run at once (default from config)")
	return cmd
}

func loadBatch(path string) (*batchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f batchFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i, q := range f.Queries {
		if q.Query == "" {
			return nil, fmt.Errorf("%s: queries[%d] has no query", path, i)
		}
		if q.Name == "" {
			f.Queries[i].Name = fmt.Sprintf("query-%d", i+1)
		}
	}
	return &f, nil
}

func runBatch(cmd *cobra.Command, root *rootOptions, path string, workers int) error {
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	f, err := loadBatch(path)
	if err != nil {
		return err
	}
	exec, err := root.engine()
	if err != nil {
		return err
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		slog.Error("batch query panic", slog.Any("panic", v))
	}))
	if err != nil {
		return err
	}
	defer pool.Release()

	results := make([]batchResult, len(f.Queries))
	var wg sync.WaitGroup
	for i, q := range f.Queries {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			results[i] = runOne(cmd, exec, q)
		})
		if err != nil {
			wg.Done()
			results[i] = batchResult{Name: q.Name, Error: &batchError{Kind: "Internal", Message: err.Error()}}
		}
	}
	wg.Wait()

	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries failed", failed, len(results))
	}
	return nil
}

func runOne(cmd *cobra.Command, exec *executor.Executor, q batchQuery) batchResult {
	ctx, rid := reqid.NewContext(cmd.Context())
	res := batchResult{Name: q.Name, RequestID: rid, Rows: []value.Row{}}
	rows, err := exec.Execute(ctx, q.Query, q.Arguments)
	if err == nil {
		var collected []value.Row
		collected, err = executor.Collect(rows)
		res.Rows = append(res.Rows, collected...)
	}
	if err != nil {
		res.Error = &batchError{Kind: executor.ErrorKind(err), Message: err.Error()}
	}
	return res
}
