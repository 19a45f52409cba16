// Package sqladapter serves queries over SQL tables described by a Mapping.
// Rows are read lazily: each adapter call holds one open result set and
// closes it as soon as the executor stops pulling.
package sqladapter

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	executor "github.com/hanpama/trellis/internal/executor"
	ir "github.com/hanpama/trellis/internal/ir"
	schema "github.com/hanpama/trellis/internal/schema"
	value "github.com/hanpama/trellis/internal/value"
)

// Row is a vertex read from a table, keyed by column name.
type Row struct {
	Type   string
	Values map[string]any
}

// Adapter resolves queries with SQL statements against db. Nested edges
// query while outer result sets are still open, so db must allow more than
// one connection.
type Adapter struct {
	db      *sql.DB
	schema  *schema.Schema
	mapping *Mapping
}

var _ executor.Adapter = (*Adapter)(nil)

// New validates m against s and serves it from db.
func New(db *sql.DB, s *schema.Schema, m *Mapping) (*Adapter, error) {
	if err := m.Validate(s); err != nil {
		return nil, err
	}
	return &Adapter{db: db, schema: s, mapping: m}, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// selectRows streams the rows of typeName's table matching every column
// condition, ordered by key.
func (a *Adapter) selectRows(ctx context.Context, typeName string, conds map[string]any) executor.VertexIterator {
	tm := a.mapping.Types[typeName]
	var (
		q    strings.Builder
		args []any
	)
	q.WriteString("SELECT * FROM " + quote(tm.Table))
	for i, col := range slices.Sorted(maps.Keys(conds)) {
		if i == 0 {
			q.WriteString(" WHERE ")
		} else {
			q.WriteString(" AND ")
		}
		q.WriteString(quote(col) + " = ?")
		args = append(args, conds[col])
	}
	q.WriteString(" ORDER BY " + quote(tm.Key))
	query := q.String()

	return func(yield func(executor.Vertex) bool) {
		rows, err := a.db.QueryContext(ctx, query, args...)
		if err != nil {
			executor.ReportError(ctx, fmt.Errorf("sqladapter: %s: %w", tm.Table, err))
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			executor.ReportError(ctx, fmt.Errorf("sqladapter: %s: %w", tm.Table, err))
			return
		}
		for rows.Next() {
			raw := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range raw {
				ptrs[i] = &raw[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				executor.ReportError(ctx, fmt.Errorf("sqladapter: %s: %w", tm.Table, err))
				return
			}
			r := &Row{Type: typeName, Values: make(map[string]any, len(cols))}
			for i, c := range cols {
				r.Values[c] = raw[i]
			}
			if !yield(r) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			executor.ReportError(ctx, fmt.Errorf("sqladapter: %s: %w", tm.Table, err))
		}
	}
}

func (a *Adapter) ResolveStartingVertices(ctx context.Context, edge string, params executor.Parameters) executor.VertexIterator {
	sm := a.mapping.Starting[edge]
	if sm == nil {
		executor.ReportError(ctx, fmt.Errorf("sqladapter: starting edge %q is not mapped", edge))
		return executor.Vertices[executor.Vertex]()
	}
	conds := make(map[string]any)
	for param, col := range sm.Parameters {
		if v := params.Get(param); !v.IsNull() {
			conds[col] = v.ToGo()
		}
	}
	return a.selectRows(ctx, sm.Type, conds)
}

func (a *Adapter) ResolveProperty(ctx context.Context, contexts executor.ContextIterator, typeName, property string) executor.PropertyIterator {
	return func(yield func(*executor.DataContext, value.Value) bool) {
		for dc := range contexts {
			v := value.Null()
			if r, ok := dc.ActiveVertex().(*Row); ok {
				var err error
				if v, err = a.property(r, property); err != nil {
					executor.ReportError(ctx, err)
					return
				}
			}
			if !yield(dc, v) {
				return
			}
		}
	}
}

func (a *Adapter) property(r *Row, property string) (value.Value, error) {
	if property == schema.TypenameField {
		return value.String(r.Type), nil
	}
	f := a.schema.Field(r.Type, property)
	if f == nil || f.IsEdge() {
		return value.Value{}, fmt.Errorf("sqladapter: unknown property %s.%s", r.Type, property)
	}
	tm := a.mapping.Types[r.Type]
	col := tm.column(property)
	raw, ok := r.Values[col]
	if !ok {
		return value.Value{}, fmt.Errorf("sqladapter: table %s has no column %q for %s.%s", tm.Table, col, r.Type, property)
	}
	v, err := decode(raw, f.Type)
	if err != nil {
		return value.Value{}, fmt.Errorf("sqladapter: %s.%s: %w", r.Type, property, err)
	}
	return v, nil
}

// decode converts a scanned column into a value of type t. List properties
// are stored as JSON arrays.
func decode(raw any, t *ir.TypeRef) (value.Value, error) {
	switch x := raw.(type) {
	case []byte:
		raw = string(x)
	case time.Time:
		raw = x.Format(time.RFC3339Nano)
	}
	switch {
	case t.IsList():
		if s, ok := raw.(string); ok {
			dec := json.NewDecoder(bytes.NewReader([]byte(s)))
			dec.UseNumber()
			var elems []any
			if err := dec.Decode(&elems); err != nil {
				return value.Value{}, fmt.Errorf("decode list column: %w", err)
			}
			raw = elems
		}
	case t.Nullable().Named == ir.Boolean:
		if i, ok := raw.(int64); ok {
			raw = i != 0
		}
	}
	v, err := value.FromGo(raw)
	if err != nil {
		return value.Value{}, err
	}
	return ir.Coerce(v, t)
}

func (a *Adapter) ResolveNeighbors(ctx context.Context, contexts executor.ContextIterator, typeName, edge string, params executor.Parameters) executor.NeighborIterator {
	return executor.ResolveNeighborsWith(contexts, func(v executor.Vertex) executor.VertexIterator {
		r := v.(*Row)
		em := a.mapping.Types[r.Type].Edges[edge]
		if em == nil {
			executor.ReportError(ctx, fmt.Errorf("sqladapter: edge %s.%s is not mapped", r.Type, edge))
			return executor.Vertices[executor.Vertex]()
		}
		key, ok := r.Values[em.From]
		if !ok {
			executor.ReportError(ctx, fmt.Errorf("sqladapter: table %s has no column %q", a.mapping.Types[r.Type].Table, em.From))
			return executor.Vertices[executor.Vertex]()
		}
		if key == nil {
			return executor.Vertices[executor.Vertex]()
		}
		return a.selectRows(ctx, em.Target, map[string]any{em.To: key})
	})
}

func (a *Adapter) ResolveCoercion(ctx context.Context, contexts executor.ContextIterator, typeName, coerceTo string) executor.CoercionIterator {
	return executor.ResolveCoercionWith(contexts, func(v executor.Vertex) bool {
		return a.schema.IsSubtype(v.(*Row).Type, coerceTo)
	})
}
