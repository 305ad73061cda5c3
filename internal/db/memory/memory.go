// Package memory is an in-process Driver used by tests and as the dev
// fallback when no Postgres DSN is configured. Rows live in per-table
// maps guarded by a single RWMutex; ids are assigned from a per-table
// serial counter.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/enervolt/enervolt-backend/internal/db"
)

type table struct {
	schema *db.Schema
	rows   map[int64]db.Row
	nextID int64
}

type Driver struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// New creates a driver with one table per schema. Writes against a
// declared schema are validated; tables without a schema accept any
// columns (handy in tests).
func New(schemas ...*db.Schema) *Driver {
	d := &Driver{tables: make(map[string]*table)}
	for _, s := range schemas {
		d.tables[s.Table] = &table{schema: s, rows: make(map[int64]db.Row), nextID: 1}
	}
	return d
}

func (d *Driver) Ping(ctx context.Context) error { return nil }

func (d *Driver) Close(ctx context.Context) error { return nil }

// Seed inserts fixture rows, assigning ids and timestamps.
func (d *Driver) Seed(table string, rows []db.Row) error {
	for _, r := range rows {
		if _, err := d.Insert(context.Background(), table, r); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Select(ctx context.Context, q db.Query) ([]db.Row, int64, error) {
	d.mu.RLock()
	t, ok := d.tables[q.Table]
	if !ok {
		d.mu.RUnlock()
		return nil, 0, fmt.Errorf("%w: %s", db.ErrUnknownTable, q.Table)
	}

	matched := make([]db.Row, 0, len(t.rows))
	for _, row := range t.rows {
		if matchesAll(row, q.Filters) {
			matched = append(matched, cloneRow(row))
		}
	}
	d.mu.RUnlock()

	count := int64(len(matched))

	if q.HeadOnly {
		return []db.Row{}, count, nil
	}

	sortRows(matched, q.Order)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = matched[:0]
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}

	if len(q.Columns) > 0 {
		for i, row := range matched {
			projected := make(db.Row, len(q.Columns))
			for _, c := range q.Columns {
				if v, ok := row[c]; ok {
					projected[c] = v
				}
			}
			matched[i] = projected
		}
	}

	return matched, count, nil
}

func (d *Driver) Insert(ctx context.Context, name string, row db.Row) (db.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tables[name]
	if !ok {
		t = &table{rows: make(map[int64]db.Row), nextID: 1}
		d.tables[name] = t
	}

	if err := validateWrite(t.schema, row, true); err != nil {
		return nil, err
	}

	stored := cloneRow(row)
	stored["id"] = t.nextID
	t.nextID++
	now := time.Now().UTC()
	stored["created_at"] = now
	stored["updated_at"] = now

	t.rows[stored["id"].(int64)] = stored
	return cloneRow(stored), nil
}

func (d *Driver) Update(ctx context.Context, name string, filters []db.Filter, changes db.Row) ([]db.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrUnknownTable, name)
	}
	if err := validateWrite(t.schema, changes, false); err != nil {
		return nil, err
	}

	var affected []db.Row
	for id, row := range t.rows {
		if !matchesAll(row, filters) {
			continue
		}
		updated := cloneRow(row)
		for k, v := range changes {
			if k == "id" || k == "created_at" {
				continue
			}
			updated[k] = v
		}
		updated["updated_at"] = time.Now().UTC()
		t.rows[id] = updated
		affected = append(affected, cloneRow(updated))
	}
	return affected, nil
}

func (d *Driver) Delete(ctx context.Context, name string, filters []db.Filter) ([]db.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrUnknownTable, name)
	}

	var affected []db.Row
	for id, row := range t.rows {
		if matchesAll(row, filters) {
			affected = append(affected, cloneRow(row))
			delete(t.rows, id)
		}
	}
	return affected, nil
}

func validateWrite(schema *db.Schema, row db.Row, insert bool) error {
	if schema == nil {
		return nil
	}
	for col := range row {
		// Store-maintained columns are always known; writes to them are
		// ignored rather than rejected, matching the postgres driver.
		if col == "id" || col == "created_at" || col == "updated_at" {
			continue
		}
		if !schema.HasColumn(col) {
			return fmt.Errorf("column %q of relation %q does not exist", col, schema.Table)
		}
	}
	if insert {
		for _, col := range schema.Required {
			if v, ok := row[col]; !ok || v == nil {
				return fmt.Errorf("null value in column %q of relation %q violates not-null constraint", col, schema.Table)
			}
		}
	}
	return nil
}

func cloneRow(row db.Row) db.Row {
	out := make(db.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func matchesAll(row db.Row, filters []db.Filter) bool {
	for _, f := range filters {
		if !matches(row, f) {
			return false
		}
	}
	return true
}

func matches(row db.Row, f db.Filter) bool {
	v, ok := row[f.Field]
	if !ok {
		return false
	}
	if f.Like {
		pattern, _ := f.Value.(string)
		return likeMatch(stringify(v), pattern)
	}
	if v == nil || f.Value == nil {
		return v == nil && f.Value == nil
	}
	// Filter values often arrive as query-string text while stored values
	// are typed, so compare through a canonical string form.
	return stringify(v) == stringify(f.Value)
}

// likeMatch implements ILIKE-style matching for the common '%' shapes.
func likeMatch(value, pattern string) bool {
	value = strings.ToLower(value)
	pattern = strings.ToLower(pattern)

	leading := strings.HasPrefix(pattern, "%")
	trailing := strings.HasSuffix(pattern, "%")
	needle := strings.Trim(pattern, "%")

	switch {
	case leading && trailing:
		return strings.Contains(value, needle)
	case leading:
		return strings.HasSuffix(value, needle)
	case trailing:
		return strings.HasPrefix(value, needle)
	default:
		return value == needle
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		// JSON numbers decode as float64; render integral values the
		// way int64 renders so "5" matches 5.0.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sortRows(rows []db.Row, order []db.OrderBy) {
	if len(order) == 0 {
		order = []db.OrderBy{{Field: "id", Ascending: true}}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compareValues(rows[i][o.Field], rows[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		// id tiebreak: map iteration order must not leak into results.
		return compareValues(rows[i]["id"], rows[j]["id"]) < 0
	})
}

func compareValues(a, b any) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
