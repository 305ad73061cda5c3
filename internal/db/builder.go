package db

import (
	"context"
	"fmt"
	"strings"
)

type verb int

const (
	verbSelect verb = iota
	verbInsert
	verbUpdate
	verbDelete
)

// SelectOption tweaks how a select statement executes.
type SelectOption func(*Query)

// WithCount asks the driver for the number of rows matching the filters,
// ignoring any range.
func WithCount() SelectOption {
	return func(q *Query) { q.WithCount = true }
}

// HeadOnly skips fetching rows; combine with WithCount for a pure count.
func HeadOnly() SelectOption {
	return func(q *Query) { q.HeadOnly = true }
}

// Result is what every executed statement resolves to.
type Result struct {
	Data  []Row
	Count int64
	Err   error
}

// First returns the first row, or nil when the result is empty.
func (r Result) First() Row {
	if len(r.Data) == 0 {
		return nil
	}
	return r.Data[0]
}

// Builder accumulates one statement against a single table.
type Builder struct {
	drv    Driver
	query  Query
	verb   verb
	single bool
	row    Row // insert payload
	change Row // update payload
}

// Select marks the statement as a read. columns is "*" or a
// comma-separated column list.
func (b *Builder) Select(columns string, opts ...SelectOption) *Builder {
	b.verb = verbSelect
	if columns != "" && columns != "*" {
		for _, c := range strings.Split(columns, ",") {
			if c = strings.TrimSpace(c); c != "" {
				b.query.Columns = append(b.query.Columns, c)
			}
		}
	}
	for _, opt := range opts {
		opt(&b.query)
	}
	return b
}

// Eq adds an equality filter.
func (b *Builder) Eq(field string, value any) *Builder {
	b.query.Filters = append(b.query.Filters, Filter{Field: field, Value: value})
	return b
}

// Like adds a case-insensitive pattern filter ('%' wildcards).
func (b *Builder) Like(field, pattern string) *Builder {
	b.query.Filters = append(b.query.Filters, Filter{Field: field, Value: pattern, Like: true})
	return b
}

// Range limits the read to rows [from, to], both zero-based inclusive.
func (b *Builder) Range(from, to int) *Builder {
	if from < 0 {
		from = 0
	}
	b.query.Offset = from
	b.query.Limit = to - from + 1
	return b
}

// Order appends a sort column.
func (b *Builder) Order(field string, ascending bool) *Builder {
	b.query.Order = append(b.query.Order, OrderBy{Field: field, Ascending: ascending})
	return b
}

// Single constrains the read to exactly one row; executing resolves to
// ErrNotFound when nothing matches.
func (b *Builder) Single() *Builder {
	b.single = true
	b.query.Limit = 1
	return b
}

// Insert marks the statement as an insert of the given row.
func (b *Builder) Insert(row Row) *Builder {
	b.verb = verbInsert
	b.row = row
	return b
}

// Update marks the statement as a partial update of all matching rows.
func (b *Builder) Update(changes Row) *Builder {
	b.verb = verbUpdate
	b.change = changes
	return b
}

// Delete marks the statement as a delete of all matching rows.
func (b *Builder) Delete() *Builder {
	b.verb = verbDelete
	return b
}

// Execute runs the statement on the driver.
func (b *Builder) Execute(ctx context.Context) Result {
	switch b.verb {
	case verbSelect:
		rows, count, err := b.drv.Select(ctx, b.query)
		if err != nil {
			return Result{Err: err}
		}
		if b.single && len(rows) == 0 {
			return Result{Err: ErrNotFound}
		}
		return Result{Data: rows, Count: count}

	case verbInsert:
		row, err := b.drv.Insert(ctx, b.query.Table, b.row)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Data: []Row{row}, Count: 1}

	case verbUpdate:
		rows, err := b.drv.Update(ctx, b.query.Table, b.query.Filters, b.change)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Data: rows, Count: int64(len(rows))}

	case verbDelete:
		rows, err := b.drv.Delete(ctx, b.query.Table, b.query.Filters)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Data: rows, Count: int64(len(rows))}
	}
	return Result{Err: fmt.Errorf("db: statement has no verb")}
}
