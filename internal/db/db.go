// Package db is the data-access client the rest of the backend talks to.
// It exposes a small fluent query builder over a named table and resolves
// every statement to a Result carrying rows, an optional count, and an
// error. Storage backends implement the Driver interface; see the memory
// and postgres subpackages.
package db

import (
	"context"
	"errors"
)

// Row is a single record as an opaque column -> value mapping. Every
// stored row carries a store-assigned int64 "id" plus "created_at" and
// "updated_at" timestamps.
type Row = map[string]any

var (
	// ErrNotFound is returned when a Single() query matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownTable is returned for operations against a table the
	// backend has no schema for.
	ErrUnknownTable = errors.New("unknown table")
)

// Filter is a single-field condition. Like toggles pattern matching
// (case-insensitive, '%' wildcards) instead of equality.
type Filter struct {
	Field string
	Value any
	Like  bool
}

// OrderBy names a sort column and direction.
type OrderBy struct {
	Field     string
	Ascending bool
}

// Query carries everything a driver needs to execute a read.
type Query struct {
	Table     string
	Columns   []string // empty means all columns
	Filters   []Filter
	Order     []OrderBy
	Offset    int
	Limit     int // <= 0 means no limit
	WithCount bool
	HeadOnly  bool // count only, skip fetching rows
}

// Schema declares the column surface of a table so backends can reject
// writes the way a real database would. Required lists NOT NULL columns
// without defaults.
type Schema struct {
	Table    string
	Columns  []string
	Required []string
}

// HasColumn reports whether the schema declares the given column.
func (s *Schema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Driver is the storage backend contract. Update and Delete apply the
// mutation to every row matching the filters in one operation and return
// the affected rows, so callers can distinguish "nothing matched" from
// an error without a separate existence read.
type Driver interface {
	Select(ctx context.Context, q Query) ([]Row, int64, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, filters []Filter, changes Row) ([]Row, error)
	Delete(ctx context.Context, table string, filters []Filter) ([]Row, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Client is the fluent facade handed to handlers and services.
type Client struct {
	drv Driver
}

func NewClient(drv Driver) *Client {
	return &Client{drv: drv}
}

// From starts a statement against the named table.
func (c *Client) From(table string) *Builder {
	return &Builder{drv: c.drv, query: Query{Table: table}}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.drv.Ping(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	return c.drv.Close(ctx)
}
