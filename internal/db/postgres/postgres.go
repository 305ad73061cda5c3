// Package postgres is the production Driver: goqu builds the SQL,
// a pgx pool executes it. Mutations use RETURNING * so affected rows
// come back from the same statement that changed them.
package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enervolt/enervolt-backend/internal/db"
)

type Driver struct {
	pool    *pgxpool.Pool
	dialect goqu.DialectWrapper
}

// Connect opens a pool against the DSN and verifies the connection.
func Connect(ctx context.Context, dsn string) (*Driver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Driver{pool: pool, dialect: goqu.Dialect("postgres")}, nil
}

func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *Driver) Close(ctx context.Context) error {
	d.pool.Close()
	return nil
}

func (d *Driver) Select(ctx context.Context, q db.Query) ([]db.Row, int64, error) {
	var count int64
	if q.WithCount {
		sql, args, err := d.dialect.From(q.Table).
			Select(goqu.COUNT(goqu.Star())).
			Where(whereClauses(q.Filters)...).
			Prepared(true).ToSQL()
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: build count: %w", err)
		}
		if err := d.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
			return nil, 0, fmt.Errorf("postgres: count %s: %w", q.Table, err)
		}
	}
	if q.HeadOnly {
		return []db.Row{}, count, nil
	}

	ds := d.dialect.From(q.Table).Where(whereClauses(q.Filters)...)
	if len(q.Columns) > 0 {
		cols := make([]any, len(q.Columns))
		for i, c := range q.Columns {
			cols[i] = c
		}
		ds = ds.Select(cols...)
	}
	for _, o := range q.Order {
		if o.Ascending {
			ds = ds.OrderAppend(goqu.I(o.Field).Asc())
		} else {
			ds = ds.OrderAppend(goqu.I(o.Field).Desc())
		}
	}
	if q.Offset > 0 {
		ds = ds.Offset(uint(q.Offset))
	}
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	sql, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: build select: %w", err)
	}
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: select %s: %w", q.Table, err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: scan %s: %w", q.Table, err)
	}
	return out, count, nil
}

func (d *Driver) Insert(ctx context.Context, table string, row db.Row) (db.Row, error) {
	sql, args, err := d.dialect.Insert(table).
		Rows(goqu.Record(row)).
		Returning(goqu.Star()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build insert: %w", err)
	}
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert into %s: %w", table, err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert into %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("postgres: insert into %s returned no row", table)
	}
	return out[0], nil
}

func (d *Driver) Update(ctx context.Context, table string, filters []db.Filter, changes db.Row) ([]db.Row, error) {
	record := make(goqu.Record, len(changes))
	for k, v := range changes {
		if k == "id" || k == "created_at" {
			continue
		}
		record[k] = v
	}
	record["updated_at"] = goqu.L("now()")

	sql, args, err := d.dialect.Update(table).
		Set(record).
		Where(whereClauses(filters)...).
		Returning(goqu.Star()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build update: %w", err)
	}
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: update %s: %w", table, err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: update %s: %w", table, err)
	}
	return out, nil
}

func (d *Driver) Delete(ctx context.Context, table string, filters []db.Filter) ([]db.Row, error) {
	sql, args, err := d.dialect.Delete(table).
		Where(whereClauses(filters)...).
		Returning(goqu.Star()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("postgres: build delete: %w", err)
	}
	rows, err := d.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: delete from %s: %w", table, err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: delete from %s: %w", table, err)
	}
	return out, nil
}

func whereClauses(filters []db.Filter) []goqu.Expression {
	exprs := make([]goqu.Expression, 0, len(filters))
	for _, f := range filters {
		if f.Like {
			exprs = append(exprs, goqu.I(f.Field).ILike(f.Value))
		} else {
			exprs = append(exprs, goqu.I(f.Field).Eq(f.Value))
		}
	}
	return exprs
}

func collectRows(rows pgx.Rows) ([]db.Row, error) {
	fields := rows.FieldDescriptions()
	out := []db.Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(db.Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
