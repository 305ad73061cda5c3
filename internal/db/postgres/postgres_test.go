package postgres

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enervolt/enervolt-backend/internal/db"
)

// The driver's correctness hinges on the SQL goqu produces from our
// query model; exercise that translation without a live pool.

func TestWhereClausesSQL(t *testing.T) {
	dialect := goqu.Dialect("postgres")

	sql, args, err := dialect.From("services").
		Where(whereClauses([]db.Filter{
			{Field: "category", Value: "audit"},
			{Field: "name", Value: "%power%", Like: true},
		})...).
		Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, sql, `"category" = $1`)
	assert.Contains(t, sql, `"name" ILIKE $2`)
	assert.Equal(t, []any{"audit", "%power%"}, args)
}

func TestSelectSQLShape(t *testing.T) {
	dialect := goqu.Dialect("postgres")

	ds := dialect.From("products").
		Where(whereClauses([]db.Filter{{Field: "published", Value: true}})...).
		OrderAppend(goqu.I("created_at").Desc()).
		Offset(10).
		Limit(5)

	sql, args, err := ds.Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, sql, `ORDER BY "created_at" DESC`)
	assert.Contains(t, sql, "LIMIT $")
	assert.Contains(t, sql, "OFFSET $")
	require.Len(t, args, 3)
	assert.Equal(t, true, args[0])
}

func TestUpdateSQLSkipsImmutableColumns(t *testing.T) {
	dialect := goqu.Dialect("postgres")

	changes := db.Row{"name": "Renamed", "id": 99, "created_at": "bogus"}
	record := make(goqu.Record, len(changes))
	for k, v := range changes {
		if k == "id" || k == "created_at" {
			continue
		}
		record[k] = v
	}
	record["updated_at"] = goqu.L("now()")

	sql, _, err := dialect.Update("services").
		Set(record).
		Where(whereClauses([]db.Filter{{Field: "id", Value: int64(1)}})...).
		Returning(goqu.Star()).
		Prepared(true).ToSQL()
	require.NoError(t, err)

	assert.Contains(t, sql, `"updated_at"=now()`)
	assert.Contains(t, sql, `RETURNING *`)
	assert.NotContains(t, sql, `"id"=`)
	assert.NotContains(t, sql, `"created_at"=`)
}
