package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	lastQuery   Query
	lastTable   string
	lastFilters []Filter
	lastRow     Row
	lastChanges Row

	selectRows []Row
	selectErr  error
}

func (f *fakeDriver) Select(ctx context.Context, q Query) ([]Row, int64, error) {
	f.lastQuery = q
	return f.selectRows, int64(len(f.selectRows)), f.selectErr
}

func (f *fakeDriver) Insert(ctx context.Context, table string, row Row) (Row, error) {
	f.lastTable, f.lastRow = table, row
	return row, nil
}

func (f *fakeDriver) Update(ctx context.Context, table string, filters []Filter, changes Row) ([]Row, error) {
	f.lastTable, f.lastFilters, f.lastChanges = table, filters, changes
	return []Row{changes}, nil
}

func (f *fakeDriver) Delete(ctx context.Context, table string, filters []Filter) ([]Row, error) {
	f.lastTable, f.lastFilters = table, filters
	return nil, nil
}

func (f *fakeDriver) Ping(ctx context.Context) error  { return nil }
func (f *fakeDriver) Close(ctx context.Context) error { return nil }

func TestSelectColumnParsing(t *testing.T) {
	tests := []struct {
		columns string
		want    []string
	}{
		{"*", nil},
		{"", nil},
		{"name", []string{"name"}},
		{"name, slug ,price", []string{"name", "slug", "price"}},
		{"name,,slug", []string{"name", "slug"}},
	}
	for _, tt := range tests {
		drv := &fakeDriver{}
		NewClient(drv).From("products").Select(tt.columns).Execute(context.Background())
		assert.Equal(t, tt.want, drv.lastQuery.Columns, "columns %q", tt.columns)
	}
}

func TestSelectOptionsAndFilters(t *testing.T) {
	drv := &fakeDriver{}
	NewClient(drv).From("products").
		Select("*", WithCount(), HeadOnly()).
		Eq("category", "metering").
		Like("name", "%meter%").
		Order("created_at", false).
		Execute(context.Background())

	q := drv.lastQuery
	assert.Equal(t, "products", q.Table)
	assert.True(t, q.WithCount)
	assert.True(t, q.HeadOnly)
	require.Len(t, q.Filters, 2)
	assert.Equal(t, Filter{Field: "category", Value: "metering"}, q.Filters[0])
	assert.Equal(t, Filter{Field: "name", Value: "%meter%", Like: true}, q.Filters[1])
	require.Len(t, q.Order, 1)
	assert.Equal(t, OrderBy{Field: "created_at", Ascending: false}, q.Order[0])
}

func TestRangeIsInclusive(t *testing.T) {
	tests := []struct {
		from, to   int
		wantOffset int
		wantLimit  int
	}{
		{0, 9, 0, 10},
		{5, 9, 5, 5},
		{10, 10, 10, 1},
		{-3, 4, 0, 5},
	}
	for _, tt := range tests {
		drv := &fakeDriver{}
		NewClient(drv).From("t").Select("*").Range(tt.from, tt.to).Execute(context.Background())
		assert.Equal(t, tt.wantOffset, drv.lastQuery.Offset, "range %d..%d", tt.from, tt.to)
		assert.Equal(t, tt.wantLimit, drv.lastQuery.Limit, "range %d..%d", tt.from, tt.to)
	}
}

func TestSingle(t *testing.T) {
	t.Run("empty result resolves to ErrNotFound", func(t *testing.T) {
		drv := &fakeDriver{}
		res := NewClient(drv).From("t").Select("*").Eq("id", 1).Single().Execute(context.Background())
		assert.ErrorIs(t, res.Err, ErrNotFound)
		assert.Nil(t, res.First())
		assert.Equal(t, 1, drv.lastQuery.Limit)
	})

	t.Run("driver errors pass through unchanged", func(t *testing.T) {
		drv := &fakeDriver{selectErr: fmt.Errorf("connection refused")}
		res := NewClient(drv).From("t").Select("*").Single().Execute(context.Background())
		require.Error(t, res.Err)
		assert.NotErrorIs(t, res.Err, ErrNotFound)
	})

	t.Run("first row returned", func(t *testing.T) {
		drv := &fakeDriver{selectRows: []Row{{"id": int64(7)}}}
		res := NewClient(drv).From("t").Select("*").Single().Execute(context.Background())
		require.NoError(t, res.Err)
		assert.Equal(t, Row{"id": int64(7)}, res.First())
	})
}

func TestVerbDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("insert", func(t *testing.T) {
		drv := &fakeDriver{}
		res := NewClient(drv).From("contacts").Insert(Row{"name": "a"}).Execute(ctx)
		require.NoError(t, res.Err)
		assert.Equal(t, "contacts", drv.lastTable)
		assert.Equal(t, Row{"name": "a"}, drv.lastRow)
		assert.Equal(t, int64(1), res.Count)
	})

	t.Run("update carries filters and changes", func(t *testing.T) {
		drv := &fakeDriver{}
		res := NewClient(drv).From("contacts").Update(Row{"handled": true}).Eq("id", int64(3)).Execute(ctx)
		require.NoError(t, res.Err)
		assert.Equal(t, []Filter{{Field: "id", Value: int64(3)}}, drv.lastFilters)
		assert.Equal(t, Row{"handled": true}, drv.lastChanges)
		assert.Equal(t, int64(1), res.Count)
	})

	t.Run("delete carries filters", func(t *testing.T) {
		drv := &fakeDriver{}
		res := NewClient(drv).From("contacts").Delete().Eq("id", int64(3)).Execute(ctx)
		require.NoError(t, res.Err)
		assert.Equal(t, []Filter{{Field: "id", Value: int64(3)}}, drv.lastFilters)
	})
}
