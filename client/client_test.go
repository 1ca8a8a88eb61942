package client

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/rowstore"
	"github.com/karthikbadam/any-table/sqltype"
	"github.com/karthikbadam/any-table/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchemas() []sqltype.ColumnSchema {
	return []sqltype.ColumnSchema{
		sqltype.NewColumnSchema("id", "BIGINT"),
		sqltype.NewColumnSchema("name", "VARCHAR"),
		sqltype.NewColumnSchema("value", "DOUBLE"),
	}
}

func testFields() []coord.Field {
	return []coord.Field{
		{Column: "id", SQLType: "BIGINT"},
		{Column: "name", SQLType: "VARCHAR"},
		{Column: "value", SQLType: "DOUBLE"},
	}
}

func TestRowClientInitialFetch(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(500))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)

	require.NoError(t, fc.Connect(context.Background(), rc))

	assert.Equal(t, DefaultLimit, store.LoadedCount())
	row, ok := store.GetRow(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), row.OID())

	// wide ids crossed the wire as text and parsed back to big values
	v, ok := row["id"].(sqltype.Value)
	require.True(t, ok)
	bv, ok := v.V.(sqltype.BigValue)
	require.True(t, ok)
	assert.Equal(t, "1000000000000", bv.Display)
}

func TestRowClientWireShape(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(10))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	require.NoError(t, fc.Connect(context.Background(), rc))

	queries := fc.Queries()
	require.Len(t, queries, 1)
	q := queries[0]

	assert.Contains(t, q, `CAST("id" AS TEXT) AS "id"`)
	assert.Contains(t, q, `"name"`)
	assert.Contains(t, q, `row_number() OVER () AS "__oid"`)
	assert.Contains(t, q, `LIMIT 100 OFFSET 0`)
	assert.NotContains(t, q, "WHERE")
}

func TestFetchWindowMovesAndClamps(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(500))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	ctx := context.Background()
	require.NoError(t, fc.Connect(ctx, rc))
	store.SetTotalRows(500)

	rc.FetchWindow(ctx, 300, 100)
	assert.True(t, store.HasRow(300))
	assert.True(t, store.HasRow(399))

	// out-of-range offset clamps to the last full window
	rc.FetchWindow(ctx, 10_000, 100)
	offset, limit := rc.Window()
	assert.Equal(t, 400, offset)
	assert.Equal(t, 100, limit)

	// limit below 1 keeps the previous limit
	rc.FetchWindow(ctx, 0, 0)
	_, limit = rc.Window()
	assert.Equal(t, 100, limit)

	// negative offset clamps to 0
	rc.FetchWindow(ctx, -5, 50)
	offset, _ = rc.Window()
	assert.Equal(t, 0, offset)
}

func TestFetchWindowUnchangedDoesNotRequery(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(500))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	ctx := context.Background()
	require.NoError(t, fc.Connect(ctx, rc))

	before := len(fc.Queries())
	rc.FetchWindow(ctx, 0, DefaultLimit)
	assert.Len(t, fc.Queries(), before)
}

func TestSetSortClearsAndRefetches(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(500))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	ctx := context.Background()
	require.NoError(t, fc.Connect(ctx, rc))

	rc.FetchWindow(ctx, 200, 100)
	require.True(t, store.HasRow(200))
	genBefore := store.Generation()

	rc.SetSort(ctx, []Order{{Column: "value", Desc: true}})

	// generation advanced; pre-sort rows are gone; window snapped to 0
	assert.Greater(t, store.Generation(), genBefore)
	assert.False(t, store.HasRow(200))
	assert.True(t, store.HasRow(0))
	offset, _ := rc.Window()
	assert.Equal(t, 0, offset)

	q := fc.Queries()[len(fc.Queries())-1]
	assert.Contains(t, q, `row_number() OVER (ORDER BY "value" DESC) AS "__oid"`)
	assert.Contains(t, q, `ORDER BY "value" DESC LIMIT`)

	// first post-sort row carries positional index 1 under the new ordering
	row, ok := store.GetRow(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), row.OID())
}

func TestFilterChangeClearsStore(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(300))
	fc.Filter = func(row map[string]any, predicate string) bool {
		return row["flag"] == true
	}
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	cc := NewCountClient("events", store, nil)
	ctx := context.Background()
	require.NoError(t, fc.Connect(ctx, rc))
	require.NoError(t, fc.Connect(ctx, cc))

	require.Equal(t, 300, store.TotalRows())
	genBefore := store.Generation()

	fc.Selection().Set(`"flag" = true`)

	assert.Greater(t, store.Generation(), genBefore)
	assert.Equal(t, 100, store.TotalRows())
	row, ok := store.GetRow(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), row.OID())
}

func TestCountClient(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(1234))
	store := rowstore.New()
	cc := NewCountClient("events", store, nil)

	require.NoError(t, fc.Connect(context.Background(), cc))

	assert.Equal(t, 1234, store.TotalRows())
	q := fc.Queries()[0]
	assert.True(t, strings.HasPrefix(q, `SELECT count(*) AS "count" FROM "events"`), q)
}

func TestQueryErrorKeepsRows(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(500))
	store := rowstore.New()
	var sunk error
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, func(err error) { sunk = err })
	ctx := context.Background()
	require.NoError(t, fc.Connect(ctx, rc))
	loaded := store.LoadedCount()

	fc.FailNext = errors.New("backend exploded")
	rc.FetchWindow(ctx, 200, 100)

	assert.Error(t, sunk)
	assert.Equal(t, loaded, store.LoadedCount(), "prior rows remain visible")
	assert.False(t, store.IsLoading())
}

func TestStaleGenerationDropped(t *testing.T) {
	fc := testutil.NewFakeCoordinator(testFields(), testutil.GenRows(100))
	store := rowstore.New()
	rc := NewRowWindowClient(fc, "events", testSchemas(), store, nil)
	require.NoError(t, fc.Connect(context.Background(), rc))

	// simulate a delivery produced before a sort change
	store.Clear()
	rc.QueryResult(coord.SliceResult{{"id": "1", "name": "x", "value": 1.0, "__oid": int64(1)}})

	assert.Equal(t, 0, store.LoadedCount())
}
