package anytable

import (
	"context"
	"errors"
	"testing"

	"github.com/karthikbadam/any-table/client"
	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/layout"
	"github.com/karthikbadam/any-table/scroll"
	"github.com/karthikbadam/any-table/sqltype"
	"github.com/karthikbadam/any-table/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields() []coord.Field {
	return []coord.Field{
		{Column: "id", SQLType: "BIGINT"},
		{Column: "name", SQLType: "VARCHAR"},
		{Column: "value", SQLType: "DOUBLE"},
		{Column: "flag", SQLType: "BOOLEAN"},
	}
}

func openTable(t *testing.T, rows int, optFns ...Option) (*Table, *testutil.FakeCoordinator, *scroll.ManualFrames) {
	t.Helper()
	fc := testutil.NewFakeCoordinator(fields(), testutil.GenRows(rows))
	frames := scroll.NewManualFrames()
	optFns = append([]Option{WithFrames(frames)}, optFns...)
	tbl, err := Open(context.Background(), fc, TableSpec{Table: "events", RowKey: "id"}, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl, fc, frames
}

func TestOpenFetchesSchemaAndFirstWindow(t *testing.T) {
	tbl, _, _ := openTable(t, 5000)
	data := tbl.Data()

	assert.Equal(t, 5000, data.TotalRows())
	assert.True(t, data.HasRow(0))

	schema := data.Schema()
	require.Len(t, schema, 4)
	assert.Equal(t, sqltype.CategoryNumeric, schema[0].Category)
	assert.Equal(t, sqltype.CategoryText, schema[1].Category)
}

func TestOpenSchemaFetchFatal(t *testing.T) {
	fc := testutil.NewFakeCoordinator(nil, nil) // no schema configured
	_, err := Open(context.Background(), fc, TableSpec{Table: "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaFetch)
}

func TestOpenUnknownDeclaredColumn(t *testing.T) {
	fc := testutil.NewFakeCoordinator(fields(), nil)
	_, err := Open(context.Background(), fc, TableSpec{
		Table:   "events",
		Columns: []ColumnSpec{{Key: "nope"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaFetch)
}

func TestScrollDrivesFetch(t *testing.T) {
	tbl, _, frames := openTable(t, 100_000)
	data := tbl.Data()

	tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
	sc := tbl.Scroll()
	sc.SetViewport(640, 1200)
	frames.Step()

	rowH := 32.0 // 1.5rem line + 0.5rem padding at 16px root
	sc.SetScrollTop(50_000 * rowH)
	frames.Step()

	visible := sc.VisibleRowRange()
	assert.Equal(t, 50_000, visible.Start)
	assert.True(t, data.HasRow(50_000), "visible row fetched after scroll")
	assert.False(t, data.HasRow(0), "far rows evicted under retention")
}

func TestSortChangeThroughHandle(t *testing.T) {
	tbl, fc, frames := openTable(t, 1000)
	data := tbl.Data()

	tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
	tbl.Scroll().SetViewport(640, 1200)
	frames.Step()

	require.NoError(t, data.SetSort(context.Background(), []client.Order{{Column: "value", Desc: true}}))

	q := fc.Queries()[len(fc.Queries())-1]
	assert.Contains(t, q, `ORDER BY "value" DESC`)
	assert.Equal(t, []client.Order{{Column: "value", Desc: true}}, data.Sort())

	row, ok := data.GetRow(0)
	require.True(t, ok)
	v := row["value"].(sqltype.Value)
	assert.Equal(t, 48.0, v.V)
}

func TestSetSortRejectsUnknownColumn(t *testing.T) {
	tbl, _, _ := openTable(t, 10)
	data := tbl.Data()

	err := data.SetSort(context.Background(), []client.Order{{Column: "ghost"}})
	var unknown *ErrUnknownColumn
	assert.ErrorAs(t, err, &unknown)
}

func TestQueryErrorSurfacesOnHandle(t *testing.T) {
	tbl, fc, _ := openTable(t, 1000)
	data := tbl.Data()
	require.NoError(t, data.Err())

	fc.FailNext = errors.New("backend exploded")
	data.SetWindow(context.Background(), 500, 100)

	err := data.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryExecution)
	// prior rows remain
	assert.True(t, data.HasRow(0))
}

func TestFilterSelectionReexecutesBothClients(t *testing.T) {
	tbl, fc, _ := openTable(t, 300)
	fc.Filter = func(row map[string]any, predicate string) bool {
		return row["flag"] == true
	}
	data := tbl.Data()
	require.Equal(t, 300, data.TotalRows())

	fc.Selection().Set(`"flag" = true`)

	assert.Equal(t, 100, data.TotalRows())
	row, ok := data.GetRow(0)
	require.True(t, ok)
	assert.Equal(t, int64(1), row.OID())
}

func TestRowKeyReadFromRecord(t *testing.T) {
	tbl, _, _ := openTable(t, 100)
	data := tbl.Data()

	key, ok := data.RowKey(3)
	require.True(t, ok)
	v := key.(sqltype.Value)
	bv := v.V.(sqltype.BigValue)
	assert.Equal(t, "1000000000003", bv.Display)
}

func TestSpillCacheServesScrollBack(t *testing.T) {
	tbl, _, frames := openTable(t, 100_000, WithSpillCache(0))
	data := tbl.Data()

	tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
	sc := tbl.Scroll()
	sc.SetViewport(640, 1200)
	frames.Step()
	require.True(t, data.HasRow(0))

	sc.ScrollToRow(50_000)
	frames.Step()
	require.False(t, data.HasRow(0), "top rows evicted")

	// scroll-back miss is recovered from the spill cache without a fetch
	row, ok := data.GetRow(0)
	assert.True(t, ok)
	if ok {
		assert.Equal(t, int64(1), row.OID())
	}
}

func TestSerializeRestoreState(t *testing.T) {
	tbl, _, _ := openTable(t, 100)

	st := State{
		ColumnWidths: map[string]string{"name": "12rem"},
		ColumnOrder:  []string{"name", "id", "value", "flag"},
		PinnedLeft:   []string{"name"},
		Sort:         []client.Order{{Column: "value"}},
		PageSize:     250,
	}
	require.NoError(t, tbl.RestoreState(context.Background(), st))

	got := tbl.SerializeState()
	assert.Equal(t, []string{"name", "id", "value", "flag"}, got.ColumnOrder)
	assert.Equal(t, "12rem", got.ColumnWidths["name"])
	assert.Equal(t, []string{"name"}, got.PinnedLeft)
	assert.Equal(t, []client.Order{{Column: "value"}}, got.Sort)
	assert.Equal(t, 250, got.PageSize)

	snap := tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
	assert.Equal(t, layout.RegionLeft, snap.Region("name"))
	assert.Equal(t, 192.0, snap.Width("name"))
}

func TestCloseIdempotent(t *testing.T) {
	fc := testutil.NewFakeCoordinator(fields(), testutil.GenRows(10))
	tbl, err := Open(context.Background(), fc, TableSpec{Table: "events"})
	require.NoError(t, err)

	require.NoError(t, tbl.Close())
	assert.ErrorIs(t, tbl.Close(), ErrClosed)
}

func TestMetricsCollected(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	tbl, _, frames := openTable(t, 10_000, WithMetricsCollector(metrics))

	tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
	tbl.Scroll().SetViewport(640, 1200)
	frames.Step()
	tbl.Scroll().ScrollToRow(5000)
	frames.Step()

	stats := metrics.GetStats()
	assert.Greater(t, stats.FetchCount, int64(0))
	assert.Greater(t, stats.TickCount, int64(0))
}
