// Package client implements the query client pair feeding a table's sparse
// data model: a row-window client that fetches contiguous slices with a
// stable positional index, and a count client that tracks the filtered
// total.
//
// Both clients connect to a coordinator and re-execute when the shared
// filter selection changes. Deliveries for one client never interleave;
// coordinators serialize the Query/QueryResult pair per client.
package client

import (
	"context"
	"sync"

	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/rowstore"
	"github.com/karthikbadam/any-table/sqlbuilder"
	"github.com/karthikbadam/any-table/sqltype"
)

// Order is one sort term.
type Order struct {
	Column string
	Desc   bool
}

// ErrorSink receives query execution failures. The data model keeps its
// previous state; the next window, sort or filter change retries
// implicitly.
type ErrorSink func(err error)

// DefaultLimit is the fetch window size used before the scheduler asks
// for anything.
const DefaultLimit = 100

// RowWindowClient fetches the currently demanded row window.
//
// It owns the (offset, limit, sort, filter) query state exclusively. At
// most one fetch window is active; a window change while a query is
// outstanding supersedes it once the coordinator gets back to the client.
type RowWindowClient struct {
	mu      sync.Mutex
	table   string
	schemas []sqltype.ColumnSchema
	sort    []Order
	offset  int
	limit   int
	filter  string

	// queryOffset/queryGen stamp the execution currently in flight.
	queryOffset int
	queryGen    uint64

	store      *rowstore.Store
	dispatcher coord.Coordinator
	errSink    ErrorSink
}

var _ coord.Client = (*RowWindowClient)(nil)

// NewRowWindowClient creates a row client over table feeding store.
// errSink may be nil.
func NewRowWindowClient(c coord.Coordinator, table string, schemas []sqltype.ColumnSchema, store *rowstore.Store, errSink ErrorSink) *RowWindowClient {
	if errSink == nil {
		errSink = func(error) {}
	}
	return &RowWindowClient{
		table:      table,
		schemas:    schemas,
		limit:      DefaultLimit,
		store:      store,
		dispatcher: c,
		errSink:    errSink,
	}
}

// Window returns the currently demanded fetch window.
func (rc *RowWindowClient) Window() (offset, limit int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.offset, rc.limit
}

// Sort returns the current ordering terms.
func (rc *RowWindowClient) Sort() []Order {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]Order(nil), rc.sort...)
}

// FetchWindow changes the demanded window and requests re-execution.
// Invalid inputs clamp: negative offsets to 0, offsets beyond the known
// total to the last full window, limits below 1 to the previous limit.
func (rc *RowWindowClient) FetchWindow(ctx context.Context, offset, limit int) {
	rc.mu.Lock()
	if limit < 1 {
		limit = rc.limit
	}
	if offset < 0 {
		offset = 0
	}
	if total := rc.store.TotalRows(); total > 0 && offset >= total {
		offset = total - limit
		if offset < 0 {
			offset = 0
		}
	}
	if offset == rc.offset && limit == rc.limit {
		rc.mu.Unlock()
		return
	}
	rc.offset = offset
	rc.limit = limit
	rc.mu.Unlock()

	rc.dispatcher.Requery(ctx, rc)
}

// SetSort rewrites the ordering, clears the data model and resets the
// window to the top. Rows delivered under the previous sort never surface
// again; their positional index has been remapped.
func (rc *RowWindowClient) SetSort(ctx context.Context, orders []Order) {
	rc.mu.Lock()
	rc.sort = append([]Order(nil), orders...)
	rc.offset = 0
	rc.mu.Unlock()

	rc.store.Clear()
	rc.dispatcher.Requery(ctx, rc)
}

// Query implements coord.Client. A filter change invalidates every held
// position, so the store is cleared and the window snaps to the top
// before the new SQL is produced.
func (rc *RowWindowClient) Query(filter string) string {
	rc.mu.Lock()
	if filter != rc.filter {
		rc.filter = filter
		rc.offset = 0
		rc.store.Clear()
	}

	orders := make([]sqlbuilder.Order, len(rc.sort))
	for i, o := range rc.sort {
		orders[i] = sqlbuilder.Order{Expr: sqlbuilder.Column(o.Column), Desc: o.Desc}
	}

	projections := make([]sqlbuilder.Expr, 0, len(rc.schemas)+1)
	for _, schema := range rc.schemas {
		col := sqlbuilder.Column(schema.Key)
		if target, ok := sqltype.CastFor(schema); ok {
			projections = append(projections, sqlbuilder.As(sqlbuilder.Cast(col, target), schema.Key))
		} else {
			projections = append(projections, col)
		}
	}
	projections = append(projections,
		sqlbuilder.As(sqlbuilder.Over(sqlbuilder.RowNumber(), orders...), rowstore.OIDField))

	q := sqlbuilder.From(rc.table).
		Select(projections...).
		Where(filter).
		Limit(rc.limit).
		Offset(rc.offset)
	if len(orders) > 0 {
		q.OrderBy(orders...)
	}

	rc.queryOffset = rc.offset
	rc.queryGen = rc.store.Generation()
	rc.mu.Unlock()

	rc.store.BeginLoad()
	return q.SQL()
}

// QueryResult implements coord.Client: parse, stamp-check, merge.
func (rc *RowWindowClient) QueryResult(res coord.Result) {
	defer rc.store.EndLoad()

	rc.mu.Lock()
	offset := rc.queryOffset
	gen := rc.queryGen
	schemas := rc.schemas
	rc.mu.Unlock()

	raw := res.Rows()
	rows := make([]rowstore.Row, 0, len(raw))
	for _, in := range raw {
		row := make(rowstore.Row, len(schemas)+1)
		for _, schema := range schemas {
			row[schema.Key] = sqltype.ParseValue(in[schema.Key], schema)
		}
		row[rowstore.OIDField] = asInt64(in[rowstore.OIDField])
		rows = append(rows, row)
	}

	rc.store.MergeRowsIf(gen, offset, rows)
}

// QueryError implements coord.Client. The store keeps its rows.
func (rc *RowWindowClient) QueryError(err error) {
	rc.store.EndLoad()
	rc.errSink(err)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// CountClient tracks the authoritative total of the filtered result set.
type CountClient struct {
	mu      sync.Mutex
	table   string
	store   *rowstore.Store
	errSink ErrorSink
}

var _ coord.Client = (*CountClient)(nil)

// NewCountClient creates a count client over table feeding store.
func NewCountClient(table string, store *rowstore.Store, errSink ErrorSink) *CountClient {
	if errSink == nil {
		errSink = func(error) {}
	}
	return &CountClient{table: table, store: store, errSink: errSink}
}

// Query implements coord.Client.
func (cc *CountClient) Query(filter string) string {
	cc.store.BeginLoad()
	return sqlbuilder.From(cc.table).
		Select(sqlbuilder.As(sqlbuilder.Count(), "count")).
		Where(filter).
		SQL()
}

// QueryResult implements coord.Client.
func (cc *CountClient) QueryResult(res coord.Result) {
	defer cc.store.EndLoad()

	rows := res.Rows()
	if len(rows) == 0 {
		return
	}
	cc.store.SetTotalRows(int(asInt64(rows[0]["count"])))
}

// QueryError implements coord.Client.
func (cc *CountClient) QueryError(err error) {
	cc.store.EndLoad()
	cc.errSink(err)
}
