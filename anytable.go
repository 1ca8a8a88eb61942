// Package anytable provides a headless, virtualized table core for very
// large datasets backed by a columnar analytic engine.
//
// The table renders nothing itself. It fetches windowed row slices on
// demand through an injected coordinator, keeps them in a sparse
// positionally indexed store, resolves mixed-unit column layouts, and
// exposes the data, layout and scroll handles a UI layer consumes:
//
//	sel := coord.NewSelection()
//	co := sqlcoord.New(db, sel)
//	tbl, err := anytable.Open(ctx, co, anytable.TableSpec{
//	    Table:  "events",
//	    RowKey: "id",
//	})
//	if err != nil {
//	    panic(err)
//	}
//	defer tbl.Close()
//
//	snap := tbl.Layout(layout.Context{ContainerWidth: 1200, RootFontSize: 16})
//	sc := tbl.Scroll()
//	sc.SetViewport(600, 1200)
//	sc.ScrollToRow(500_000)
//
//	data := tbl.Data()
//	if row, ok := data.GetRow(500_000); ok {
//	    _ = row["id"]
//	} // absent rows mean "loading"
//
// Sorting, filtering and counting all run on the backend; the core holds
// only the slice of rows near the viewport. A filter change through the
// shared selection re-executes both query clients; a sort change clears
// the store and re-fetches from the top, because the backend's positional
// index remaps.
package anytable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/karthikbadam/any-table/client"
	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/internal/rowcache"
	"github.com/karthikbadam/any-table/layout"
	"github.com/karthikbadam/any-table/resource"
	"github.com/karthikbadam/any-table/rowstore"
	"github.com/karthikbadam/any-table/scroll"
	"github.com/karthikbadam/any-table/sqltype"
)

// Order is one sort term, re-exported from the client package so callers
// rarely need to import it directly.
type Order = client.Order

// ColumnSpec declares one column of the table surface.
type ColumnSpec struct {
	Key   string
	Width layout.Width
	Flex  float64
	Min   layout.Width
	Max   layout.Width
}

// TableSpec binds a table instance: backend table name, declared columns
// (empty means every schema column), the row-key column a UI uses for
// selection, and the pin assignments.
type TableSpec struct {
	Table   string
	Columns []ColumnSpec
	RowKey  string
	Pins    layout.Pins
}

// Table is one virtualized table instance. It owns the sparse data model,
// the query client pair and the scroll scheduler; layout snapshots are
// recomputed on demand.
type Table struct {
	spec        TableSpec
	coordinator coord.Coordinator
	schemas     []sqltype.ColumnSchema
	schemaByKey map[string]sqltype.ColumnSchema

	store       *rowstore.Store
	rowClient   *client.RowWindowClient
	countClient *client.CountClient
	scheduler   *scroll.Scheduler

	rc     *resource.Controller
	cache  *rowcache.Cache
	frames scroll.Frames
	ticker *scroll.TickerFrames // owned; nil when frames were injected

	logger  *Logger
	metrics MetricsCollector

	mu        sync.Mutex
	defs      []layout.ColumnDef
	pins      layout.Pins
	pageSize  int
	lastErr   error
	closed    bool
	unobserve func()
}

// Open fetches the table's schema through the coordinator, builds the
// three cores and connects the query client pair. A schema fetch failure
// is fatal and wrapped in ErrSchemaFetch.
func Open(ctx context.Context, c coord.Coordinator, spec TableSpec, optFns ...Option) (*Table, error) {
	if c == nil {
		return nil, fmt.Errorf("anytable: nil coordinator")
	}
	if spec.Table == "" {
		return nil, fmt.Errorf("anytable: empty table name")
	}
	opts := applyOptions(optFns)

	fields, err := c.FieldInfo(ctx, spec.Table)
	if err != nil {
		opts.logger.LogSchemaFetch(ctx, spec.Table, 0, err)
		return nil, fmt.Errorf("%w: %w", ErrSchemaFetch, err)
	}
	opts.logger.LogSchemaFetch(ctx, spec.Table, len(fields), nil)

	schemaByKey := make(map[string]sqltype.ColumnSchema, len(fields))
	allSchemas := make([]sqltype.ColumnSchema, len(fields))
	for i, f := range fields {
		schema := sqltype.NewColumnSchema(f.Column, f.SQLType)
		allSchemas[i] = schema
		schemaByKey[f.Column] = schema
	}

	// declared columns project a subset; undeclared means everything
	var schemas []sqltype.ColumnSchema
	if len(spec.Columns) == 0 {
		schemas = allSchemas
	} else {
		schemas = make([]sqltype.ColumnSchema, 0, len(spec.Columns))
		for _, cs := range spec.Columns {
			schema, ok := schemaByKey[cs.Key]
			if !ok {
				return nil, fmt.Errorf("%w: %w", ErrSchemaFetch, &ErrUnknownColumn{Column: cs.Key})
			}
			schemas = append(schemas, schema)
		}
	}

	t := &Table{
		spec:        spec,
		coordinator: c,
		schemas:     schemas,
		schemaByKey: schemaByKey,
		store:       rowstore.New(),
		logger:      opts.logger,
		metrics:     opts.metricsCollector,
		pins:        spec.Pins,
		pageSize:    client.DefaultLimit,
	}

	t.rc = resource.NewController(opts.resourceConfig)
	if opts.spillCache {
		t.cache = rowcache.New(rowcache.Options{
			CapacityBytes: opts.spillCapacity,
			Codec:         opts.codec,
		}, t.rc)
		t.store.SetBlockCache(t.cache)
	}

	t.defs = buildDefs(spec, schemas)

	errSink := func(err error) {
		t.mu.Lock()
		t.lastErr = fmt.Errorf("%w: %w", ErrQueryExecution, err)
		t.mu.Unlock()
		t.logger.LogQueryError(context.Background(), spec.Table, err)
		t.metrics.RecordQueryError(err)
	}
	t.rowClient = client.NewRowWindowClient(c, spec.Table, schemas, t.store, errSink)
	t.countClient = client.NewCountClient(spec.Table, t.store, errSink)

	t.frames = opts.frames
	if t.frames == nil {
		t.ticker = scroll.NewTickerFrames(16 * time.Millisecond)
		t.frames = t.ticker
	}
	t.scheduler = scroll.NewScheduler(&dataModel{t: t}, t.frames, t.rc, opts.scheduler)
	t.unobserve = t.scheduler.Observe(func(v scroll.Range, _ float64) {
		t.metrics.RecordTick(v.Start, v.End)
	})

	if err := c.Connect(ctx, t.countClient); err != nil {
		return nil, fmt.Errorf("anytable: connect count client: %w", err)
	}
	if err := c.Connect(ctx, t.rowClient); err != nil {
		c.Disconnect(t.countClient)
		return nil, fmt.Errorf("anytable: connect row client: %w", err)
	}

	return t, nil
}

func buildDefs(spec TableSpec, schemas []sqltype.ColumnSchema) []layout.ColumnDef {
	defs := make([]layout.ColumnDef, len(schemas))
	declared := make(map[string]ColumnSpec, len(spec.Columns))
	for _, cs := range spec.Columns {
		declared[cs.Key] = cs
	}
	for i, schema := range schemas {
		def := layout.ColumnDef{Key: schema.Key, Category: schema.Category}
		if cs, ok := declared[schema.Key]; ok {
			def.Width = cs.Width
			def.Flex = cs.Flex
			def.Min = cs.Min
			def.Max = cs.Max
		}
		defs[i] = def
	}
	return defs
}

// dataModel adapts the table to the scheduler's DataModel surface.
type dataModel struct {
	t *Table
}

func (d *dataModel) TotalRows() int { return d.t.store.TotalRows() }

func (d *dataModel) SetWindow(ctx context.Context, offset, limit int) {
	d.t.metrics.RecordFetch(offset, limit)
	d.t.logger.LogFetchWindow(ctx, offset, limit)
	d.t.rowClient.FetchWindow(ctx, offset, limit)
}

func (d *dataModel) Retain(keepStart, keepEnd int) {
	d.t.store.Evict(keepStart, keepEnd)
}

// Data returns the data handle.
func (t *Table) Data() *DataHandle { return &DataHandle{t: t} }

// Scroll returns the scroll handle.
func (t *Table) Scroll() *scroll.Scheduler { return t.scheduler }

// Layout resolves the declared columns against the given measurements and
// installs the resulting row height and total width on the scheduler.
// The returned snapshot is immutable.
func (t *Table) Layout(ctx layout.Context) *layout.Snapshot {
	t.mu.Lock()
	defs := append([]layout.ColumnDef(nil), t.defs...)
	pins := t.pins
	t.mu.Unlock()

	snap := layout.Compute(defs, pins, ctx)
	t.scheduler.SetLayout(snap.RowHeight(), snap.TotalWidth())
	return snap
}

// Close disconnects the query clients and stops the scheduler. In-flight
// results are dropped by generation and retention checks.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	t.mu.Unlock()

	t.coordinator.Disconnect(t.rowClient)
	t.coordinator.Disconnect(t.countClient)
	if t.unobserve != nil {
		t.unobserve()
	}
	t.scheduler.Close()
	if t.ticker != nil {
		t.ticker.Stop()
	}
	return nil
}

// DataHandle is the read surface over the sparse data model plus the
// sort and window mutators a UI binds to.
type DataHandle struct {
	t *Table
}

// GetRow returns the row at position i, or ok=false while it loads.
// A miss first consults the spill cache when one is configured.
func (h *DataHandle) GetRow(i int) (rowstore.Row, bool) {
	if r, ok := h.t.store.GetRow(i); ok {
		return r, true
	}
	if h.t.cache != nil && h.t.store.Recover(i, 1) {
		return h.t.store.GetRow(i)
	}
	return nil, false
}

// HasRow reports whether position i is loaded.
func (h *DataHandle) HasRow(i int) bool { return h.t.store.HasRow(i) }

// TotalRows returns the filtered result set's authoritative count.
func (h *DataHandle) TotalRows() int { return h.t.store.TotalRows() }

// Schema returns the projected column schemas in declaration order.
func (h *DataHandle) Schema() []sqltype.ColumnSchema {
	return append([]sqltype.ColumnSchema(nil), h.t.schemas...)
}

// IsLoading reports whether a row or count query is in flight.
func (h *DataHandle) IsLoading() bool { return h.t.store.IsLoading() }

// SetWindow demands a contiguous slice. Out-of-range inputs clamp.
func (h *DataHandle) SetWindow(ctx context.Context, offset, limit int) {
	h.t.rowClient.FetchWindow(ctx, offset, limit)
}

// Sort returns the current ordering.
func (h *DataHandle) Sort() []client.Order { return h.t.rowClient.Sort() }

// SetSort rewrites the ordering. The store clears immediately; rows
// delivered under the previous sort never surface again.
func (h *DataHandle) SetSort(ctx context.Context, orders []client.Order) error {
	for _, o := range orders {
		schema, ok := h.t.schemaByKey[o.Column]
		if !ok {
			return &ErrUnknownColumn{Column: o.Column}
		}
		if !sqltype.Sortable(schema.Category) {
			return fmt.Errorf("anytable: column %s (%s) is not sortable", o.Column, schema.Category)
		}
	}
	h.t.metrics.RecordSortChange()
	h.t.logger.LogSortChange(ctx, h.t.spec.Table, len(orders))
	h.t.rowClient.SetSort(ctx, orders)
	return nil
}

// Err returns the last query execution error, or nil when none has
// occurred. Schema fetch failures are not reported here: Open returns
// them and no table.
func (h *DataHandle) Err() error {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	return h.t.lastErr
}

// RowKey returns the value of the configured row-key column at position
// i. Selection state must key off this value, never off the position,
// which remaps on every sort or filter change.
func (h *DataHandle) RowKey(i int) (any, bool) {
	if h.t.spec.RowKey == "" {
		return nil, false
	}
	row, ok := h.t.store.GetRow(i)
	if !ok {
		return nil, false
	}
	v, ok := row[h.t.spec.RowKey]
	return v, ok
}
