// Package sqlcoord runs the coordinator protocol over a database/sql
// backend. Any driver works; the CLI uses modernc.org/sqlite.
package sqlcoord

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/sqlbuilder"
)

// Coordinator executes client queries against a *sql.DB.
//
// Each execution runs on its own goroutine; deliveries to one client are
// serialized so a superseding query's result cannot interleave with its
// predecessor's.
type Coordinator struct {
	db  *sql.DB
	sel *coord.Selection
	reg *coord.Registry

	mu       sync.Mutex
	inflight map[coord.Client]*sync.Mutex

	unsubscribe func()
	closed      chan struct{}
	wg          sync.WaitGroup
}

var _ coord.Coordinator = (*Coordinator)(nil)

// New creates a coordinator bound to db and the shared filter selection.
// Selection changes re-execute every connected client.
func New(db *sql.DB, sel *coord.Selection) *Coordinator {
	if sel == nil {
		sel = coord.NewSelection()
	}
	c := &Coordinator{
		db:       db,
		sel:      sel,
		reg:      coord.NewRegistry(),
		inflight: make(map[coord.Client]*sync.Mutex),
		closed:   make(chan struct{}),
	}
	c.unsubscribe = sel.Subscribe(func(string) {
		c.Refresh(context.Background())
	})
	return c
}

// Connect registers a client and runs its initial query.
func (c *Coordinator) Connect(ctx context.Context, client coord.Client) error {
	if client == nil {
		return fmt.Errorf("sqlcoord: nil client")
	}
	c.reg.Add(client)
	c.dispatch(ctx, client)
	return nil
}

// Disconnect removes a client. An execution already in flight completes
// but its delivery is dropped.
func (c *Coordinator) Disconnect(client coord.Client) {
	c.reg.Remove(client)
	c.mu.Lock()
	delete(c.inflight, client)
	c.mu.Unlock()
}

// Refresh re-invokes every connected client.
func (c *Coordinator) Refresh(ctx context.Context) {
	for _, client := range c.reg.List() {
		c.dispatch(ctx, client)
	}
}

// Requery re-invokes a single client, used when the client's own state
// (sort, fetch window) changed.
func (c *Coordinator) Requery(ctx context.Context, client coord.Client) {
	if c.reg.Contains(client) {
		c.dispatch(ctx, client)
	}
}

// Close detaches from the selection and waits for in-flight executions.
func (c *Coordinator) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
		c.unsubscribe()
	}
	c.wg.Wait()
	return nil
}

func (c *Coordinator) dispatch(ctx context.Context, client coord.Client) {
	select {
	case <-c.closed:
		return
	default:
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, client)
	}()
}

func (c *Coordinator) run(ctx context.Context, client coord.Client) {
	lock := c.clientLock(client)
	if lock == nil {
		return
	}
	lock.Lock()
	defer lock.Unlock()

	query := client.Query(c.sel.Get())
	if query == "" {
		return
	}

	rows, err := c.execute(ctx, query)
	if !c.reg.Contains(client) {
		return
	}
	if err != nil {
		client.QueryError(fmt.Errorf("sqlcoord: %w", err))
		return
	}
	client.QueryResult(coord.SliceResult(rows))
}

func (c *Coordinator) clientLock(client coord.Client) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reg.Contains(client) {
		return nil
	}
	lock, ok := c.inflight[client]
	if !ok {
		lock = &sync.Mutex{}
		c.inflight[client] = lock
	}
	return lock
}

func (c *Coordinator) execute(ctx context.Context, query string) ([]map[string]any, error) {
	sqlRows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer sqlRows.Close()
	return scanRows(sqlRows)
}

// scanRows reads a result set into column-keyed records. Driver byte
// slices become strings; everything else passes through.
func scanRows(sqlRows *sql.Rows) ([]map[string]any, error) {
	cols, err := sqlRows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for sqlRows.Next() {
		ptrs := make([]any, len(cols))
		for i := range ptrs {
			ptrs[i] = new(any)
		}
		if err := sqlRows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, name := range cols {
			v := *(ptrs[i].(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	return out, sqlRows.Err()
}

// FieldInfo probes the table's shape with a zero-row select.
func (c *Coordinator) FieldInfo(ctx context.Context, table string) ([]coord.Field, error) {
	query := sqlbuilder.From(table).Limit(0).SQL()
	sqlRows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlcoord: field info for %s: %w", table, err)
	}
	defer sqlRows.Close()

	types, err := sqlRows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("sqlcoord: field info for %s: %w", table, err)
	}
	fields := make([]coord.Field, len(types))
	for i, t := range types {
		fields[i] = coord.Field{Column: t.Name(), SQLType: t.DatabaseTypeName()}
	}
	return fields, sqlRows.Err()
}
