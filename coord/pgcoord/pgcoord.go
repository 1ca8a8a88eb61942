// Package pgcoord runs the coordinator protocol over a PostgreSQL pool.
package pgcoord

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karthikbadam/any-table/coord"
)

// Coordinator executes client queries against a pgx pool. Deliveries to
// one client are serialized.
type Coordinator struct {
	pool *pgxpool.Pool
	sel  *coord.Selection
	reg  *coord.Registry

	mu       sync.Mutex
	inflight map[coord.Client]*sync.Mutex

	unsubscribe func()
	closed      chan struct{}
	wg          sync.WaitGroup
}

var _ coord.Coordinator = (*Coordinator)(nil)

// New creates a coordinator bound to pool and the shared filter selection.
func New(pool *pgxpool.Pool, sel *coord.Selection) *Coordinator {
	if sel == nil {
		sel = coord.NewSelection()
	}
	c := &Coordinator{
		pool:     pool,
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
		return fmt.Errorf("pgcoord: nil client")
	}
	c.reg.Add(client)
	c.dispatch(ctx, client)
	return nil
}

// Disconnect removes a client; an in-flight execution's delivery is dropped.
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

// Requery re-invokes a single client.
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
		client.QueryError(fmt.Errorf("pgcoord: %w", err))
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
	pgRows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer pgRows.Close()

	fields := pgRows.FieldDescriptions()
	var out []map[string]any
	for pgRows.Next() {
		values, err := pgRows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[string(fd.Name)] = v
		}
		out = append(out, row)
	}
	return out, pgRows.Err()
}

// FieldInfo reads the table's columns from the system catalogs. Dotted
// table names select a schema; bare names search public.
func (c *Coordinator) FieldInfo(ctx context.Context, table string) ([]coord.Field, error) {
	schema := "public"
	name := table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}

	query := `
		SELECT a.attname, t.typname
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid
		JOIN pg_type t ON t.oid = a.atttypid
		WHERE n.nspname = $1
			AND c.relname = $2
			AND a.attnum > 0
			AND NOT a.attisdropped
		ORDER BY a.attnum
	`

	pgRows, err := c.pool.Query(ctx, query, schema, name)
	if err != nil {
		return nil, fmt.Errorf("pgcoord: field info for %s: %w", table, err)
	}
	defer pgRows.Close()

	var fields []coord.Field
	for pgRows.Next() {
		var f coord.Field
		if err := pgRows.Scan(&f.Column, &f.SQLType); err != nil {
			return nil, fmt.Errorf("pgcoord: field info for %s: %w", table, err)
		}
		fields = append(fields, f)
	}
	if err := pgRows.Err(); err != nil {
		return nil, fmt.Errorf("pgcoord: field info for %s: %w", table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("pgcoord: table %s not found", table)
	}
	return fields, nil
}
