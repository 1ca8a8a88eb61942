// Package coord defines the coordinator/client query protocol.
//
// A coordinator accepts long-lived client registrations, invokes each
// client's query generator on demand, executes the produced SQL against a
// backend and delivers tabular results back to the client. A shared filter
// selection re-executes every connected client when it changes.
//
// The core never discovers a coordinator; it is always injected.
package coord

import "context"

// Field describes one backend column.
type Field struct {
	Column  string
	SQLType string
}

// Result is one delivered tabular result.
type Result interface {
	// Rows returns the result as column-keyed records.
	Rows() []map[string]any
}

// SliceResult is the in-memory Result implementation coordinators deliver.
type SliceResult []map[string]any

// Rows implements Result.
func (r SliceResult) Rows() []map[string]any { return r }

// Client is a long-lived query participant. The coordinator calls Query to
// obtain SQL for the current filter, then exactly one of QueryResult or
// QueryError per execution.
type Client interface {
	// Query produces the client's SQL for the given filter predicate.
	// An empty string means the client has nothing to ask right now.
	Query(filter string) string

	// QueryResult delivers a successful execution's rows.
	QueryResult(res Result)

	// QueryError delivers a failed execution. The client keeps its
	// previous state.
	QueryError(err error)
}

// Coordinator dispatches queries for its connected clients.
type Coordinator interface {
	// Connect registers a client and runs its initial query.
	Connect(ctx context.Context, c Client) error

	// Disconnect removes a client; pending deliveries for it are dropped.
	Disconnect(c Client)

	// Refresh re-invokes every connected client's query method.
	Refresh(ctx context.Context)

	// Requery re-invokes a single connected client, used when the
	// client's own query state (sort, fetch window) changed.
	Requery(ctx context.Context, c Client)

	// FieldInfo returns the column schema of a table.
	FieldInfo(ctx context.Context, table string) ([]Field, error)
}
