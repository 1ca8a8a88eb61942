// Package sqlbuilder assembles the SQL shapes the query clients emit.
//
// The builder covers exactly the surface the table core needs: projections
// with casts, a window-function positional index, a raw filter predicate,
// ordering and a limit/offset window. Output is a plain SQL string handed
// opaquely to the coordinator.
package sqlbuilder

import (
	"fmt"
	"strings"
)

// Expr is a SQL expression fragment.
type Expr interface {
	SQL() string
}

type raw string

func (r raw) SQL() string { return string(r) }

// Raw wraps an already-rendered SQL fragment.
func Raw(s string) Expr { return raw(s) }

type column struct {
	name string
}

func (c column) SQL() string { return QuoteIdent(c.name) }

// Column references a column by name, quoted.
func Column(name string) Expr { return column{name: name} }

type cast struct {
	expr Expr
	typ  string
}

func (c cast) SQL() string { return fmt.Sprintf("CAST(%s AS %s)", c.expr.SQL(), c.typ) }

// Cast wraps an expression in a SQL cast.
func Cast(expr Expr, typ string) Expr { return cast{expr: expr, typ: typ} }

// Count is the count(*) aggregate.
func Count() Expr { return raw("count(*)") }

// RowNumber is the row_number() window function.
func RowNumber() Expr { return raw("row_number()") }

type over struct {
	fn     Expr
	orders []Order
}

func (o over) SQL() string {
	if len(o.orders) == 0 {
		return fmt.Sprintf("%s OVER ()", o.fn.SQL())
	}
	return fmt.Sprintf("%s OVER (ORDER BY %s)", o.fn.SQL(), renderOrders(o.orders))
}

// Over attaches a window clause to a window function. With no orders the
// window is unordered.
func Over(fn Expr, orders ...Order) Expr { return over{fn: fn, orders: orders} }

type aliased struct {
	expr  Expr
	alias string
}

func (a aliased) SQL() string { return fmt.Sprintf("%s AS %s", a.expr.SQL(), QuoteIdent(a.alias)) }

// As aliases an expression.
func As(expr Expr, alias string) Expr { return aliased{expr: expr, alias: alias} }

// Order is one ORDER BY term.
type Order struct {
	Expr Expr
	Desc bool
}

func (o Order) SQL() string {
	if o.Desc {
		return o.Expr.SQL() + " DESC"
	}
	return o.Expr.SQL()
}

// Asc orders ascending by a column.
func Asc(name string) Order { return Order{Expr: Column(name)} }

// Desc orders descending by a column.
func Desc(name string) Order { return Order{Expr: Column(name), Desc: true} }

func renderOrders(orders []Order) string {
	parts := make([]string, len(orders))
	for i, o := range orders {
		parts[i] = o.SQL()
	}
	return strings.Join(parts, ", ")
}

// Query is a single SELECT under construction. All mutators return the
// query for chaining.
type Query struct {
	table     string
	selects   []Expr
	where     string
	orders    []Order
	limit     int
	offset    int
	hasLimit  bool
	hasOffset bool
}

// From starts a query over a table.
func From(table string) *Query {
	return &Query{table: table}
}

// Select appends projection expressions.
func (q *Query) Select(exprs ...Expr) *Query {
	q.selects = append(q.selects, exprs...)
	return q
}

// Where sets the filter predicate, already rendered as SQL. An empty
// predicate clears the clause.
func (q *Query) Where(cond string) *Query {
	q.where = strings.TrimSpace(cond)
	return q
}

// OrderBy replaces the ordering terms.
func (q *Query) OrderBy(orders ...Order) *Query {
	q.orders = orders
	return q
}

// Limit sets the row limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	q.hasLimit = true
	return q
}

// Offset sets the row offset.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	q.hasOffset = true
	return q
}

// SQL renders the query.
func (q *Query) SQL() string {
	var b strings.Builder

	b.WriteString("SELECT ")
	if len(q.selects) == 0 {
		b.WriteString("*")
	} else {
		parts := make([]string, len(q.selects))
		for i, e := range q.selects {
			parts[i] = e.SQL()
		}
		b.WriteString(strings.Join(parts, ", "))
	}

	b.WriteString(" FROM ")
	b.WriteString(QuoteIdent(q.table))

	if q.where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.where)
	}
	if len(q.orders) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(renderOrders(q.orders))
	}
	if q.hasLimit {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	if q.hasOffset {
		fmt.Fprintf(&b, " OFFSET %d", q.offset)
	}
	return b.String()
}

// QuoteIdent quotes an identifier with double quotes, doubling embedded
// quotes. Dotted names quote each segment.
func QuoteIdent(name string) string {
	segs := strings.Split(name, ".")
	for i, s := range segs {
		segs[i] = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return strings.Join(segs, ".")
}
