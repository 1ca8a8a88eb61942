package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/karthikbadam/any-table/coord"
)

// GenRows produces n deterministic records shaped like a typical event
// table: a wide id, a name, a value and a flag.
func GenRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":    int64(1_000_000_000_000 + i),
			"name":  fmt.Sprintf("item-%04d", i),
			"value": float64(i%97) / 2,
			"flag":  i%3 == 0,
		}
	}
	return rows
}

var (
	limitRe  = regexp.MustCompile(`\bLIMIT (\d+)`)
	offsetRe = regexp.MustCompile(`\bOFFSET (\d+)`)
	castRe   = regexp.MustCompile(`CAST\("([^"]+)" AS TEXT\)`)
	orderRe  = regexp.MustCompile(`ORDER BY (.+?)(?: LIMIT| OFFSET|$)`)
	whereRe  = regexp.MustCompile(` WHERE (.+?)(?: ORDER BY| LIMIT| OFFSET|$)`)
)

// FakeCoordinator is an in-memory coord.Coordinator for tests. Deliveries
// are synchronous: Connect, Refresh and Requery return after the client
// received its result.
type FakeCoordinator struct {
	mu      sync.Mutex
	fields  []coord.Field
	data    []map[string]any
	sel     *coord.Selection
	reg     *coord.Registry
	queries []string

	// FailNext, when set, fails the next execution with this error.
	FailNext error

	// Filter applies a predicate string to a row. Nil means every
	// predicate matches every row.
	Filter func(row map[string]any, predicate string) bool
}

var _ coord.Coordinator = (*FakeCoordinator)(nil)

// NewFakeCoordinator creates a fake over the given schema and data.
func NewFakeCoordinator(fields []coord.Field, data []map[string]any) *FakeCoordinator {
	fc := &FakeCoordinator{
		fields: fields,
		data:   data,
		sel:    coord.NewSelection(),
		reg:    coord.NewRegistry(),
	}
	fc.sel.Subscribe(func(string) { fc.Refresh(context.Background()) })
	return fc
}

// Selection returns the shared filter handle.
func (fc *FakeCoordinator) Selection() *coord.Selection { return fc.sel }

// Queries returns every SQL string executed so far.
func (fc *FakeCoordinator) Queries() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.queries...)
}

// SetData replaces the backing rows.
func (fc *FakeCoordinator) SetData(data []map[string]any) {
	fc.mu.Lock()
	fc.data = data
	fc.mu.Unlock()
}

// Connect registers a client and synchronously runs its initial query.
func (fc *FakeCoordinator) Connect(ctx context.Context, client coord.Client) error {
	if client == nil {
		return fmt.Errorf("testutil: nil client")
	}
	fc.reg.Add(client)
	fc.run(client)
	return nil
}

// Disconnect removes a client.
func (fc *FakeCoordinator) Disconnect(client coord.Client) {
	fc.reg.Remove(client)
}

// Refresh synchronously re-invokes every connected client.
func (fc *FakeCoordinator) Refresh(ctx context.Context) {
	for _, client := range fc.reg.List() {
		fc.run(client)
	}
}

// Requery synchronously re-invokes a single client.
func (fc *FakeCoordinator) Requery(ctx context.Context, client coord.Client) {
	if fc.reg.Contains(client) {
		fc.run(client)
	}
}

// FieldInfo returns the configured schema.
func (fc *FakeCoordinator) FieldInfo(ctx context.Context, table string) ([]coord.Field, error) {
	if len(fc.fields) == 0 {
		return nil, fmt.Errorf("testutil: no schema configured for %s", table)
	}
	return fc.fields, nil
}

func (fc *FakeCoordinator) run(client coord.Client) {
	query := client.Query(fc.sel.Get())
	if query == "" {
		return
	}

	fc.mu.Lock()
	fc.queries = append(fc.queries, query)
	failErr := fc.FailNext
	fc.FailNext = nil
	data := fc.data
	filter := fc.Filter
	fc.mu.Unlock()

	if failErr != nil {
		client.QueryError(failErr)
		return
	}

	rows := execute(query, data, filter, fc.sel.Get())
	client.QueryResult(coord.SliceResult(rows))
}

// execute interprets the structural parts of the emitted SQL: filter,
// ordering, count aggregation, window and cast projections.
func execute(query string, data []map[string]any, filter func(map[string]any, string) bool, predicate string) []map[string]any {
	filtered := data
	if m := whereRe.FindStringSubmatch(query); m != nil && filter != nil {
		filtered = nil
		for _, row := range data {
			if filter(row, predicate) {
				filtered = append(filtered, row)
			}
		}
	}

	if strings.Contains(query, "count(*)") {
		return []map[string]any{{"count": int64(len(filtered))}}
	}

	ordered := applyOrder(query, filtered)

	offset, limit := 0, len(ordered)
	if m := offsetRe.FindStringSubmatch(query); m != nil {
		offset, _ = strconv.Atoi(m[1])
	}
	if m := limitRe.FindStringSubmatch(query); m != nil {
		limit, _ = strconv.Atoi(m[1])
	}
	if offset > len(ordered) {
		offset = len(ordered)
	}
	end := offset + limit
	if end > len(ordered) {
		end = len(ordered)
	}

	castCols := map[string]bool{}
	for _, m := range castRe.FindAllStringSubmatch(query, -1) {
		castCols[m[1]] = true
	}

	out := make([]map[string]any, 0, end-offset)
	for pos := offset; pos < end; pos++ {
		row := make(map[string]any, len(ordered[pos])+1)
		for k, v := range ordered[pos] {
			if castCols[k] {
				row[k] = fmt.Sprintf("%v", v)
			} else {
				row[k] = v
			}
		}
		row["__oid"] = int64(pos + 1)
		out = append(out, row)
	}
	return out
}

func applyOrder(query string, rows []map[string]any) []map[string]any {
	// the outer ORDER BY is the last one; an earlier match would be the
	// window clause inside OVER (...)
	idx := strings.LastIndex(query, "ORDER BY")
	if idx < 0 {
		return rows
	}
	m := orderRe.FindStringSubmatch(query[idx:])
	if m == nil || strings.Contains(m[1], ")") {
		return rows
	}

	type term struct {
		col  string
		desc bool
	}
	var terms []term
	for _, part := range strings.Split(m[1], ", ") {
		part = strings.TrimSpace(part)
		desc := strings.HasSuffix(part, " DESC")
		part = strings.TrimSuffix(part, " DESC")
		terms = append(terms, term{col: strings.Trim(part, `"`), desc: desc})
	}

	ordered := append([]map[string]any(nil), rows...)
	sort.SliceStable(ordered, func(i, j int) bool {
		for _, t := range terms {
			c := compareValues(ordered[i][t.col], ordered[j][t.col])
			if c == 0 {
				continue
			}
			if t.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return ordered
}

func compareValues(a, b any) int {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
