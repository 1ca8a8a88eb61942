// Package rowstore holds the sparse, positionally indexed row store backing
// a virtualized table.
//
// Positions are zero-based indexes into the currently ordered, currently
// filtered result set. They are stable within one (filter, sort) pair and
// remap completely when either changes; the store's generation counter
// tracks those remaps so stale deliveries can be dropped.
package rowstore

// OIDField is the reserved row field holding the one-based positional index
// assigned by the backend window function under the current sort order.
const OIDField = "__oid"

// Row is one delivered record: an unordered mapping from column key to
// parsed value, plus the reserved OIDField.
type Row map[string]any

// OID returns the row's one-based positional index, or 0 if absent.
func (r Row) OID() int64 {
	switch v := r[OIDField].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
