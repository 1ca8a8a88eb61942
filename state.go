package anytable

import (
	"context"

	"github.com/karthikbadam/any-table/client"
	"github.com/karthikbadam/any-table/layout"
)

// State is a pure snapshot of externally persistable table state. It has
// no behavior; callers serialize it however they like.
type State struct {
	ColumnWidths map[string]string `json:"columnWidths,omitempty" yaml:"columnWidths,omitempty"`
	ColumnOrder  []string          `json:"columnOrder,omitempty" yaml:"columnOrder,omitempty"`
	PinnedLeft   []string          `json:"pinnedLeft,omitempty" yaml:"pinnedLeft,omitempty"`
	PinnedRight  []string          `json:"pinnedRight,omitempty" yaml:"pinnedRight,omitempty"`
	Sort         []client.Order    `json:"sort,omitempty" yaml:"sort,omitempty"`
	PageSize     int               `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
}

// SerializeState captures the current widths, order, pinning, sort and
// page size.
func (t *Table) SerializeState() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := State{
		ColumnWidths: make(map[string]string, len(t.defs)),
		ColumnOrder:  make([]string, len(t.defs)),
		PinnedLeft:   append([]string(nil), t.pins.Left...),
		PinnedRight:  append([]string(nil), t.pins.Right...),
		Sort:         t.rowClient.Sort(),
		PageSize:     t.pageSize,
	}
	for i, def := range t.defs {
		st.ColumnOrder[i] = def.Key
		if !def.Width.IsZero() {
			st.ColumnWidths[def.Key] = def.Width.String()
		}
	}
	return st
}

// RestoreState applies a previously serialized snapshot. Unknown column
// keys are ignored; a non-empty sort re-fetches through the usual
// sort-change path.
func (t *Table) RestoreState(ctx context.Context, st State) error {
	t.mu.Lock()

	byKey := make(map[string]layout.ColumnDef, len(t.defs))
	for _, def := range t.defs {
		byKey[def.Key] = def
	}
	for key, w := range st.ColumnWidths {
		if def, ok := byKey[key]; ok {
			def.Width = layout.Parse(w)
			byKey[key] = def
		}
	}

	if len(st.ColumnOrder) > 0 {
		ordered := make([]layout.ColumnDef, 0, len(t.defs))
		seen := make(map[string]bool, len(st.ColumnOrder))
		for _, key := range st.ColumnOrder {
			if def, ok := byKey[key]; ok && !seen[key] {
				ordered = append(ordered, def)
				seen[key] = true
			}
		}
		for _, def := range t.defs {
			if !seen[def.Key] {
				ordered = append(ordered, byKey[def.Key])
			}
		}
		t.defs = ordered
	} else {
		for i, def := range t.defs {
			t.defs[i] = byKey[def.Key]
		}
	}

	t.pins = layout.Pins{
		Left:  append([]string(nil), st.PinnedLeft...),
		Right: append([]string(nil), st.PinnedRight...),
	}
	if st.PageSize > 0 {
		t.pageSize = st.PageSize
	}
	t.mu.Unlock()

	if len(st.Sort) > 0 {
		return t.Data().SetSort(ctx, st.Sort)
	}
	return nil
}
