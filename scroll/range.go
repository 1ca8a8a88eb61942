// Package scroll maps scroll positions to visible row ranges and drives
// the data model's fetch window from a frame-coalesced update loop.
package scroll

import "math"

// Range is a half-open [Start, End) interval of row positions.
type Range struct {
	Start int
	End   int
}

// Len returns the number of positions in the range.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether other lies fully inside r. The empty range is
// contained anywhere.
func (r Range) Contains(other Range) bool {
	if other.Len() <= 0 {
		return true
	}
	return other.Start >= r.Start && other.End <= r.End
}

// VisibleRange computes the positions the viewport intersects. It is pure
// and clamped: 0 <= Start <= End <= totalRows always holds.
func VisibleRange(scrollTop, viewportHeight, rowHeight float64, totalRows int) Range {
	if rowHeight <= 0 || totalRows <= 0 || viewportHeight < 0 {
		return Range{}
	}
	if scrollTop < 0 {
		scrollTop = 0
	}

	start := int(math.Floor(scrollTop / rowHeight))
	end := int(math.Ceil((scrollTop + viewportHeight) / rowHeight))

	if start > totalRows {
		start = totalRows
	}
	if end > totalRows {
		end = totalRows
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}
