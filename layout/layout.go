package layout

import (
	"math"

	"github.com/karthikbadam/any-table/sqltype"
)

// Region is one of the three horizontal pin regions.
type Region string

const (
	RegionLeft   Region = "left"
	RegionCenter Region = "center"
	RegionRight  Region = "right"
)

// ColumnDef is one user-declared column. A column is sized either by an
// explicit Width or by a Flex weight; Min and Max constrain both. Category
// supplies the fallback width for auto and undeclared columns.
type ColumnDef struct {
	Key      string
	Width    Width
	Flex     float64
	Min      Width
	Max      Width
	Category sqltype.Category
}

// Pins assigns columns to the left and right regions, preserving the order
// of each list. Columns in neither list belong to the center region.
type Pins struct {
	Left  []string
	Right []string
}

// Resolved is one laid-out column: absolute pixel width and offset within
// its region.
type Resolved struct {
	Key    string
	Width  float64
	Offset float64
	Region Region
}

// Snapshot is an immutable layout result. Recomputation produces a new
// snapshot; consumers keep only the snapshots they were handed.
type Snapshot struct {
	columns    []Resolved
	byKey      map[string]int
	leftTotal  float64
	rightTotal float64
	center     float64
	rowHeight  float64
}

// Columns returns the resolved columns in declaration order, region by
// region (left, center, right).
func (s *Snapshot) Columns() []Resolved { return s.columns }

// TotalWidth is the sum of all region subtotals.
func (s *Snapshot) TotalWidth() float64 { return s.leftTotal + s.center + s.rightTotal }

// LeftTotal is the pixel width of the left pin region.
func (s *Snapshot) LeftTotal() float64 { return s.leftTotal }

// RightTotal is the pixel width of the right pin region.
func (s *Snapshot) RightTotal() float64 { return s.rightTotal }

// CenterTotal is the pixel width of the scrollable center region.
func (s *Snapshot) CenterTotal() float64 { return s.center }

// RowHeight is the fixed pixel height of one row under this layout.
func (s *Snapshot) RowHeight() float64 { return s.rowHeight }

// Width returns the resolved pixel width for a column key, or 0 if unknown.
func (s *Snapshot) Width(key string) float64 {
	if i, ok := s.byKey[key]; ok {
		return s.columns[i].Width
	}
	return 0
}

// Offset returns the column's pixel offset within its region, or 0.
func (s *Snapshot) Offset(key string) float64 {
	if i, ok := s.byKey[key]; ok {
		return s.columns[i].Offset
	}
	return 0
}

// Region returns the region a column was assigned to, defaulting to center
// for unknown keys.
func (s *Snapshot) Region(key string) Region {
	if i, ok := s.byKey[key]; ok {
		return s.columns[i].Region
	}
	return RegionCenter
}

// Compute resolves the column definitions against the given measurements.
func Compute(defs []ColumnDef, pins Pins, ctx Context) *Snapshot {
	ctx = ctx.withDefaults()

	left, center, right := partition(defs, pins)

	// Pinned regions size to their natural total and are laid out first so
	// the center region knows its budget.
	leftCols, leftTotal := layoutRegion(left, RegionLeft, 0, false, ctx)
	rightCols, rightTotal := layoutRegion(right, RegionRight, 0, false, ctx)

	budget := ctx.ContainerWidth - leftTotal - rightTotal
	if budget < 0 {
		budget = 0
	}
	centerCols, centerTotal := layoutRegion(center, RegionCenter, budget, true, ctx)

	columns := make([]Resolved, 0, len(defs))
	columns = append(columns, leftCols...)
	columns = append(columns, centerCols...)
	columns = append(columns, rightCols...)

	byKey := make(map[string]int, len(columns))
	for i, c := range columns {
		byKey[c.Key] = i
	}

	return &Snapshot{
		columns:    columns,
		byKey:      byKey,
		leftTotal:  leftTotal,
		rightTotal: rightTotal,
		center:     centerTotal,
		rowHeight:  rowHeight(ctx),
	}
}

func rowHeight(ctx Context) float64 {
	return float64(ctx.NumLines)*Resolve(ctx.LineHeight, ctx) + Resolve(ctx.Padding, ctx)
}

func partition(defs []ColumnDef, pins Pins) (left, center, right []ColumnDef) {
	byKey := make(map[string]ColumnDef, len(defs))
	pinned := make(map[string]bool)
	for _, d := range defs {
		byKey[d.Key] = d
	}
	for _, key := range pins.Left {
		if d, ok := byKey[key]; ok {
			left = append(left, d)
			pinned[key] = true
		}
	}
	for _, key := range pins.Right {
		if d, ok := byKey[key]; ok {
			right = append(right, d)
			pinned[key] = true
		}
	}
	for _, d := range defs {
		if !pinned[d.Key] {
			center = append(center, d)
		}
	}
	return left, center, right
}

type working struct {
	def     ColumnDef
	width   float64
	min     float64
	max     float64
	flex    bool
	clamped bool
}

// layoutRegion resolves one region. When capped is false the region has no
// budget and sizes to its natural total; flex columns then fall back to
// their category default width.
func layoutRegion(defs []ColumnDef, region Region, budget float64, capped bool, ctx Context) ([]Resolved, float64) {
	if len(defs) == 0 {
		return nil, 0
	}

	cols := make([]working, len(defs))
	fixedTotal := 0.0
	flexTotal := 0.0

	for i, d := range defs {
		w := working{def: d, min: Resolve(d.Min, ctx), max: math.Inf(1)}
		if !d.Max.IsZero() {
			if m := Resolve(d.Max, ctx); m > 0 {
				w.max = m
			}
		}
		if w.max < w.min {
			w.max = w.min
		}

		switch {
		case !d.Width.IsZero() && !d.Width.IsAuto():
			w.width = clamp(Resolve(d.Width, ctx), w.min, w.max)
		case d.Flex > 0 && capped:
			w.flex = true
			flexTotal += d.Flex
		default:
			// auto or undeclared without a usable flex share
			def := sqltype.DefaultWidthRem(d.Category) * ctx.RootFontSize
			w.width = clamp(def, w.min, w.max)
		}
		if !w.flex {
			fixedTotal += w.width
		}
		cols[i] = w
	}

	if flexTotal > 0 {
		remaining := budget - fixedTotal
		if remaining < 0 {
			remaining = 0
		}
		distributeFlex(cols, remaining, flexTotal)
	}

	resolved := make([]Resolved, len(cols))
	offset := 0.0
	total := 0.0
	for i, w := range cols {
		resolved[i] = Resolved{Key: w.def.Key, Width: w.width, Offset: offset, Region: region}
		offset += w.width
		total += w.width
	}
	return resolved, total
}

// distributeFlex shares the remaining budget proportionally by flex weight,
// clamps each share, then runs one redistribution pass over the unclamped
// columns. If every flex column clamps, the overflow stands.
func distributeFlex(cols []working, remaining, flexTotal float64) {
	surplus := 0.0
	openFlex := 0.0

	for i := range cols {
		if !cols[i].flex {
			continue
		}
		share := remaining * cols[i].def.Flex / flexTotal
		clamped := clamp(share, cols[i].min, cols[i].max)
		cols[i].width = clamped
		if clamped != share {
			cols[i].clamped = true
			surplus += share - clamped
		} else {
			openFlex += cols[i].def.Flex
		}
	}

	if surplus == 0 || openFlex == 0 {
		return
	}
	for i := range cols {
		if !cols[i].flex || cols[i].clamped {
			continue
		}
		adjusted := cols[i].width + surplus*cols[i].def.Flex/openFlex
		cols[i].width = clamp(adjusted, cols[i].min, cols[i].max)
	}
}

func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		v = 0
	}
	if v < min {
		v = min
	}
	if v > max {
		v = max
	}
	return v
}
