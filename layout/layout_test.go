package layout

import (
	"testing"

	"github.com/karthikbadam/any-table/sqltype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUnits(t *testing.T) {
	ctx := Context{ContainerWidth: 800, RootFontSize: 16, TableFontSize: 14}

	tests := []struct {
		width Width
		want  float64
	}{
		{Px(120), 120},
		{Parse("120"), 120},
		{Parse("120px"), 120},
		{Parse("50%"), 400},
		{Parse("5rem"), 80},
		{Rem(5), 80},
		{Parse("2em"), 28},
		{Em(2), 28},
		{Auto(), -1},
		{Width{}, 0},
		{Parse("garbage"), 0},
		{Parse("-40px"), 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.width, ctx), "width %q", tt.width.String())
	}
}

func TestComputeMixedUnits(t *testing.T) {
	// container=800, rootFontSize=16: a=5rem=80, d=10%=80, remaining 640
	// split 2:1 between b and c.
	defs := []ColumnDef{
		{Key: "a", Width: Parse("5rem")},
		{Key: "b", Flex: 2},
		{Key: "c", Flex: 1},
		{Key: "d", Width: Parse("10%")},
	}
	ctx := Context{ContainerWidth: 800, RootFontSize: 16}

	snap := Compute(defs, Pins{}, ctx)

	assert.Equal(t, 80.0, snap.Width("a"))
	assert.Equal(t, 80.0, snap.Width("d"))
	assert.InDelta(t, 426.67, snap.Width("b"), 0.01)
	assert.InDelta(t, 213.33, snap.Width("c"), 0.01)

	assert.Equal(t, 0.0, snap.Offset("a"))
	assert.Equal(t, 80.0, snap.Offset("b"))
	assert.InDelta(t, 506.67, snap.Offset("c"), 0.01)
	assert.InDelta(t, 720.0, snap.Offset("d"), 0.01)

	assert.InDelta(t, 800.0, snap.TotalWidth(), 0.01)
}

func TestComputeCenterFillsBudget(t *testing.T) {
	// With at least one unclamped flex column the center region consumes
	// exactly the budget left over by the pinned regions.
	defs := []ColumnDef{
		{Key: "id", Width: Px(60)},
		{Key: "name", Flex: 1},
		{Key: "score", Width: Px(100)},
		{Key: "actions", Width: Px(90)},
	}
	pins := Pins{Left: []string{"id"}, Right: []string{"actions"}}
	ctx := Context{ContainerWidth: 1000, RootFontSize: 16}

	snap := Compute(defs, pins, ctx)

	assert.Equal(t, 60.0, snap.LeftTotal())
	assert.Equal(t, 90.0, snap.RightTotal())
	assert.Equal(t, 1000.0-60.0-90.0, snap.CenterTotal())
	assert.Equal(t, RegionLeft, snap.Region("id"))
	assert.Equal(t, RegionRight, snap.Region("actions"))
	assert.Equal(t, RegionCenter, snap.Region("name"))

	// offsets restart at zero per region
	assert.Equal(t, 0.0, snap.Offset("id"))
	assert.Equal(t, 0.0, snap.Offset("name"))
	assert.Equal(t, 0.0, snap.Offset("actions"))
}

func TestComputeFlexClampRedistributes(t *testing.T) {
	defs := []ColumnDef{
		{Key: "a", Flex: 1, Max: Px(100)},
		{Key: "b", Flex: 1},
	}
	ctx := Context{ContainerWidth: 600, RootFontSize: 16}

	snap := Compute(defs, Pins{}, ctx)

	// a clamps at 100; its surplus flows to b in the second pass.
	assert.Equal(t, 100.0, snap.Width("a"))
	assert.Equal(t, 500.0, snap.Width("b"))
}

func TestComputeAllClampedOverflows(t *testing.T) {
	defs := []ColumnDef{
		{Key: "a", Flex: 1, Min: Px(400)},
		{Key: "b", Flex: 1, Min: Px(400)},
	}
	ctx := Context{ContainerWidth: 600, RootFontSize: 16}

	snap := Compute(defs, Pins{}, ctx)

	assert.Equal(t, 400.0, snap.Width("a"))
	assert.Equal(t, 400.0, snap.Width("b"))
	assert.Equal(t, 800.0, snap.TotalWidth())
}

func TestComputeAutoUsesCategoryDefault(t *testing.T) {
	defs := []ColumnDef{
		{Key: "n", Width: Auto(), Category: sqltype.CategoryNumeric},
		{Key: "u", Category: sqltype.CategoryIdentifier},
	}
	ctx := Context{ContainerWidth: 800, RootFontSize: 16}

	snap := Compute(defs, Pins{}, ctx)

	assert.Equal(t, sqltype.DefaultWidthRem(sqltype.CategoryNumeric)*16, snap.Width("n"))
	assert.Equal(t, sqltype.DefaultWidthRem(sqltype.CategoryIdentifier)*16, snap.Width("u"))
}

func TestComputeZeroContainer(t *testing.T) {
	defs := []ColumnDef{
		{Key: "fixed", Width: Px(120)},
		{Key: "flex", Flex: 1},
	}
	snap := Compute(defs, Pins{}, Context{ContainerWidth: 0, RootFontSize: 16})

	assert.Equal(t, 120.0, snap.Width("fixed"))
	assert.Equal(t, 0.0, snap.Width("flex"))
}

func TestRowHeight(t *testing.T) {
	ctx := Context{
		ContainerWidth: 800,
		RootFontSize:   16,
		NumLines:       2,
		LineHeight:     Rem(1.5),
		Padding:        Px(8),
	}
	snap := Compute(nil, Pins{}, ctx)
	require.NotNil(t, snap)
	assert.Equal(t, 2*24.0+8.0, snap.RowHeight())
}

func TestRowHeightDefaults(t *testing.T) {
	snap := Compute(nil, Pins{}, Context{ContainerWidth: 800})
	// one 1.5rem line plus 0.5rem padding at the 16px default root size
	assert.Equal(t, 24.0+8.0, snap.RowHeight())
}
