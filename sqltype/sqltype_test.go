package sqltype

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		sqlType string
		want    Category
	}{
		{"BIGINT", CategoryNumeric},
		{"bigint", CategoryNumeric},
		{"Bigint", CategoryNumeric},
		{"UHUGEINT", CategoryNumeric},
		{"DECIMAL(18,3)", CategoryNumeric},
		{"VARCHAR", CategoryText},
		{"VARCHAR(255)", CategoryText},
		{"TIMESTAMP WITH TIME ZONE", CategoryTemporal},
		{"TIMESTAMP_NS", CategoryTemporal},
		{"DATE", CategoryTemporal},
		{"TIME", CategoryTemporal},
		{"INTERVAL", CategoryTemporal},
		{"BOOLEAN", CategoryBoolean},
		{"BLOB", CategoryBinary},
		{"LIST(INTEGER)", CategoryComplex},
		{"STRUCT(a INTEGER, b VARCHAR)", CategoryComplex},
		{"MAP(VARCHAR, INTEGER)", CategoryComplex},
		{"JSON", CategoryComplex},
		{"UUID", CategoryIdentifier},
		{"ENUM('a','b')", CategoryEnum},
		{"GEOMETRY", CategoryGeo},
		{"POINT", CategoryGeo},
		{"", CategoryUnknown},
		{"FANCYTYPE", CategoryUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Categorize(tt.sqlType), "type %q", tt.sqlType)
	}
}

func TestCategorizeCaseStable(t *testing.T) {
	assert.Equal(t, Categorize("bigint"), Categorize("BIGINT"))
	assert.Equal(t, CategoryNumeric, Categorize("bigint"))
}

func TestCastFor(t *testing.T) {
	tests := []struct {
		sqlType string
		want    string
		cast    bool
	}{
		{"BIGINT", "TEXT", true},
		{"UBIGINT", "TEXT", true},
		{"HUGEINT", "TEXT", true},
		{"INTEGER", "", false},
		{"DOUBLE", "", false},
		{"INTERVAL", "TEXT", true},
		{"TIME", "TEXT", true},
		{"JSON", "TEXT", true},
		{"LIST(INTEGER)", "TEXT", true},
		{"VARCHAR", "", false},
		{"TIMESTAMP", "", false},
		{"UUID", "", false},
	}

	for _, tt := range tests {
		got, cast := CastFor(NewColumnSchema("c", tt.sqlType))
		assert.Equal(t, tt.cast, cast, "type %q", tt.sqlType)
		assert.Equal(t, tt.want, got, "type %q", tt.sqlType)
	}
}

func TestParseValueNil(t *testing.T) {
	v := ParseValue(nil, NewColumnSchema("c", "INTEGER"))
	assert.Nil(t, v.V)
	assert.False(t, v.Degraded)
}

func TestParseValueWideInt(t *testing.T) {
	schema := NewColumnSchema("c", "BIGINT")

	v := ParseValue("9223372036854775807", schema)
	bv, ok := v.V.(BigValue)
	require.True(t, ok)
	assert.Equal(t, "9223372036854775807", bv.Display)

	// round-trip: the display text re-parses to the sort value
	n, ok := new(big.Int).SetString(bv.Display, 10)
	require.True(t, ok)
	assert.Zero(t, n.Cmp(bv.Sort))
}

func TestParseValueWideIntDegrades(t *testing.T) {
	v := ParseValue("not-a-number", NewColumnSchema("c", "BIGINT"))
	assert.True(t, v.Degraded)
	assert.Equal(t, "not-a-number", v.V)
}

func TestParseValueTimestamp(t *testing.T) {
	schema := NewColumnSchema("c", "TIMESTAMP")

	v := ParseValue("2024-06-01 12:30:00", schema)
	ts, ok := v.V.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())
	assert.Equal(t, time.June, ts.Month())

	v = ParseValue(int64(0), schema)
	ts, ok = v.V.(time.Time)
	require.True(t, ok)
	assert.Equal(t, 1970, ts.Year())
}

func TestParseValueTimePassesThrough(t *testing.T) {
	v := ParseValue("12:30:00", NewColumnSchema("c", "TIME"))
	assert.Equal(t, "12:30:00", v.V)
	assert.False(t, v.Degraded)
}

func TestParseValueComplex(t *testing.T) {
	schema := NewColumnSchema("c", "LIST(INTEGER)")

	v := ParseValue(`[1,2,3]`, schema)
	require.False(t, v.Degraded)
	arr, ok := v.V.([]any)
	require.True(t, ok)
	assert.Len(t, arr, 3)

	// malformed structured text keeps the raw string
	v = ParseValue(`{broken`, schema)
	assert.True(t, v.Degraded)
	assert.Equal(t, `{broken`, v.V)
}

func TestSortable(t *testing.T) {
	assert.True(t, Sortable(CategoryNumeric))
	assert.True(t, Sortable(CategoryText))
	assert.False(t, Sortable(CategoryComplex))
	assert.False(t, Sortable(CategoryGeo))
	assert.False(t, Sortable(CategoryBinary))
}

func TestAlignment(t *testing.T) {
	assert.Equal(t, "right", Alignment(CategoryNumeric))
	assert.Equal(t, "center", Alignment(CategoryBoolean))
	assert.Equal(t, "left", Alignment(CategoryText))
}
