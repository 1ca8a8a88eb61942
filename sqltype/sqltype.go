// Package sqltype classifies backend SQL types and parses transported values.
//
// Classification is a pure function of the SQL type string. The resulting
// category drives transport casting, value parsing, alignment, sortability
// and the layout engine's default column widths.
package sqltype

import (
	"strings"
)

// Category is the closed classification set for backend SQL types.
type Category string

const (
	CategoryText       Category = "text"
	CategoryNumeric    Category = "numeric"
	CategoryTemporal   Category = "temporal"
	CategoryBoolean    Category = "boolean"
	CategoryBinary     Category = "binary"
	CategoryComplex    Category = "complex"
	CategoryIdentifier Category = "identifier"
	CategoryEnum       Category = "enum"
	CategoryGeo        Category = "geo"
	CategoryUnknown    Category = "unknown"
)

// ColumnSchema describes one backend column: its stable key, the raw SQL
// type string reported by the engine, and the derived category.
type ColumnSchema struct {
	Key      string
	SQLType  string
	Category Category
}

// NewColumnSchema derives the category from the SQL type string.
func NewColumnSchema(key, sqlType string) ColumnSchema {
	return ColumnSchema{Key: key, SQLType: sqlType, Category: Categorize(sqlType)}
}

// exactCategories resolves full type names ahead of the family rules.
var exactCategories = map[string]Category{
	"TINYINT":   CategoryNumeric,
	"SMALLINT":  CategoryNumeric,
	"INTEGER":   CategoryNumeric,
	"INT":       CategoryNumeric,
	"INT2":      CategoryNumeric,
	"INT4":      CategoryNumeric,
	"INT8":      CategoryNumeric,
	"BIGINT":    CategoryNumeric,
	"HUGEINT":   CategoryNumeric,
	"UTINYINT":  CategoryNumeric,
	"USMALLINT": CategoryNumeric,
	"UINTEGER":  CategoryNumeric,
	"UBIGINT":   CategoryNumeric,
	"UHUGEINT":  CategoryNumeric,
	"LONG":      CategoryNumeric,
	"FLOAT":     CategoryNumeric,
	"FLOAT4":    CategoryNumeric,
	"FLOAT8":    CategoryNumeric,
	"REAL":      CategoryNumeric,
	"DOUBLE":    CategoryNumeric,
	"DATE":      CategoryTemporal,
	"TIME":      CategoryTemporal,
	"INTERVAL":  CategoryTemporal,
	"BOOL":      CategoryBoolean,
	"BOOLEAN":   CategoryBoolean,
	"LOGICAL":   CategoryBoolean,
	"BLOB":      CategoryBinary,
	"BYTEA":     CategoryBinary,
	"VARBINARY": CategoryBinary,
	"UUID":      CategoryIdentifier,
	"GUID":      CategoryIdentifier,
	"VARCHAR":   CategoryText,
	"TEXT":      CategoryText,
	"CHAR":      CategoryText,
	"STRING":    CategoryText,
	"NAME":      CategoryText,
	"BPCHAR":    CategoryText,
}

// familyPrefixes resolves parameterized and dialect-suffixed forms, checked
// in declaration order after the exact table misses.
var familyPrefixes = []struct {
	prefix   string
	category Category
}{
	{"TIMESTAMP", CategoryTemporal},
	{"DATETIME", CategoryTemporal},
	{"TIME", CategoryTemporal},
	{"DECIMAL", CategoryNumeric},
	{"NUMERIC", CategoryNumeric},
	{"LIST", CategoryComplex},
	{"ARRAY", CategoryComplex},
	{"STRUCT", CategoryComplex},
	{"ROW", CategoryComplex},
	{"MAP", CategoryComplex},
	{"UNION", CategoryComplex},
	{"JSON", CategoryComplex},
	{"ENUM", CategoryEnum},
	{"GEOMETRY", CategoryGeo},
	{"GEOGRAPHY", CategoryGeo},
	{"POINT", CategoryGeo},
	{"LINESTRING", CategoryGeo},
	{"POLYGON", CategoryGeo},
	{"VARCHAR", CategoryText},
	{"CHAR", CategoryText},
	{"NVARCHAR", CategoryText},
}

// Categorize maps a SQL type string to its category.
// Matching is case-insensitive; exact names win over family prefixes and
// anything unrecognized falls back to CategoryUnknown.
func Categorize(sqlType string) Category {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if t == "" {
		return CategoryUnknown
	}

	if c, ok := exactCategories[t]; ok {
		return c
	}
	for _, f := range familyPrefixes {
		if strings.HasPrefix(t, f.prefix) {
			return f.category
		}
	}
	return CategoryUnknown
}

// wideIntTypes are integer types wider than 53 bits. They cross the wire as
// text so precision survives transport.
var wideIntTypes = map[string]struct{}{
	"BIGINT":   {},
	"INT8":     {},
	"LONG":     {},
	"HUGEINT":  {},
	"UBIGINT":  {},
	"UHUGEINT": {},
}

// IsWideInteger reports whether the SQL type is an integer family wider
// than what a float64 transport can represent losslessly.
func IsWideInteger(sqlType string) bool {
	_, ok := wideIntTypes[strings.ToUpper(strings.TrimSpace(sqlType))]
	return ok
}

// CastFor selects the transport cast for a column. It returns the SQL cast
// target and true when the value must be cast, or "" and false when the
// column travels as-is.
//
// Wide integers, INTERVAL, TIME and every complex type are cast to TEXT:
// wide ints would lose precision in a float bridge, and complex values get
// a deterministic textual shape the client can re-parse.
func CastFor(schema ColumnSchema) (string, bool) {
	if IsWideInteger(schema.SQLType) {
		return "TEXT", true
	}
	switch strings.ToUpper(strings.TrimSpace(schema.SQLType)) {
	case "INTERVAL", "TIME":
		return "TEXT", true
	}
	if schema.Category == CategoryComplex {
		return "TEXT", true
	}
	return "", false
}

// Alignment returns the horizontal alignment a renderer should use for the
// category: "right" for numerics, "center" for booleans, "left" otherwise.
func Alignment(c Category) string {
	switch c {
	case CategoryNumeric:
		return "right"
	case CategoryBoolean:
		return "center"
	default:
		return "left"
	}
}

// Sortable reports whether the backend can order by a column of this
// category. Complex and geo values have no total order on the wire.
func Sortable(c Category) bool {
	switch c {
	case CategoryComplex, CategoryGeo, CategoryBinary:
		return false
	default:
		return true
	}
}

// DefaultWidthRem is the layout engine's fallback column width per
// category, in rem units.
func DefaultWidthRem(c Category) float64 {
	switch c {
	case CategoryNumeric:
		return 7
	case CategoryTemporal:
		return 12
	case CategoryBoolean:
		return 5
	case CategoryIdentifier:
		return 20
	case CategoryComplex, CategoryGeo:
		return 16
	default:
		return 10
	}
}
