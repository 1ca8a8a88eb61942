package sqltype

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// BigValue carries a wide integer that crossed the wire as text.
// Display is the exact textual form; Sort is the value to order by.
type BigValue struct {
	Display string
	Sort    *big.Int
}

func (v BigValue) String() string { return v.Display }

// Value is the parsed form of one transported cell.
// Degraded marks values whose structured parse failed; Raw then holds the
// original transported representation.
type Value struct {
	V        any
	Degraded bool
	Raw      any
}

// timestampLayouts is the parse ladder for temporal values, most specific
// first. DuckDB and Postgres both emit the space-separated forms.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseValue converts a transported raw value back to display form.
// It never fails: unparseable input degrades to its raw string form with
// Degraded set.
func ParseValue(raw any, schema ColumnSchema) Value {
	if raw == nil {
		return Value{}
	}

	switch schema.Category {
	case CategoryNumeric:
		if IsWideInteger(schema.SQLType) {
			return parseWideInt(raw)
		}
		return Value{V: raw}
	case CategoryTemporal:
		return parseTemporal(raw, schema)
	case CategoryComplex:
		return parseComplex(raw)
	default:
		return Value{V: raw}
	}
}

func parseWideInt(raw any) Value {
	s := asString(raw)
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Value{V: s, Degraded: true, Raw: raw}
	}
	return Value{V: BigValue{Display: n.String(), Sort: n}}
}

func parseTemporal(raw any, schema ColumnSchema) Value {
	t := strings.ToUpper(strings.TrimSpace(schema.SQLType))

	// TIME and INTERVAL have no instant representation; keep the text.
	if t == "TIME" || t == "INTERVAL" || strings.HasPrefix(t, "TIME ") {
		return Value{V: asString(raw)}
	}

	switch v := raw.(type) {
	case time.Time:
		return Value{V: v}
	case int64:
		// epoch milliseconds, the usual bridge shape for DATE/TIMESTAMP
		return Value{V: time.UnixMilli(v).UTC()}
	case float64:
		return Value{V: time.UnixMilli(int64(v)).UTC()}
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return Value{V: ts}
			}
		}
		return Value{V: v, Degraded: true, Raw: raw}
	default:
		return Value{V: asString(raw), Degraded: true, Raw: raw}
	}
}

func parseComplex(raw any) Value {
	s, ok := raw.(string)
	if !ok {
		// already structured, nothing to do
		return Value{V: raw}
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return Value{V: s, Degraded: true, Raw: raw}
	}
	return Value{V: parsed}
}

func asString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
