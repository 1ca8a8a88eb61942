package sqlbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectStar(t *testing.T) {
	assert.Equal(t, `SELECT * FROM "events"`, From("events").SQL())
}

func TestRowWindowShape(t *testing.T) {
	q := From("events").
		Select(
			Column("id"),
			As(Cast(Column("amount"), "TEXT"), "amount"),
			As(Over(RowNumber(), Desc("ts")), "__oid"),
		).
		Where(`"region" = 'eu'`).
		OrderBy(Desc("ts")).
		Limit(100).
		Offset(400)

	want := `SELECT "id", CAST("amount" AS TEXT) AS "amount", ` +
		`row_number() OVER (ORDER BY "ts" DESC) AS "__oid" ` +
		`FROM "events" WHERE "region" = 'eu' ORDER BY "ts" DESC LIMIT 100 OFFSET 400`
	assert.Equal(t, want, q.SQL())
}

func TestUnsortedWindowShape(t *testing.T) {
	q := From("events").
		Select(Column("id"), As(Over(RowNumber()), "__oid")).
		Limit(10).
		Offset(0)

	want := `SELECT "id", row_number() OVER () AS "__oid" FROM "events" LIMIT 10 OFFSET 0`
	assert.Equal(t, want, q.SQL())
}

func TestCountShape(t *testing.T) {
	q := From("events").Select(As(Count(), "count")).Where(`"x" > 5`)
	assert.Equal(t, `SELECT count(*) AS "count" FROM "events" WHERE "x" > 5`, q.SQL())
}

func TestEmptyWhereOmitted(t *testing.T) {
	q := From("t").Select(Column("a")).Where("  ")
	assert.Equal(t, `SELECT "a" FROM "t"`, q.SQL())
}

func TestMultiColumnOrder(t *testing.T) {
	q := From("t").OrderBy(Asc("a"), Desc("b"))
	assert.Equal(t, `SELECT * FROM "t" ORDER BY "a", "b" DESC`, q.SQL())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"a"`, QuoteIdent("a"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
	assert.Equal(t, `"main"."events"`, QuoteIdent("main.events"))
}
