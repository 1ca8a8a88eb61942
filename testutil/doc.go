// Package testutil provides testing utilities for any-table.
//
// This package is intended for use in tests only. It provides a fake
// in-memory coordinator that structurally executes the SQL shapes the
// query clients emit, plus deterministic row generation.
//
// # Fake coordinator
//
//	fc := testutil.NewFakeCoordinator(
//	    []coord.Field{{Column: "id", SQLType: "BIGINT"}},
//	    testutil.GenRows(1000),
//	)
//	fc.Connect(ctx, client)
//
// The fake recognizes count(*) queries, LIMIT/OFFSET windows, ORDER BY
// terms and CAST(... AS TEXT) projections, and delivers results
// synchronously on the caller's goroutine so tests stay deterministic.
package testutil
