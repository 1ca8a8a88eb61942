// Command anytable is a terminal pager over a backend table, driving the
// same data, layout and scroll handles a UI layer would.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	anytable "github.com/karthikbadam/any-table"
	"github.com/karthikbadam/any-table/coord"
	"github.com/karthikbadam/any-table/coord/pgcoord"
	"github.com/karthikbadam/any-table/coord/sqlcoord"
	"github.com/karthikbadam/any-table/layout"
	"github.com/karthikbadam/any-table/rowstore"
	"github.com/karthikbadam/any-table/sqltype"
)

var (
	cfgPath   string
	cfg       *Config
	gotoRow   int
	sortSpec  string
	filterStr string
	width     int
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "anytable",
	Short: "Virtualized viewer for very large backend tables",
	Long: `anytable opens a table on a columnar SQL backend and pages through it
the way the headless core does: windowed fetches, sparse retention,
backend-side sort and filter.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return fmt.Errorf("--config is required")
		}
		var err error
		cfg, err = LoadConfig(cfgPath)
		return err
	},
}

var viewCmd = &cobra.Command{
	Use:   "view [table]",
	Short: "Print one window of a table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table := cfg.Table
		if len(args) == 1 {
			table = args[0]
		}
		if table == "" {
			return fmt.Errorf("no table given (config or argument)")
		}
		return view(cmd.Context(), table)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (required)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")
	viewCmd.Flags().IntVar(&gotoRow, "goto", 0, "first row to show")
	viewCmd.Flags().StringVar(&sortSpec, "sort", "", "sort column, e.g. ts or ts:desc")
	viewCmd.Flags().StringVar(&filterStr, "filter", "", "SQL filter predicate")
	viewCmd.Flags().IntVar(&width, "width", 120, "output width in characters")
	rootCmd.AddCommand(viewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func view(ctx context.Context, table string) error {
	sel := coord.NewSelection()
	co, cleanup, err := openCoordinator(ctx, sel)
	if err != nil {
		return err
	}
	defer cleanup()

	spec := anytable.TableSpec{
		Table:  table,
		RowKey: cfg.RowKey,
		Pins:   layout.Pins{Left: cfg.PinLeft, Right: cfg.PinRight},
	}
	for _, col := range cfg.Columns {
		spec.Columns = append(spec.Columns, anytable.ColumnSpec{
			Key:   col.Key,
			Width: layout.Parse(col.Width),
			Flex:  col.Flex,
			Min:   layout.Parse(col.Min),
			Max:   layout.Parse(col.Max),
		})
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	tbl, err := anytable.Open(ctx, co, spec, anytable.WithLogLevel(level))
	if err != nil {
		return err
	}
	defer tbl.Close()

	if filterStr != "" {
		sel.Set(filterStr)
	}
	data := tbl.Data()
	if sortSpec != "" {
		order, err := parseSort(sortSpec)
		if err != nil {
			return err
		}
		if err := data.SetSort(ctx, order); err != nil {
			return err
		}
	}

	// layout in character cells: one cell per 8px at the default root size
	snap := tbl.Layout(layout.Context{ContainerWidth: float64(width) * 8, RootFontSize: 16})

	data.SetWindow(ctx, gotoRow, cfg.PageSize)
	if err := waitLoaded(ctx, data, gotoRow); err != nil {
		return err
	}

	printWindow(data, snap, gotoRow, cfg.PageSize)
	fmt.Printf("\nrows %d-%d of %d\n", gotoRow, min(gotoRow+cfg.PageSize, data.TotalRows()), data.TotalRows())
	return nil
}

func openCoordinator(ctx context.Context, sel *coord.Selection) (coord.Coordinator, func(), error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		co := pgcoord.New(pool, sel)
		return co, func() { co.Close(); pool.Close() }, nil
	default:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite: %w", err)
		}
		co := sqlcoord.New(db, sel)
		return co, func() { co.Close(); db.Close() }, nil
	}
}

func parseSort(spec string) ([]anytable.Order, error) {
	var orders []anytable.Order
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		col, dir, hasDir := strings.Cut(part, ":")
		o := anytable.Order{Column: col}
		if hasDir {
			switch strings.ToLower(dir) {
			case "desc":
				o.Desc = true
			case "asc":
			default:
				return nil, fmt.Errorf("sort direction must be asc or desc, got %q", dir)
			}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// waitLoaded polls until the first requested row arrived or the query
// settled without it.
func waitLoaded(ctx context.Context, data *anytable.DataHandle, row int) error {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if err := data.Err(); err != nil {
			return err
		}
		if data.TotalRows() == 0 && !data.IsLoading() {
			return nil
		}
		if row >= data.TotalRows() && data.TotalRows() > 0 {
			return nil
		}
		if data.HasRow(row) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return fmt.Errorf("timed out waiting for rows")
}

func printWindow(data *anytable.DataHandle, snap *layout.Snapshot, start, count int) {
	schema := data.Schema()

	var header []string
	for _, col := range snap.Columns() {
		header = append(header, pad(col.Key, cellWidth(snap, col.Key)))
	}
	fmt.Println(strings.Join(header, " "))

	end := start + count
	if total := data.TotalRows(); end > total {
		end = total
	}
	for i := start; i < end; i++ {
		row, ok := data.GetRow(i)
		if !ok {
			fmt.Println("…loading…")
			continue
		}
		fmt.Println(renderRow(row, schema, snap))
	}
}

func renderRow(row rowstore.Row, schema []sqltype.ColumnSchema, snap *layout.Snapshot) string {
	cells := make([]string, 0, len(schema))
	for _, col := range snap.Columns() {
		var s string
		if v, ok := row[col.Key].(sqltype.Value); ok {
			s = formatValue(v)
		} else if v := row[col.Key]; v != nil {
			s = fmt.Sprintf("%v", v)
		}
		cells = append(cells, pad(s, cellWidth(snap, col.Key)))
	}
	return strings.Join(cells, " ")
}

func formatValue(v sqltype.Value) string {
	switch t := v.V.(type) {
	case nil:
		return ""
	case sqltype.BigValue:
		return t.Display
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func cellWidth(snap *layout.Snapshot, key string) int {
	w := int(snap.Width(key) / 8)
	if w < 3 {
		w = 3
	}
	return w
}

func pad(s string, w int) string {
	if len(s) > w {
		if w <= 1 {
			return s[:w]
		}
		return s[:w-1] + "…"
	}
	return s + strings.Repeat(" ", w-len(s))
}
