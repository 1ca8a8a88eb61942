// Package layout resolves mixed-unit column width declarations into absolute
// pixel widths and offsets across the three pin regions.
package layout

import (
	"math"
	"strconv"
	"strings"
)

// autoSentinel marks a width that must be inferred from the column category.
const autoSentinel = -1

// Width is a column size declaration: a bare number (pixels), a string with
// a px, %, rem or em suffix, or the literal "auto". The zero Width is unset.
type Width struct {
	s string
}

// Px declares an absolute pixel width.
func Px(n float64) Width { return Width{s: formatFloat(n) + "px"} }

// Rem declares a width relative to the root font size.
func Rem(n float64) Width { return Width{s: formatFloat(n) + "rem"} }

// Em declares a width relative to the table-local font size.
func Em(n float64) Width { return Width{s: formatFloat(n) + "em"} }

// Percent declares a width as a fraction of the container width.
func Percent(n float64) Width { return Width{s: formatFloat(n) + "%"} }

// Auto declares a width inferred from the column category.
func Auto() Width { return Width{s: "auto"} }

// Parse wraps a raw declaration string ("120", "120px", "25%", "5rem",
// "2em", "auto") without validating it; invalid strings resolve to zero.
func Parse(s string) Width { return Width{s: strings.TrimSpace(s)} }

// IsZero reports whether the width was never declared.
func (w Width) IsZero() bool { return w.s == "" }

// IsAuto reports an explicit "auto" declaration.
func (w Width) IsAuto() bool { return w.s == "auto" }

func (w Width) String() string { return w.s }

func formatFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Context carries the measurements a resolve pass needs.
type Context struct {
	ContainerWidth float64
	RootFontSize   float64 // px per rem
	TableFontSize  float64 // px per em

	// Row height inputs. Zero values fall back to one 1.5rem line with
	// 0.5rem padding.
	NumLines   int
	LineHeight Width
	Padding    Width
}

func (ctx Context) withDefaults() Context {
	if ctx.RootFontSize <= 0 {
		ctx.RootFontSize = 16
	}
	if ctx.TableFontSize <= 0 {
		ctx.TableFontSize = ctx.RootFontSize
	}
	if ctx.ContainerWidth < 0 || math.IsNaN(ctx.ContainerWidth) {
		ctx.ContainerWidth = 0
	}
	if ctx.NumLines <= 0 {
		ctx.NumLines = 1
	}
	if ctx.LineHeight.IsZero() {
		ctx.LineHeight = Rem(1.5)
	}
	if ctx.Padding.IsZero() {
		ctx.Padding = Rem(0.5)
	}
	return ctx
}

// Resolve converts a width declaration to pixels. "auto" resolves to the
// -1 sentinel; unset and unparseable declarations resolve to 0. Negative
// and NaN results clamp to 0.
func Resolve(w Width, ctx Context) float64 {
	ctx = ctx.withDefaults()

	s := w.s
	if s == "" {
		return 0
	}
	if s == "auto" {
		return autoSentinel
	}

	unit := ""
	num := s
	switch {
	case strings.HasSuffix(s, "px"):
		unit, num = "px", s[:len(s)-2]
	case strings.HasSuffix(s, "%"):
		unit, num = "%", s[:len(s)-1]
	case strings.HasSuffix(s, "rem"):
		unit, num = "rem", s[:len(s)-3]
	case strings.HasSuffix(s, "em"):
		unit, num = "em", s[:len(s)-2]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || math.IsNaN(n) {
		return 0
	}

	var px float64
	switch unit {
	case "", "px":
		px = n
	case "%":
		px = n / 100 * ctx.ContainerWidth
	case "rem":
		px = n * ctx.RootFontSize
	case "em":
		px = n * ctx.TableFontSize
	}

	if px < 0 || math.IsNaN(px) {
		return 0
	}
	return px
}
