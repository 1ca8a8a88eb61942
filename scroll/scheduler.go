package scroll

import (
	"context"
	"math"
	"sync"

	"github.com/karthikbadam/any-table/resource"
)

// DataModel is the surface the scheduler drives: the authoritative row
// count, the fetch window setter and the retention hint.
type DataModel interface {
	TotalRows() int
	SetWindow(ctx context.Context, offset, limit int)
	Retain(keepStart, keepEnd int)
}

// Observer receives the visible range and scroll top after they changed,
// at most once per frame and always before any fetch-window change of the
// same tick.
type Observer func(visible Range, scrollTop float64)

// Options tunes the scheduler.
type Options struct {
	// Overscan is the number of rows rendered beyond each edge of the
	// visible range. Defaults to 8.
	Overscan int

	// PadFactor scales the fetch band relative to the render range.
	// Values below 3 are raised to 3.
	PadFactor int

	// RetentionFactor scales the retention radius relative to the fetch
	// limit. Defaults to 2.
	RetentionFactor int
}

// DefaultOptions are the options used for zero values.
var DefaultOptions = Options{
	Overscan:        8,
	PadFactor:       3,
	RetentionFactor: 2,
}

func (o Options) withDefaults() Options {
	if o.Overscan <= 0 {
		o.Overscan = DefaultOptions.Overscan
	}
	if o.PadFactor < 3 {
		o.PadFactor = DefaultOptions.PadFactor
	}
	if o.RetentionFactor <= 0 {
		o.RetentionFactor = DefaultOptions.RetentionFactor
	}
	return o
}

// Scheduler owns the scroll position and runs the per-frame update loop:
// recompute the visible range, publish it, decide whether the fetch
// window must move, and hand the retention range to the data model.
//
// Scroll inputs mutate internal state immediately and only schedule a
// frame; successive deltas within one frame coalesce into a single
// observation.
type Scheduler struct {
	mu sync.Mutex

	data   DataModel
	frames Frames
	rc     *resource.Controller
	opts   Options

	scrollTop  float64
	scrollLeft float64

	viewportHeight float64
	viewportWidth  float64
	rowHeight      float64
	totalWidth     float64

	framePending bool
	cancelFrame  func()
	closed       bool

	lastVisible   Range
	published     bool
	lastScrollTop float64

	window      Range // requested fetch window, half-open
	windowValid bool

	observers []Observer
}

// NewScheduler creates a scheduler over the data model. rc may be nil;
// when set, fetch-window changes are gated by its query rate limit and
// denied requests retry on a follow-up frame.
func NewScheduler(data DataModel, frames Frames, rc *resource.Controller, opts Options) *Scheduler {
	return &Scheduler{
		data:   data,
		frames: frames,
		rc:     rc,
		opts:   opts.withDefaults(),
	}
}

// SetLayout installs the current layout measurements. Call again whenever
// a new layout snapshot is computed.
func (s *Scheduler) SetLayout(rowHeight, totalWidth float64) {
	s.mu.Lock()
	s.rowHeight = rowHeight
	s.totalWidth = totalWidth
	s.mu.Unlock()
	s.schedule()
}

// SetViewport installs the viewport's inner size.
func (s *Scheduler) SetViewport(height, width float64) {
	s.mu.Lock()
	s.viewportHeight = height
	s.viewportWidth = width
	s.mu.Unlock()
	s.schedule()
}

// Observe registers a visible-range observer and returns its cancel func.
func (s *Scheduler) Observe(fn Observer) (cancel func()) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	idx := len(s.observers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.observers[idx] = nil
		s.mu.Unlock()
	}
}

// ScrollTop returns the current vertical scroll position.
func (s *Scheduler) ScrollTop() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollTop
}

// ScrollLeft returns the current horizontal scroll position.
func (s *Scheduler) ScrollLeft() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollLeft
}

// VisibleRowRange returns the visible range as of the last tick.
func (s *Scheduler) VisibleRowRange() Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVisible
}

// SetScrollTop records a native scroll event's position and schedules a
// tick.
func (s *Scheduler) SetScrollTop(px float64) {
	s.mu.Lock()
	s.scrollTop = s.clampTopLocked(px)
	s.mu.Unlock()
	s.schedule()
}

// ScrollBy applies a synthetic wheel or touch delta.
func (s *Scheduler) ScrollBy(dx, dy float64) {
	s.mu.Lock()
	s.scrollTop = s.clampTopLocked(s.scrollTop + dy)
	s.scrollLeft = s.clampLeftLocked(s.scrollLeft + dx)
	s.mu.Unlock()
	s.schedule()
}

// ScrollToRow jumps so that row i sits at the top edge of the viewport.
func (s *Scheduler) ScrollToRow(i int) {
	s.mu.Lock()
	if i < 0 {
		i = 0
	}
	s.scrollTop = s.clampTopLocked(float64(i) * s.rowHeight)
	s.mu.Unlock()
	s.schedule()
}

// ScrollToTop jumps to the first row.
func (s *Scheduler) ScrollToTop() {
	s.mu.Lock()
	s.scrollTop = 0
	s.mu.Unlock()
	s.schedule()
}

// ScrollToX sets the horizontal position.
func (s *Scheduler) ScrollToX(px float64) {
	s.mu.Lock()
	s.scrollLeft = s.clampLeftLocked(px)
	s.mu.Unlock()
	s.schedule()
}

// Close cancels any pending frame. In-flight query results are dropped by
// the data model's own generation and retention checks.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancelFrame != nil {
		s.cancelFrame()
		s.cancelFrame = nil
	}
	s.framePending = false
}

func (s *Scheduler) clampTopLocked(px float64) float64 {
	if px < 0 {
		return 0
	}
	max := float64(s.data.TotalRows())*s.rowHeight - s.viewportHeight
	if max < 0 {
		max = 0
	}
	if px > max {
		return max
	}
	return px
}

func (s *Scheduler) clampLeftLocked(px float64) float64 {
	if px < 0 {
		return 0
	}
	max := s.totalWidth - s.viewportWidth
	if max < 0 {
		max = 0
	}
	if px > max {
		return max
	}
	return px
}

// schedule requests a tick if none is pending.
func (s *Scheduler) schedule() {
	s.mu.Lock()
	if s.framePending || s.closed {
		s.mu.Unlock()
		return
	}
	s.framePending = true
	s.mu.Unlock()

	cancel := s.frames.Request(s.tick)

	s.mu.Lock()
	s.cancelFrame = cancel
	s.mu.Unlock()
}

// tick is one frame of the update loop.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.framePending = false
	s.cancelFrame = nil

	total := s.data.TotalRows()
	visible := VisibleRange(s.scrollTop, s.viewportHeight, s.rowHeight, total)
	scrollTop := s.scrollTop

	changed := !s.published || visible != s.lastVisible || scrollTop != s.lastScrollTop
	s.lastVisible = visible
	s.lastScrollTop = scrollTop
	s.published = true

	render := s.renderRangeLocked(visible, total)
	needFetch := !s.windowValid || !s.window.Contains(render)

	var observers []Observer
	if changed {
		observers = append(observers, s.observers...)
	}
	s.mu.Unlock()

	// observers always see the latest values before any window change
	for _, fn := range observers {
		if fn != nil {
			fn(visible, scrollTop)
		}
	}

	if needFetch {
		s.requestWindow(render, visible, total)
	}

	s.mu.Lock()
	windowValid, window := s.windowValid, s.window
	s.mu.Unlock()
	if windowValid {
		limit := window.Len()
		r := s.opts.RetentionFactor * limit
		keepStart := visible.Start - r
		if keepStart < 0 {
			keepStart = 0
		}
		keepEnd := visible.End + r
		if keepEnd > total {
			keepEnd = total
		}
		s.data.Retain(keepStart, keepEnd)
	}
}

// renderRangeLocked widens the visible range by the overscan, clamped to
// [0, total].
func (s *Scheduler) renderRangeLocked(visible Range, total int) Range {
	start := visible.Start - s.opts.Overscan
	if start < 0 {
		start = 0
	}
	end := visible.End + s.opts.Overscan
	if end > total {
		end = total
	}
	if end < start {
		end = start
	}
	return Range{Start: start, End: end}
}

// requestWindow computes and issues the new fetch window: a padded band
// centered on the render range, clamped and page-aligned.
func (s *Scheduler) requestWindow(render Range, visible Range, total int) {
	if s.rc != nil && !s.rc.AllowQuery() {
		// denied by the rate guard; retry on a follow-up frame
		s.schedule()
		return
	}

	s.mu.Lock()
	viewportRows := 1
	if s.rowHeight > 0 {
		viewportRows = int(math.Ceil(s.viewportHeight / s.rowHeight))
		if viewportRows < 1 {
			viewportRows = 1
		}
	}

	band := render.Len()
	if minBand := 3 * viewportRows; band < minBand {
		band = minBand
	}
	band *= s.opts.PadFactor

	mid := (render.Start + render.End) / 2
	offset := mid - band/2
	if offset < 0 {
		offset = 0
	}
	// page alignment reduces churn from small scroll deltas
	offset = (offset / viewportRows) * viewportRows

	if total > 0 {
		if offset >= total {
			offset = ((total - 1) / viewportRows) * viewportRows
		}
		if offset+band > total {
			band = total - offset
		}
	}
	if band < 1 {
		band = 1
	}

	window := Range{Start: offset, End: offset + band}
	if s.windowValid && window == s.window {
		s.mu.Unlock()
		return
	}
	s.window = window
	s.windowValid = true
	s.mu.Unlock()

	s.data.SetWindow(context.Background(), window.Start, window.Len())
}

// Window returns the last requested fetch window and whether one was
// requested yet.
func (s *Scheduler) Window() (Range, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window, s.windowValid
}
