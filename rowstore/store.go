package rowstore

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// BlockCache receives evicted row blocks and serves them back on recovery.
// Implementations key blocks by generation so a stale block is never
// surfaced after a sort or filter change.
type BlockCache interface {
	Put(gen uint64, offset int, rows []Row)
	Get(gen uint64, offset, limit int) ([]Row, bool)
}

// Store is the sparse data model: a mapping from position to row record
// plus the authoritative total count of the current filtered result set.
//
// The mapping and the count are updated independently and may be
// transiently inconsistent; consumers treat an absent position as loading.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	rows   map[int]Row
	loaded *roaring.Bitmap
	total  int
	gen    uint64

	loading int

	cache BlockCache // optional spill target
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rows:   make(map[int]Row),
		loaded: roaring.New(),
	}
}

// SetBlockCache attaches a spill cache for evicted blocks. Pass nil to
// detach.
func (s *Store) SetBlockCache(c BlockCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = c
}

// TotalRows returns the authoritative count of the current filtered set.
func (s *Store) TotalRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// SetTotalRows replaces the count. Rows at positions >= n are discarded.
func (s *Store) SetTotalRows(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = n
	for pos := range s.rows {
		if pos >= n {
			delete(s.rows, pos)
			s.loaded.Remove(uint32(pos))
		}
	}
}

// GetRow returns the row at position i, or ok=false while it is loading.
func (s *Store) GetRow(i int) (Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[i]
	return r, ok
}

// HasRow reports whether position i is loaded.
func (s *Store) HasRow(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded.Contains(uint32(i))
}

// MergeRows inserts or overwrites rows at offset..offset+len-1,
// last-writer-wins per position. Positions at or beyond the current total
// are stored as delivered; a later SetTotalRows reconciles them.
func (s *Store) MergeRows(offset int, rows []Row) {
	if offset < 0 || len(rows) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(offset, rows)
}

// MergeRowsIf merges only when gen still matches the store's generation,
// dropping deliveries produced under an earlier sort or filter. It reports
// whether the merge happened.
func (s *Store) MergeRowsIf(gen uint64, offset int, rows []Row) bool {
	if offset < 0 || len(rows) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.merge(offset, rows)
	return true
}

func (s *Store) merge(offset int, rows []Row) {
	for i, r := range rows {
		pos := offset + i
		s.rows[pos] = r
		s.loaded.Add(uint32(pos))
	}
}

// Clear empties the mapping and bumps the generation. The total is kept;
// count and rows arrive independently.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[int]Row)
	s.loaded.Clear()
	s.gen++
}

// Generation identifies the current (filter, sort) mapping epoch. Clear
// advances it; deliveries stamped with an older generation are dropped.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Evict discards rows outside [keepStart, keepEnd). It is idempotent and
// never removes rows inside the keep range. Evicted contiguous runs are
// offered to the attached block cache, if any.
func (s *Store) Evict(keepStart, keepEnd int) {
	if keepStart < 0 {
		keepStart = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var positions []int
	for pos := range s.rows {
		if pos < keepStart || pos >= keepEnd {
			positions = append(positions, pos)
		}
	}
	if len(positions) == 0 {
		return
	}

	if s.cache != nil {
		for _, run := range contiguousRuns(positions) {
			block := make([]Row, len(run))
			for i, pos := range run {
				block[i] = s.rows[pos]
			}
			s.cache.Put(s.gen, run[0], block)
		}
	}

	for _, pos := range positions {
		delete(s.rows, pos)
		s.loaded.Remove(uint32(pos))
	}
}

// Recover pulls a previously evicted block back from the cache. It returns
// false when no block covers the requested window or the cached block is
// from an older generation.
func (s *Store) Recover(offset, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == nil {
		return false
	}
	rows, ok := s.cache.Get(s.gen, offset, limit)
	if !ok {
		return false
	}
	s.merge(offset, rows)
	return true
}

// LoadedCount returns how many positions are currently resident.
func (s *Store) LoadedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.loaded.GetCardinality())
}

// RangeLoaded reports whether every position in [start, end) is resident.
// The empty range is loaded.
func (s *Store) RangeLoaded(start, end int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := start; i < end; i++ {
		if !s.loaded.Contains(uint32(i)) {
			return false
		}
	}
	return true
}

// MissingIn returns the first absent position in [start, end), or -1 when
// the range is fully loaded.
func (s *Store) MissingIn(start, end int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := start; i < end; i++ {
		if !s.loaded.Contains(uint32(i)) {
			return i
		}
	}
	return -1
}

// BeginLoad marks a query in flight.
func (s *Store) BeginLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
}

// EndLoad marks a query completed.
func (s *Store) EndLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading > 0 {
		s.loading--
	}
}

// IsLoading reports whether any query is currently in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// contiguousRuns splits an unordered position set into sorted runs of
// consecutive positions.
func contiguousRuns(positions []int) [][]int {
	if len(positions) == 0 {
		return nil
	}
	sort.Ints(positions)

	var runs [][]int
	run := []int{positions[0]}
	for _, pos := range positions[1:] {
		if pos == run[len(run)-1]+1 {
			run = append(run, pos)
			continue
		}
		runs = append(runs, run)
		run = []int{pos}
	}
	return append(runs, run)
}
