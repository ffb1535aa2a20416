package moc

// Allocator hands out typed buffers for decoded model data. A loader uses
// two of them: a main pool whose buffers live as long as the model, and a
// scratch pool for transient decode buffers that is cleared once the load
// finishes.
type Allocator interface {
	Float32s(n int) []float32
	Int32s(n int) []int32
	Uint16s(n int) []uint16
	// Clear releases every buffer handed out so far. Buffers obtained
	// before Clear must not be used afterwards.
	Clear()
}

// Heap allocates every buffer with make and never reuses memory.
type Heap struct{}

func (Heap) Float32s(n int) []float32 { return make([]float32, n) }
func (Heap) Int32s(n int) []int32     { return make([]int32, n) }
func (Heap) Uint16s(n int) []uint16   { return make([]uint16, n) }
func (Heap) Clear()                   {}

// DefaultPageElems is the page length, in elements, of a new Arena.
const DefaultPageElems = 4096

// ArenaStats counts arena activity.
type ArenaStats struct {
	Allocs int // buffers handed out since creation
	Bytes  int // bytes handed out since the last Clear
	Pages  int // pages currently held
	Clears int
}

// Arena is a slab allocator. Requests are carved out of fixed-size pages;
// requests larger than a page get a dedicated page. Clear keeps the first
// page of each kind for reuse.
type Arena struct {
	pageElems int

	f32 slab[float32]
	i32 slab[int32]
	u16 slab[uint16]

	stats ArenaStats
}

// NewArena creates an arena with pages of pageElems elements. Values below
// 1 select DefaultPageElems.
func NewArena(pageElems int) *Arena {
	if pageElems < 1 {
		pageElems = DefaultPageElems
	}
	return &Arena{pageElems: pageElems}
}

func (a *Arena) Float32s(n int) []float32 {
	a.record(n * 4)
	return a.f32.take(n, a.pageElems, &a.stats)
}

func (a *Arena) Int32s(n int) []int32 {
	a.record(n * 4)
	return a.i32.take(n, a.pageElems, &a.stats)
}

func (a *Arena) Uint16s(n int) []uint16 {
	a.record(n * 2)
	return a.u16.take(n, a.pageElems, &a.stats)
}

func (a *Arena) Clear() {
	a.f32.reset()
	a.i32.reset()
	a.u16.reset()
	a.stats.Bytes = 0
	a.stats.Pages = a.f32.pageCount() + a.i32.pageCount() + a.u16.pageCount()
	a.stats.Clears++
}

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() ArenaStats {
	return a.stats
}

func (a *Arena) record(bytes int) {
	a.stats.Allocs++
	a.stats.Bytes += bytes
}

type slab[T any] struct {
	pages [][]T
	used  int // elements used in the last page
}

func (s *slab[T]) take(n, pageElems int, st *ArenaStats) []T {
	if n <= 0 {
		return nil
	}
	if n > pageElems {
		// Dedicated page, inserted before the current one so the current
		// page keeps serving small requests.
		p := make([]T, n)
		if len(s.pages) == 0 {
			s.pages = append(s.pages, p)
			s.used = n
		} else {
			last := s.pages[len(s.pages)-1]
			s.pages = append(s.pages[:len(s.pages)-1], p, last)
		}
		st.Pages++
		return p
	}
	if len(s.pages) == 0 || s.used+n > len(s.pages[len(s.pages)-1]) {
		s.pages = append(s.pages, make([]T, pageElems))
		s.used = 0
		st.Pages++
	}
	p := s.pages[len(s.pages)-1]
	out := p[s.used : s.used+n : s.used+n]
	s.used += n
	return out
}

func (s *slab[T]) reset() {
	if len(s.pages) == 0 {
		return
	}
	first := s.pages[0]
	clear(first)
	s.pages = s.pages[:1]
	s.pages[0] = first
	s.used = 0
}

func (s *slab[T]) pageCount() int {
	return len(s.pages)
}
