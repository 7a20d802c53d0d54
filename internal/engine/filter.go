package engine

import (
	"math"
	"runtime"

	"foodprices/internal/models"

	"golang.org/x/sync/errgroup"
)

// chunkRows is the fixed scan unit. Results are merged chunk by chunk in
// index order, so output never depends on how many CPUs did the work.
const chunkRows = 1 << 16

// View is an ordered subset of a ColumnStore, held as row indices.
// No record data is copied.
type View struct {
	store *ColumnStore
	rows  []int
}

// FullView returns a view over every row of the store.
func FullView(cs *ColumnStore) View {
	rows := make([]int, cs.Len())
	for i := range rows {
		rows[i] = i
	}
	return View{store: cs, rows: rows}
}

func (v View) Len() int { return len(v.rows) }

// Row returns the store row index of the i-th view entry.
func (v View) Row(i int) int { return v.rows[i] }

// Rows returns a copy of the store row indices.
func (v View) Rows() []int {
	out := make([]int, len(v.rows))
	copy(out, v.rows)
	return out
}

// Record returns the i-th record of the view.
func (v View) Record(i int) models.Record { return v.store.Record(v.rows[i]) }

// Store returns the store the view indexes into.
func (v View) Store() *ColumnStore { return v.store }

// Slice returns records [offset, offset+limit) of the view, clamped to
// its bounds.
func (v View) Slice(offset, limit int) []models.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(v.rows) || limit <= 0 {
		return []models.Record{}
	}
	end := offset + limit
	if end > len(v.rows) {
		end = len(v.rows)
	}
	out := make([]models.Record, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, v.Record(i))
	}
	return out
}

// Head returns the first n records of the view.
func Head(v View, n int) []models.Record {
	return v.Slice(0, n)
}

// Filter returns the rows matching every predicate of sel, in store order.
// An empty country or commodity list selects nothing, and so does an
// inverted year range. Names unknown to the store match nothing.
func Filter(cs *ColumnStore, sel models.FilterSelection) View {
	empty := View{store: cs, rows: []int{}}
	if len(sel.Countries) == 0 || len(sel.Commodities) == 0 || sel.YearFrom > sel.YearTo {
		return empty
	}

	countryOK, anyCountry := membership(cs.CountryDict, sel.Countries)
	commodityOK, anyCommodity := membership(cs.CommodityDict, sel.Commodities)
	if !anyCountry || !anyCommodity {
		return empty
	}

	from, to := clampYear(sel.YearFrom), clampYear(sel.YearTo)
	countries := cs.CountryIDs
	commodities := cs.CommodityIDs
	years := cs.Years

	parts := make([][]int, numChunks(cs.Len()))
	forEachChunk(cs.Len(), func(chunk, start, end int) {
		local := make([]int, 0, (end-start)/4)
		for j := start; j < end; j++ {
			y := years[j]
			if y < from || y > to {
				continue
			}
			if !countryOK[countries[j]] || !commodityOK[commodities[j]] {
				continue
			}
			local = append(local, j)
		}
		parts[chunk] = local
	})

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	rows := make([]int, 0, total)
	for _, p := range parts {
		rows = append(rows, p...)
	}
	return View{store: cs, rows: rows}
}

// clampYear narrows a year bound to the stored width. Stored years never
// leave the int32 range, so a clamped bound selects the same rows.
func clampYear(y int) int32 {
	switch {
	case y < math.MinInt32:
		return math.MinInt32
	case y > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(y)
}

// membership translates selected names into a lookup table indexed by
// dictionary id. The second result reports whether any name matched.
func membership(dict []string, selected []string) ([]bool, bool) {
	want := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		want[s] = struct{}{}
	}
	ok := make([]bool, len(dict))
	found := false
	for id, name := range dict {
		if _, hit := want[name]; hit {
			ok[id] = true
			found = true
		}
	}
	return ok, found
}

func numChunks(n int) int {
	return (n + chunkRows - 1) / chunkRows
}

// forEachChunk runs fn over [0, n) split into chunkRows-sized pieces,
// using at most NumCPU goroutines. fn must only write to state owned by
// its chunk index.
func forEachChunk(n int, fn func(chunk, start, end int)) {
	chunks := numChunks(n)
	if chunks <= 1 {
		if n > 0 {
			fn(0, 0, n)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for c := 0; c < chunks; c++ {
		start := c * chunkRows
		end := start + chunkRows
		if end > n {
			end = n
		}
		g.Go(func() error {
			fn(c, start, end)
			return nil
		})
	}
	_ = g.Wait()
}
