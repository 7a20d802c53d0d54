package engine

import (
	"sort"

	"foodprices/internal/models"
)

type priceAcc struct {
	Sum   float64
	Count int
}

// CountByCountryAndPriceType counts view rows per (country, price type).
// Only non-empty groups are returned, ordered by country then price type.
func CountByCountryAndPriceType(v View) []models.CountRow {
	out := make([]models.CountRow, 0)
	if v.Len() == 0 {
		return out
	}
	cs := v.store
	numTypes := len(cs.PriceTypeDict)

	// THE MATRIX: Flattened [Country][PriceType] -> [Country * numTypes + PriceType]
	matrixSize := len(cs.CountryDict) * numTypes
	partials := make([][]int, numChunks(v.Len()))

	forEachChunk(v.Len(), func(chunk, start, end int) {
		m := make([]int, matrixSize)
		idsC := cs.CountryIDs
		idsT := cs.PriceTypeIDs
		for j := start; j < end; j++ {
			row := v.rows[j]
			m[int(idsC[row])*numTypes+int(idsT[row])]++
		}
		partials[chunk] = m
	})

	final := make([]int, matrixSize)
	for _, m := range partials {
		for i, c := range m {
			final[i] += c
		}
	}

	for i, c := range final {
		if c == 0 {
			continue
		}
		out = append(out, models.CountRow{
			Country:   cs.CountryDict[i/numTypes],
			PriceType: cs.PriceTypeDict[i%numTypes],
			Count:     c,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].PriceType < out[j].PriceType
	})
	return out
}

// AveragePriceByYearAndCommodity averages prices per (year, commodity),
// ordered by year then commodity. NaN prices propagate into their group.
func AveragePriceByYearAndCommodity(v View) []models.MeanRow {
	out := make([]models.MeanRow, 0)
	if v.Len() == 0 {
		return out
	}
	cs := v.store
	numComm := len(cs.CommodityDict)

	slots := newYearSlots(v)

	// Flattened [year slot][Commodity]
	matrixSize := len(slots.years) * numComm
	partials := make([][]priceAcc, numChunks(v.Len()))

	forEachChunk(v.Len(), func(chunk, start, end int) {
		m := make([]priceAcc, matrixSize)
		years := cs.Years
		ids := cs.CommodityIDs
		prices := cs.Prices
		for j := start; j < end; j++ {
			row := v.rows[j]
			idx := slots.slot(years[row])*numComm + int(ids[row])
			m[idx].Sum += prices[row]
			m[idx].Count++
		}
		partials[chunk] = m
	})

	// Merge in chunk order so float sums are reproducible.
	final := make([]priceAcc, matrixSize)
	for _, m := range partials {
		for i := range m {
			if m[i].Count > 0 {
				final[i].Sum += m[i].Sum
				final[i].Count += m[i].Count
			}
		}
	}

	for i, acc := range final {
		if acc.Count == 0 {
			continue
		}
		out = append(out, models.MeanRow{
			Year:      int(slots.years[i/numComm]),
			Commodity: cs.CommodityDict[i%numComm],
			MeanPrice: acc.Sum / float64(acc.Count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Commodity < out[j].Commodity
	})
	return out
}

// PriceDistribution summarizes the spread of prices for every
// (country, commodity) pair in the view.
func PriceDistribution(v View) []models.DistributionRow {
	out := make([]models.DistributionRow, 0)
	if v.Len() == 0 {
		return out
	}
	cs := v.store
	numComm := len(cs.CommodityDict)

	groups := make(map[int][]float64)
	for i := 0; i < v.Len(); i++ {
		row := v.rows[i]
		key := int(cs.CountryIDs[row])*numComm + int(cs.CommodityIDs[row])
		groups[key] = append(groups[key], cs.Prices[row])
	}

	for key, prices := range groups {
		sort.Float64s(prices)
		out = append(out, models.DistributionRow{
			Country:   cs.CountryDict[key/numComm],
			Commodity: cs.CommodityDict[key%numComm],
			Count:     len(prices),
			Min:       prices[0],
			Q1:        quantileSorted(prices, 0.25),
			Median:    quantileSorted(prices, 0.5),
			Q3:        quantileSorted(prices, 0.75),
			Max:       prices[len(prices)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Commodity < out[j].Commodity
	})
	return out
}

// maxYearTable bounds the year span indexed through a flat lookup table.
// Wider spans fall back to a map.
const maxYearTable = 1 << 12

// yearSlots gives each year present in a view a dense index, ascending by
// year, so matrices grow with the number of distinct years and not with
// their span.
type yearSlots struct {
	years []int32 // slot -> year
	min   int32
	table []int32 // year-min -> slot
	index map[int32]int
}

func newYearSlots(v View) yearSlots {
	years := v.store.Years
	minYear, maxYear := viewYearBounds(v)
	ys := yearSlots{min: minYear}

	span := int64(maxYear) - int64(minYear) + 1
	if span <= maxYearTable {
		seen := make([]bool, span)
		for _, row := range v.rows {
			seen[years[row]-minYear] = true
		}
		ys.table = make([]int32, span)
		for off, ok := range seen {
			if ok {
				ys.table[off] = int32(len(ys.years))
				ys.years = append(ys.years, minYear+int32(off))
			}
		}
		return ys
	}

	ys.index = make(map[int32]int)
	for _, row := range v.rows {
		if _, ok := ys.index[years[row]]; !ok {
			ys.index[years[row]] = 0
			ys.years = append(ys.years, years[row])
		}
	}
	sort.Slice(ys.years, func(i, j int) bool { return ys.years[i] < ys.years[j] })
	for i, y := range ys.years {
		ys.index[y] = i
	}
	return ys
}

func (ys yearSlots) slot(y int32) int {
	if ys.table != nil {
		return int(ys.table[y-ys.min])
	}
	return ys.index[y]
}

func viewYearBounds(v View) (int32, int32) {
	years := v.store.Years
	lo, hi := years[v.rows[0]], years[v.rows[0]]
	for _, row := range v.rows[1:] {
		y := years[row]
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return lo, hi
}
