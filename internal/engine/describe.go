package engine

import (
	"math"
	"sort"

	"foodprices/internal/models"
)

// Describe computes count, mean, sample standard deviation, min,
// quartiles and max for year and price over the view.
// With no rows every statistic except Count is NaN; with one row Std is NaN.
func Describe(v View) models.Description {
	years := make([]float64, v.Len())
	prices := make([]float64, v.Len())
	for i, row := range v.rows {
		years[i] = float64(v.store.Years[row])
		prices[i] = v.store.Prices[row]
	}
	return models.Description{
		Year:  describeColumn(years),
		Price: describeColumn(prices),
	}
}

// describeColumn sorts values in place.
func describeColumn(values []float64) models.ColumnStats {
	n := len(values)
	if n == 0 {
		nan := math.NaN()
		return models.ColumnStats{Mean: nan, Std: nan, Min: nan, P25: nan, P50: nan, P75: nan, Max: nan}
	}

	var sum float64
	for _, x := range values {
		sum += x
	}
	mean := sum / float64(n)

	std := math.NaN()
	if n > 1 {
		var ss float64
		for _, x := range values {
			d := x - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}

	sort.Float64s(values)
	return models.ColumnStats{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   values[0],
		P25:   quantileSorted(values, 0.25),
		P50:   quantileSorted(values, 0.5),
		P75:   quantileSorted(values, 0.75),
		Max:   values[n-1],
	}
}

// quantileSorted interpolates linearly between the closest ranks of a
// sorted, non-empty slice.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
