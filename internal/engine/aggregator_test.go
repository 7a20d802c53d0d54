package engine

import (
	"math"
	"testing"

	"foodprices/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	// 1. Setup Mock Data (ColumnStore)
	// Row 0: Niger,  Millet, Retail,    2019, 100
	// Row 1: Niger,  Rice,   Wholesale, 2019, 200
	// Row 2: Chad,   Millet, Retail,    2020, 50
	// Row 3: Niger,  Millet, Retail,    2019, 300
	store := &ColumnStore{
		Prices: []float64{100.0, 200.0, 50.0, 300.0},
		Years:  []int32{2019, 2019, 2020, 2019},
		Months: []int32{1, 2, 5, 6},

		CountryIDs:   []int32{0, 0, 1, 0}, // 0=Niger, 1=Chad
		RegionIDs:    []int32{0, 0, 0, 0},
		MarketIDs:    []int32{0, 0, 0, 0},
		CommodityIDs: []int32{0, 1, 0, 0}, // 0=Millet, 1=Rice
		CurrencyIDs:  []int32{0, 0, 0, 0},
		PriceTypeIDs: []int32{0, 1, 0, 0}, // 0=Retail, 1=Wholesale
		UnitIDs:      []int32{0, 0, 0, 0},

		CountryDict:   []string{"Niger", "Chad"},
		RegionDict:    []string{""},
		MarketDict:    []string{""},
		CommodityDict: []string{"Millet", "Rice"},
		CurrencyDict:  []string{"XOF"},
		PriceTypeDict: []string{"Retail", "Wholesale"},
		UnitDict:      []string{"KG"},
	}
	view := FullView(store)

	// 2. Run Aggregation
	counts := CountByCountryAndPriceType(view)
	means := AveragePriceByYearAndCommodity(view)

	// 3. Assertions

	// A. Counts, ordered by country name rather than dictionary id
	wantCounts := []models.CountRow{
		{Country: "Chad", PriceType: "Retail", Count: 1},
		{Country: "Niger", PriceType: "Retail", Count: 2},
		{Country: "Niger", PriceType: "Wholesale", Count: 1},
	}
	if len(counts) != len(wantCounts) {
		t.Fatalf("Expected %d count rows, got %d", len(wantCounts), len(counts))
	}
	for i, want := range wantCounts {
		if counts[i] != want {
			t.Errorf("Count row %d: expected %+v, got %+v", i, want, counts[i])
		}
	}

	// B. Means per (year, commodity)
	// 2019 Millet: (100 + 300) / 2
	wantMeans := []models.MeanRow{
		{Year: 2019, Commodity: "Millet", MeanPrice: 200.0},
		{Year: 2019, Commodity: "Rice", MeanPrice: 200.0},
		{Year: 2020, Commodity: "Millet", MeanPrice: 50.0},
	}
	if len(means) != len(wantMeans) {
		t.Fatalf("Expected %d mean rows, got %d", len(wantMeans), len(means))
	}
	for i, want := range wantMeans {
		if means[i] != want {
			t.Errorf("Mean row %d: expected %+v, got %+v", i, want, means[i])
		}
	}
}

func TestAggregateExample(t *testing.T) {
	view := FullView(exampleStore())

	assert.Equal(t, []models.CountRow{
		{Country: "A", PriceType: "Retail", Count: 2},
		{Country: "B", PriceType: "Wholesale", Count: 1},
	}, CountByCountryAndPriceType(view))

	assert.Equal(t, []models.MeanRow{
		{Year: 2020, Commodity: "Rice", MeanPrice: 15.0},
		{Year: 2021, Commodity: "Wheat", MeanPrice: 5.0},
	}, AveragePriceByYearAndCommodity(view))
}

func TestAggregateEmptyView(t *testing.T) {
	store := exampleStore()
	view := Filter(store, models.FilterSelection{Countries: []string{}})

	counts := CountByCountryAndPriceType(view)
	require.NotNil(t, counts)
	assert.Empty(t, counts)

	means := AveragePriceByYearAndCommodity(view)
	require.NotNil(t, means)
	assert.Empty(t, means)

	dist := PriceDistribution(view)
	require.NotNil(t, dist)
	assert.Empty(t, dist)
}

func TestAggregateSingleRecord(t *testing.T) {
	store := NewColumnStore([]models.Record{
		{Country: "Peru", Commodity: "Potatoes", PriceType: "Retail", Year: 2015, Price: 1.37},
	})
	view := FullView(store)

	means := AveragePriceByYearAndCommodity(view)
	require.Len(t, means, 1)
	assert.Equal(t, 1.37, means[0].MeanPrice)

	counts := CountByCountryAndPriceType(view)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)
}

func TestAggregateLargeView(t *testing.T) {
	store := largeStore(3*chunkRows + 77)
	view := Filter(store, models.FilterSelection{
		Countries:   []string{"Chad", "Mali", "Niger", "Yemen"},
		Commodities: []string{"Beans", "Maize", "Millet", "Rice", "Wheat"},
		YearFrom:    2001,
		YearTo:      2018,
	})
	require.Greater(t, view.Len(), chunkRows)

	// Counts sum to the number of filtered rows.
	counts := CountByCountryAndPriceType(view)
	total := 0
	for _, c := range counts {
		assert.Positive(t, c.Count)
		total += c.Count
	}
	assert.Equal(t, view.Len(), total)

	// Means agree with a straightforward sequential computation.
	type key struct {
		year      int
		commodity string
	}
	sums := map[key]float64{}
	ns := map[key]int{}
	for i := 0; i < view.Len(); i++ {
		r := view.Record(i)
		k := key{r.Year, r.Commodity}
		sums[k] += r.Price
		ns[k]++
	}
	means := AveragePriceByYearAndCommodity(view)
	require.Len(t, means, len(sums))
	for i, m := range means {
		k := key{m.Year, m.Commodity}
		assert.InDelta(t, sums[k]/float64(ns[k]), m.MeanPrice, 1e-9)
		if i > 0 {
			prev := means[i-1]
			assert.True(t, prev.Year < m.Year || (prev.Year == m.Year && prev.Commodity < m.Commodity))
		}
	}

	// Repeated runs return identical results.
	assert.Equal(t, counts, CountByCountryAndPriceType(view))
	assert.Equal(t, means, AveragePriceByYearAndCommodity(view))
}

func TestPriceDistribution(t *testing.T) {
	store := NewColumnStore([]models.Record{
		{Country: "Mali", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 4},
		{Country: "Mali", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 1},
		{Country: "Mali", Commodity: "Rice", PriceType: "Retail", Year: 2021, Price: 3},
		{Country: "Mali", Commodity: "Rice", PriceType: "Retail", Year: 2021, Price: 2},
		{Country: "Chad", Commodity: "Rice", PriceType: "Retail", Year: 2021, Price: 7},
	})

	dist := PriceDistribution(FullView(store))
	require.Len(t, dist, 2)

	assert.Equal(t, models.DistributionRow{
		Country: "Chad", Commodity: "Rice", Count: 1,
		Min: 7, Q1: 7, Median: 7, Q3: 7, Max: 7,
	}, dist[0])
	assert.Equal(t, models.DistributionRow{
		Country: "Mali", Commodity: "Rice", Count: 4,
		Min: 1, Q1: 1.75, Median: 2.5, Q3: 3.25, Max: 4,
	}, dist[1])
}

func TestNaNPricePropagatesToMean(t *testing.T) {
	store := NewColumnStore([]models.Record{
		{Country: "A", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: math.NaN()},
		{Country: "A", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 3},
	})

	means := AveragePriceByYearAndCommodity(FullView(store))
	require.Len(t, means, 1)
	assert.True(t, math.IsNaN(means[0].MeanPrice))
}

func TestAverageFarApartYears(t *testing.T) {
	store := NewColumnStore([]models.Record{
		{Country: "Chad", Commodity: "Millet", PriceType: "Retail", Year: 20200000, Price: 8},
		{Country: "Chad", Commodity: "Millet", PriceType: "Retail", Year: 2020, Price: 2},
		{Country: "Chad", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 4},
		{Country: "Chad", Commodity: "Millet", PriceType: "Retail", Year: -2147483648, Price: 1},
		{Country: "Chad", Commodity: "Millet", PriceType: "Retail", Year: 20200000, Price: 4},
	})
	view := FullView(store)

	slots := newYearSlots(view)
	assert.Equal(t, []int32{-2147483648, 2020, 20200000}, slots.years)

	assert.Equal(t, []models.MeanRow{
		{Year: -2147483648, Commodity: "Millet", MeanPrice: 1},
		{Year: 2020, Commodity: "Millet", MeanPrice: 2},
		{Year: 2020, Commodity: "Rice", MeanPrice: 4},
		{Year: 20200000, Commodity: "Millet", MeanPrice: 6},
	}, AveragePriceByYearAndCommodity(view))
}

func TestYearSlotsSparseTable(t *testing.T) {
	store := NewColumnStore([]models.Record{
		{Country: "Chad", Commodity: "Millet", Year: 2018, Price: 1},
		{Country: "Chad", Commodity: "Millet", Year: 2012, Price: 1},
		{Country: "Chad", Commodity: "Millet", Year: 2018, Price: 1},
	})

	slots := newYearSlots(FullView(store))
	assert.Equal(t, []int32{2012, 2018}, slots.years)
	assert.Equal(t, 0, slots.slot(2012))
	assert.Equal(t, 1, slots.slot(2018))
}
