package models

// Record is one observed food price.
type Record struct {
	Country   string  `json:"country"`
	Region    string  `json:"region,omitempty"`
	Market    string  `json:"market,omitempty"`
	Commodity string  `json:"commodity"`
	Currency  string  `json:"currency,omitempty"`
	PriceType string  `json:"price_type"`
	Unit      string  `json:"unit,omitempty"`
	Month     int     `json:"month,omitempty"`
	Year      int     `json:"year"`
	Price     float64 `json:"price"`
}

// FilterSelection holds the user's filter predicates.
// Year bounds are inclusive on both ends.
type FilterSelection struct {
	Countries   []string `json:"countries"`
	Commodities []string `json:"commodities"`
	YearFrom    int      `json:"year_from"`
	YearTo      int      `json:"year_to"`
}

// FilterOptions lists the values a selection can be built from.
type FilterOptions struct {
	Countries   []string `json:"countries"`
	Commodities []string `json:"commodities"`
	PriceTypes  []string `json:"price_types"`
	MinYear     int      `json:"min_year"`
	MaxYear     int      `json:"max_year"`
}

type CountRow struct {
	Country   string `json:"country"`
	PriceType string `json:"price_type"`
	Count     int    `json:"count"`
}

type MeanRow struct {
	Year      int     `json:"year"`
	Commodity string  `json:"commodity"`
	MeanPrice float64 `json:"mean_price"`
}

// ColumnStats mirrors a dataframe describe() column.
// Every field except Count is NaN when Count is zero.
type ColumnStats struct {
	Count int
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Description holds ColumnStats for each numeric attribute of a Record.
type Description struct {
	Year  ColumnStats
	Price ColumnStats
}

// DistributionRow is the five-number summary of prices for one
// (country, commodity) pair.
type DistributionRow struct {
	Country   string  `json:"country"`
	Commodity string  `json:"commodity"`
	Count     int     `json:"count"`
	Min       float64 `json:"min"`
	Q1        float64 `json:"q1"`
	Median    float64 `json:"median"`
	Q3        float64 `json:"q3"`
	Max       float64 `json:"max"`
}

// Summary is everything the dashboard renders for one selection.
type Summary struct {
	Selection    FilterSelection
	Rows         int
	Preview      []Record
	Counts       []CountRow
	Means        []MeanRow
	Description  Description
	Distribution []DistributionRow
}

// LoadReport describes what happened while loading the dataset.
type LoadReport struct {
	Source      string `json:"source"`
	RowsRead    int    `json:"rows_read"`
	RowsKept    int    `json:"rows_kept"`
	RowsSkipped int    `json:"rows_skipped"`
}
