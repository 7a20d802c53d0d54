package api

import (
	"math"

	"foodprices/internal/models"

	"github.com/moznion/go-optional"
)

// statsResponse is ColumnStats with undefined values rendered as null.
type statsResponse struct {
	Count int                      `json:"count"`
	Mean  optional.Option[float64] `json:"mean"`
	Std   optional.Option[float64] `json:"std"`
	Min   optional.Option[float64] `json:"min"`
	P25   optional.Option[float64] `json:"25%"`
	P50   optional.Option[float64] `json:"50%"`
	P75   optional.Option[float64] `json:"75%"`
	Max   optional.Option[float64] `json:"max"`
}

type describeResponse struct {
	Year  statsResponse `json:"year"`
	Price statsResponse `json:"price"`
}

type summaryResponse struct {
	Selection    models.FilterSelection   `json:"selection"`
	Rows         int                      `json:"rows"`
	Preview      []models.Record          `json:"preview"`
	Counts       []models.CountRow        `json:"counts"`
	Means        []models.MeanRow         `json:"average_prices"`
	Description  describeResponse         `json:"describe"`
	Distribution []models.DistributionRow `json:"distribution"`
}

func finite(v float64) optional.Option[float64] {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return optional.None[float64]()
	}
	return optional.Some(v)
}

func newStatsResponse(s models.ColumnStats) statsResponse {
	return statsResponse{
		Count: s.Count,
		Mean:  finite(s.Mean),
		Std:   finite(s.Std),
		Min:   finite(s.Min),
		P25:   finite(s.P25),
		P50:   finite(s.P50),
		P75:   finite(s.P75),
		Max:   finite(s.Max),
	}
}

func newDescribeResponse(d models.Description) describeResponse {
	return describeResponse{
		Year:  newStatsResponse(d.Year),
		Price: newStatsResponse(d.Price),
	}
}

func newSummaryResponse(s *models.Summary) summaryResponse {
	return summaryResponse{
		Selection:    s.Selection,
		Rows:         s.Rows,
		Preview:      s.Preview,
		Counts:       s.Counts,
		Means:        s.Means,
		Description:  newDescribeResponse(s.Description),
		Distribution: s.Distribution,
	}
}
