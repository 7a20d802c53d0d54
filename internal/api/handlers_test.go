package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"foodprices/internal/engine"
	"foodprices/internal/logger"
	"foodprices/internal/models"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBackend() *engine.Columnar {
	return engine.NewColumnar(engine.NewColumnStore([]models.Record{
		{Country: "A", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 10.0},
		{Country: "A", Commodity: "Rice", PriceType: "Retail", Year: 2020, Price: 20.0},
		{Country: "B", Commodity: "Wheat", PriceType: "Wholesale", Year: 2021, Price: 5.0},
	}))
}

func newTestServer(b Backend) *echo.Echo {
	h := NewHandler(nil, 5)
	if b != nil {
		h.SetBackend(b, &models.LoadReport{Source: "test.zip", RowsRead: 3, RowsKept: 3})
	}
	return NewServer(h, logger.NewNop())
}

func get(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandlerLoading(t *testing.T) {
	e := newTestServer(nil)

	rec := get(t, e, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "loading", decode[map[string]any](t, rec)["status"])

	for _, path := range []string{"/api/options", "/api/summary", "/api/records", "/api/counts", "/api/describe", "/api/prices/average", "/api/prices/distribution"} {
		rec := get(t, e, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHandlerHealth(t *testing.T) {
	rec := get(t, newTestServer(testBackend()), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Status  string            `json:"status"`
		Dataset models.LoadReport `json:"dataset"`
	}](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Dataset.RowsKept)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHandlerOptions(t *testing.T) {
	rec := get(t, newTestServer(testBackend()), "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	opts := decode[models.FilterOptions](t, rec)
	assert.Equal(t, []string{"A", "B"}, opts.Countries)
	assert.Equal(t, []string{"Rice", "Wheat"}, opts.Commodities)
	assert.Equal(t, 2020, opts.MinYear)
	assert.Equal(t, 2021, opts.MaxYear)
}

func TestHandlerSummary(t *testing.T) {
	e := newTestServer(testBackend())

	tests := []struct {
		name  string
		query url.Values
		rows  int
	}{
		{name: "defaults select everything", query: url.Values{}, rows: 3},
		{name: "single country", query: url.Values{"country": {"A"}}, rows: 2},
		{name: "repeated countries", query: url.Values{"country": {"A", "B"}}, rows: 3},
		{name: "explicit empty country list", query: url.Values{"country": {""}}, rows: 0},
		{name: "unknown commodity", query: url.Values{"commodity": {"Teff"}}, rows: 0},
		{name: "year range", query: url.Values{"year_from": {"2021"}, "year_to": {"2021"}}, rows: 1},
		{name: "inverted year range", query: url.Values{"year_from": {"2021"}, "year_to": {"2020"}}, rows: 0},
		{name: "year bound beyond int32", query: url.Values{"year_from": {"2020"}, "year_to": {"2147483648"}}, rows: 3},
		{name: "negative year bound beyond int32", query: url.Values{"year_from": {"-9999999999"}, "year_to": {"2020"}}, rows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, e, "/api/summary?"+tt.query.Encode())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode[map[string]json.RawMessage](t, rec)
			var rows int
			require.NoError(t, json.Unmarshal(body["rows"], &rows))
			assert.Equal(t, tt.rows, rows)
			for _, key := range []string{"selection", "preview", "counts", "average_prices", "describe", "distribution"} {
				assert.Contains(t, body, key)
			}
		})
	}
}

func TestHandlerSummaryExample(t *testing.T) {
	rec := get(t, newTestServer(testBackend()), "/api/summary?preview=1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Rows    int               `json:"rows"`
		Preview []models.Record   `json:"preview"`
		Counts  []models.CountRow `json:"counts"`
		Means   []models.MeanRow  `json:"average_prices"`
	}](t, rec)
	assert.Equal(t, 3, body.Rows)
	assert.Len(t, body.Preview, 1)
	assert.Equal(t, []models.CountRow{
		{Country: "A", PriceType: "Retail", Count: 2},
		{Country: "B", PriceType: "Wholesale", Count: 1},
	}, body.Counts)
	assert.Equal(t, []models.MeanRow{
		{Year: 2020, Commodity: "Rice", MeanPrice: 15.0},
		{Year: 2021, Commodity: "Wheat", MeanPrice: 5.0},
	}, body.Means)
}

func TestHandlerDescribe(t *testing.T) {
	e := newTestServer(testBackend())

	rec := get(t, e, "/api/describe?country=B")
	require.Equal(t, http.StatusOK, rec.Code)
	single := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, float64(1), single["price"]["count"])
	assert.Equal(t, 5.0, single["price"]["mean"])
	assert.Nil(t, single["price"]["std"])
	assert.Equal(t, 5.0, single["price"]["50%"])

	rec = get(t, e, "/api/describe?country=")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[map[string]map[string]any](t, rec)
	assert.Equal(t, float64(0), empty["year"]["count"])
	for _, key := range []string{"mean", "std", "min", "25%", "50%", "75%", "max"} {
		v, ok := empty["year"][key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
}

func TestHandlerRecords(t *testing.T) {
	e := newTestServer(testBackend())

	rec := get(t, e, "/api/records?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Data   []models.Record `json:"data"`
		Total  int             `json:"total"`
		Limit  int             `json:"limit"`
		Offset int             `json:"offset"`
	}](t, rec)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.Limit)
	assert.Equal(t, 1, body.Offset)
	require.Len(t, body.Data, 1)
	assert.Equal(t, 20.0, body.Data[0].Price)

	rec = get(t, e, "/api/records?limit=-4&offset=x")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(defaultRecordLimit), decode[map[string]any](t, rec)["limit"])
}

func TestHandlerGroupRoutes(t *testing.T) {
	e := newTestServer(testBackend())

	rec := get(t, e, "/api/counts?commodity=Rice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.CountRow{{Country: "A", PriceType: "Retail", Count: 2}}, decode[[]models.CountRow](t, rec))

	rec = get(t, e, "/api/prices/average?country=B")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.MeanRow{{Year: 2021, Commodity: "Wheat", MeanPrice: 5.0}}, decode[[]models.MeanRow](t, rec))

	rec = get(t, e, "/api/prices/distribution?country=A")
	require.Equal(t, http.StatusOK, rec.Code)
	dist := decode[[]models.DistributionRow](t, rec)
	require.Len(t, dist, 1)
	assert.Equal(t, 15.0, dist[0].Median)

	rec = get(t, e, "/api/counts?country=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandlerBadYear(t *testing.T) {
	e := newTestServer(testBackend())

	for _, q := range []string{"year_from=abc", "year_to=20x1"} {
		rec := get(t, e, "/api/summary?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

type failingBackend struct {
	*engine.Columnar
	err error
}

func (f failingBackend) Counts(context.Context, models.FilterSelection) ([]models.CountRow, error) {
	return nil, f.err
}

func TestHandlerBackendErrors(t *testing.T) {
	rec := get(t, newTestServer(failingBackend{Columnar: testBackend(), err: errors.New("boom")}), "/api/counts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	rec = get(t, newTestServer(failingBackend{Columnar: testBackend(), err: context.Canceled}), "/api/counts")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSelectionResolve(t *testing.T) {
	defaults := models.FilterSelection{
		Countries:   []string{"A", "B"},
		Commodities: []string{"Rice"},
		YearFrom:    2000,
		YearTo:      2020,
	}

	tests := []struct {
		name  string
		query string
		want  models.FilterSelection
	}{
		{
			name:  "absent parameters use defaults",
			query: "",
			want:  defaults,
		},
		{
			name:  "present but empty list",
			query: "country=&commodity=",
			want:  models.FilterSelection{Countries: []string{}, Commodities: []string{}, YearFrom: 2000, YearTo: 2020},
		},
		{
			name:  "values are not split on commas",
			query: "country=Congo,+Dem.+Rep.&year_from=2010",
			want:  models.FilterSelection{Countries: []string{"Congo, Dem. Rep."}, Commodities: []string{"Rice"}, YearFrom: 2010, YearTo: 2020},
		},
		{
			name:  "blank year falls back",
			query: "year_to=+",
			want:  defaults,
		},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/summary?"+tt.query, nil)
			c := e.NewContext(req, httptest.NewRecorder())

			q, err := parseSelectionQuery(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.resolve(defaults))
		})
	}
}
