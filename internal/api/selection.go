package api

import (
	"fmt"
	"strconv"
	"strings"

	"foodprices/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/moznion/go-optional"
)

// selectionQuery is a FilterSelection as sent by the client. Absent
// parameters are None and fall back to the dataset defaults; a present
// but empty list is an explicit empty selection.
type selectionQuery struct {
	Countries   optional.Option[[]string]
	Commodities optional.Option[[]string]
	YearFrom    optional.Option[int]
	YearTo      optional.Option[int]
}

func parseSelectionQuery(c echo.Context) (selectionQuery, error) {
	var q selectionQuery
	var err error

	q.Countries = queryList(c, "country")
	q.Commodities = queryList(c, "commodity")
	if q.YearFrom, err = queryInt(c, "year_from"); err != nil {
		return q, err
	}
	if q.YearTo, err = queryInt(c, "year_to"); err != nil {
		return q, err
	}
	return q, nil
}

func (q selectionQuery) resolve(defaults models.FilterSelection) models.FilterSelection {
	return models.FilterSelection{
		Countries:   q.Countries.TakeOr(defaults.Countries),
		Commodities: q.Commodities.TakeOr(defaults.Commodities),
		YearFrom:    q.YearFrom.TakeOr(defaults.YearFrom),
		YearTo:      q.YearTo.TakeOr(defaults.YearTo),
	}
}

func queryList(c echo.Context, name string) optional.Option[[]string] {
	raw, ok := c.QueryParams()[name]
	if !ok {
		return optional.None[[]string]()
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return optional.Some(out)
}

func queryInt(c echo.Context, name string) (optional.Option[int], error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return optional.None[int](), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return optional.None[int](), fmt.Errorf("%s must be an integer year, got %q", name, raw)
	}
	return optional.Some(n), nil
}
