package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"foodprices/internal/models"

	"github.com/labstack/echo/v4"
)

// ErrNotReady is reported while the dataset is still loading.
var ErrNotReady = errors.New("dataset is loading")

// Backend answers dashboard queries for a loaded dataset.
type Backend interface {
	Options(ctx context.Context) (models.FilterOptions, error)
	DefaultSelection(ctx context.Context) (models.FilterSelection, error)
	Records(ctx context.Context, sel models.FilterSelection, offset, limit int) ([]models.Record, int, error)
	Counts(ctx context.Context, sel models.FilterSelection) ([]models.CountRow, error)
	Means(ctx context.Context, sel models.FilterSelection) ([]models.MeanRow, error)
	Describe(ctx context.Context, sel models.FilterSelection) (models.Description, error)
	Distribution(ctx context.Context, sel models.FilterSelection) ([]models.DistributionRow, error)
	Summarize(ctx context.Context, sel models.FilterSelection, previewRows int) (*models.Summary, error)
}

type Handler struct {
	mu          sync.RWMutex
	backend     Backend
	report      *models.LoadReport
	previewRows int
}

// NewHandler creates a handler. A nil backend makes every data route
// answer 503 until SetBackend is called.
func NewHandler(backend Backend, previewRows int) *Handler {
	return &Handler{backend: backend, previewRows: previewRows}
}

// SetBackend swaps in a loaded backend.
func (h *Handler) SetBackend(backend Backend, report *models.LoadReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backend = backend
	h.report = report
}

func (h *Handler) current() (Backend, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.backend == nil {
		return nil, ErrNotReady
	}
	return h.backend, nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", h.GetHealth)
	api.GET("/options", h.GetOptions)
	api.GET("/records", h.GetRecords)
	api.GET("/summary", h.GetSummary)
	api.GET("/counts", h.GetCounts)
	api.GET("/describe", h.GetDescribe)
	api.GET("/prices/average", h.GetAveragePrices)
	api.GET("/prices/distribution", h.GetPriceDistribution)
}

// --- HANDLERS ---
func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) GetHealth(c echo.Context) error {
	h.mu.RLock()
	ready, report := h.backend != nil, h.report
	h.mu.RUnlock()

	if !ready {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{"status": "loading"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "dataset": report})
}

func (h *Handler) GetOptions(c echo.Context) error {
	b, err := h.current()
	if err != nil {
		return toHTTPError(err)
	}
	opts, err := b.Options(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, opts)
}

const defaultRecordLimit = 100

func (h *Handler) GetRecords(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	limit, offset := getPaginationParams(c, defaultRecordLimit)

	records, total, err := b.Records(c.Request().Context(), sel, offset, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   records,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetSummary(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	preview := h.previewRows
	if n, err := strconv.Atoi(c.QueryParam("preview")); err == nil && n >= 0 {
		preview = n
	}

	sum, err := b.Summarize(c.Request().Context(), sel, preview)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newSummaryResponse(sum))
}

func (h *Handler) GetCounts(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	rows, err := b.Counts(c.Request().Context(), sel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetAveragePrices(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	rows, err := b.Means(c.Request().Context(), sel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetPriceDistribution(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	rows, err := b.Distribution(c.Request().Context(), sel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetDescribe(c echo.Context) error {
	b, sel, err := h.selection(c)
	if err != nil {
		return err
	}
	desc, err := b.Describe(c.Request().Context(), sel)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, newDescribeResponse(desc))
}

func (h *Handler) selection(c echo.Context) (Backend, models.FilterSelection, error) {
	b, err := h.current()
	if err != nil {
		return nil, models.FilterSelection{}, toHTTPError(err)
	}
	q, err := parseSelectionQuery(c)
	if err != nil {
		return nil, models.FilterSelection{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defaults, err := b.DefaultSelection(c.Request().Context())
	if err != nil {
		return nil, models.FilterSelection{}, toHTTPError(err)
	}
	return b, q.resolve(defaults), nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrNotReady):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "query failed").SetInternal(err)
	}
}
