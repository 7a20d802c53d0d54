// Package sqlengine answers dashboard queries with SQL over an in-memory
// DuckDB copy of the dataset.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"foodprices/internal/engine"
	"foodprices/internal/logger"
	"foodprices/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

const table = "food_prices"

const createTable = `
	CREATE TABLE food_prices (
		ord        BIGINT,
		country    VARCHAR,
		region     VARCHAR,
		market     VARCHAR,
		commodity  VARCHAR,
		currency   VARCHAR,
		price_type VARCHAR,
		unit       VARCHAR,
		month      INTEGER,
		year       INTEGER,
		price      DOUBLE
	);
`

var recordColumns = []string{
	"country", "region", "market", "commodity", "currency",
	"price_type", "unit", "month", "year", "price",
}

// DB is a DuckDB-backed query backend.
type DB struct {
	db        *sql.DB
	connector *duckdb.Connector
	logger    *logger.Logger
	sq        squirrel.StatementBuilderType
}

// Open creates an in-memory DuckDB database and copies every row of cs
// into it, keeping the store order in the ord column.
func Open(ctx context.Context, cs *engine.ColumnStore, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	start := time.Now()

	connector, err := duckdb.NewConnector("", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create duckdb connector: %w", err)
	}

	d := &DB{
		db:        sql.OpenDB(connector),
		connector: connector,
		logger:    log,
		sq:        squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if _, err := d.db.ExecContext(ctx, createTable); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	if err := d.copyStore(ctx, cs); err != nil {
		_ = d.Close()
		return nil, err
	}

	log.Info("DuckDB backend ready", zap.Int("rows", cs.Len()), zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

func (d *DB) copyStore(ctx context.Context, cs *engine.ColumnStore) error {
	conn, err := d.connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	appender, err := duckdb.NewAppenderFromConn(conn, "", table)
	if err != nil {
		return fmt.Errorf("failed to create appender: %w", err)
	}

	for i := 0; i < cs.Len(); i++ {
		r := cs.Record(i)
		err := appender.AppendRow(
			int64(i), r.Country, r.Region, r.Market, r.Commodity, r.Currency,
			r.PriceType, r.Unit, int32(r.Month), int32(r.Year), r.Price,
		)
		if err != nil {
			_ = appender.Close()
			return fmt.Errorf("failed to append row %d: %w", i, err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("failed to flush appender: %w", err)
	}
	return nil
}

// Close releases the database.
func (d *DB) Close() error {
	err := d.db.Close()
	if cerr := d.connector.Close(); err == nil {
		err = cerr
	}
	return err
}

// where renders a selection as SQL predicates. Empty lists become a
// false predicate, matching the in-memory engine.
func where(sel models.FilterSelection) squirrel.Sqlizer {
	if len(sel.Countries) == 0 || len(sel.Commodities) == 0 || sel.YearFrom > sel.YearTo {
		return squirrel.Expr("1 = 0")
	}
	return squirrel.And{
		squirrel.Eq{"country": sel.Countries},
		squirrel.Eq{"commodity": sel.Commodities},
		squirrel.GtOrEq{"year": sel.YearFrom},
		squirrel.LtOrEq{"year": sel.YearTo},
	}
}

// Filter returns the store row ordinals matching sel, in store order.
func (d *DB) Filter(ctx context.Context, sel models.FilterSelection) ([]int, error) {
	query, args, err := d.sq.Select("ord").From(table).Where(where(sel)).OrderBy("ord").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int, 0)
	for rows.Next() {
		var ord int64
		if err := rows.Scan(&ord); err != nil {
			return nil, err
		}
		out = append(out, int(ord))
	}
	return out, rows.Err()
}

func (d *DB) Options(ctx context.Context) (models.FilterOptions, error) {
	var opts models.FilterOptions
	var err error

	if opts.Countries, err = d.distinct(ctx, "country"); err != nil {
		return opts, err
	}
	if opts.Commodities, err = d.distinct(ctx, "commodity"); err != nil {
		return opts, err
	}
	if opts.PriceTypes, err = d.distinct(ctx, "price_type"); err != nil {
		return opts, err
	}

	query, args, err := d.sq.Select("coalesce(min(year), 0)", "coalesce(max(year), 0)").From(table).ToSql()
	if err != nil {
		return opts, fmt.Errorf("failed to build query: %w", err)
	}
	err = d.db.QueryRowContext(ctx, query, args...).Scan(&opts.MinYear, &opts.MaxYear)
	return opts, err
}

func (d *DB) DefaultSelection(ctx context.Context) (models.FilterSelection, error) {
	opts, err := d.Options(ctx)
	if err != nil {
		return models.FilterSelection{}, err
	}
	return models.FilterSelection{
		Countries:   opts.Countries,
		Commodities: opts.Commodities,
		YearFrom:    opts.MinYear,
		YearTo:      opts.MaxYear,
	}, nil
}

func (d *DB) distinct(ctx context.Context, column string) ([]string, error) {
	query, args, err := d.sq.Select(column).Distinct().From(table).OrderBy(column).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) Records(ctx context.Context, sel models.FilterSelection, offset, limit int) ([]models.Record, int, error) {
	countQuery, countArgs, err := d.sq.Select("count(*)").From(table).Where(where(sel)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}
	var total int
	if err := d.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	out := make([]models.Record, 0)
	if limit <= 0 || offset >= total {
		return out, total, nil
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := d.sq.Select(recordColumns...).From(table).Where(where(sel)).
		OrderBy("ord").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Country, &r.Region, &r.Market, &r.Commodity, &r.Currency,
			&r.PriceType, &r.Unit, &r.Month, &r.Year, &r.Price); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (d *DB) Counts(ctx context.Context, sel models.FilterSelection) ([]models.CountRow, error) {
	query, args, err := d.sq.Select("country", "price_type", "count(*)").From(table).Where(where(sel)).
		GroupBy("country", "price_type").OrderBy("country", "price_type").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.CountRow, 0)
	for rows.Next() {
		var c models.CountRow
		if err := rows.Scan(&c.Country, &c.PriceType, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) Means(ctx context.Context, sel models.FilterSelection) ([]models.MeanRow, error) {
	query, args, err := d.sq.Select("year", "commodity", "sum(price) / count(*)").From(table).Where(where(sel)).
		GroupBy("year", "commodity").OrderBy("year", "commodity").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.MeanRow, 0)
	for rows.Next() {
		var m models.MeanRow
		if err := rows.Scan(&m.Year, &m.Commodity, &m.MeanPrice); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func statColumns(col string) []string {
	return []string{
		fmt.Sprintf("count(%s)", col),
		fmt.Sprintf("avg(%s)::DOUBLE", col),
		fmt.Sprintf("stddev_samp(%s)::DOUBLE", col),
		fmt.Sprintf("min(%s)::DOUBLE", col),
		fmt.Sprintf("quantile_cont(%s, 0.25)::DOUBLE", col),
		fmt.Sprintf("quantile_cont(%s, 0.5)::DOUBLE", col),
		fmt.Sprintf("quantile_cont(%s, 0.75)::DOUBLE", col),
		fmt.Sprintf("max(%s)::DOUBLE", col),
	}
}

// nullableStats scans one describe() column; NULL aggregates become NaN.
type nullableStats struct {
	count                              int
	mean, std, min, p25, p50, p75, max sql.NullFloat64
}

func (n *nullableStats) dest() []any {
	return []any{&n.count, &n.mean, &n.std, &n.min, &n.p25, &n.p50, &n.p75, &n.max}
}

func (n *nullableStats) stats() models.ColumnStats {
	return models.ColumnStats{
		Count: n.count,
		Mean:  orNaN(n.mean),
		Std:   orNaN(n.std),
		Min:   orNaN(n.min),
		P25:   orNaN(n.p25),
		P50:   orNaN(n.p50),
		P75:   orNaN(n.p75),
		Max:   orNaN(n.max),
	}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func (d *DB) Describe(ctx context.Context, sel models.FilterSelection) (models.Description, error) {
	cols := append(statColumns("year"), statColumns("price")...)
	query, args, err := d.sq.Select(cols...).From(table).Where(where(sel)).ToSql()
	if err != nil {
		return models.Description{}, fmt.Errorf("failed to build query: %w", err)
	}

	var year, price nullableStats
	dest := append(year.dest(), price.dest()...)
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return models.Description{}, err
	}
	return models.Description{Year: year.stats(), Price: price.stats()}, nil
}

func (d *DB) Distribution(ctx context.Context, sel models.FilterSelection) ([]models.DistributionRow, error) {
	query, args, err := d.sq.Select(
		"country", "commodity", "count(*)",
		"min(price)", "quantile_cont(price, 0.25)", "quantile_cont(price, 0.5)",
		"quantile_cont(price, 0.75)", "max(price)",
	).From(table).Where(where(sel)).
		GroupBy("country", "commodity").OrderBy("country", "commodity").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.DistributionRow, 0)
	for rows.Next() {
		var r models.DistributionRow
		if err := rows.Scan(&r.Country, &r.Commodity, &r.Count, &r.Min, &r.Q1, &r.Median, &r.Q3, &r.Max); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summarize runs every dashboard query for one selection.
func (d *DB) Summarize(ctx context.Context, sel models.FilterSelection, previewRows int) (*models.Summary, error) {
	preview, total, err := d.Records(ctx, sel, 0, previewRows)
	if err != nil {
		return nil, err
	}
	sum := &models.Summary{Selection: sel, Rows: total, Preview: preview}

	if sum.Counts, err = d.Counts(ctx, sel); err != nil {
		return nil, err
	}
	if sum.Means, err = d.Means(ctx, sel); err != nil {
		return nil, err
	}
	if sum.Description, err = d.Describe(ctx, sel); err != nil {
		return nil, err
	}
	if sum.Distribution, err = d.Distribution(ctx, sel); err != nil {
		return nil, err
	}
	return sum, nil
}
