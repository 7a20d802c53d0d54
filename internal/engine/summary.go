package engine

import (
	"context"

	"foodprices/internal/models"

	"golang.org/x/sync/errgroup"
)

// Summarize filters once and computes every dashboard aggregate over the
// result concurrently.
func Summarize(ctx context.Context, cs *ColumnStore, sel models.FilterSelection, previewRows int) (*models.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view := Filter(cs, sel)

	sum := &models.Summary{
		Selection: sel,
		Rows:      view.Len(),
		Preview:   Head(view, previewRows),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sum.Counts = CountByCountryAndPriceType(view)
		return gctx.Err()
	})
	g.Go(func() error {
		sum.Means = AveragePriceByYearAndCommodity(view)
		return gctx.Err()
	})
	g.Go(func() error {
		sum.Description = Describe(view)
		return gctx.Err()
	})
	g.Go(func() error {
		sum.Distribution = PriceDistribution(view)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sum, nil
}

// Columnar serves queries straight from an in-memory ColumnStore.
type Columnar struct {
	store *ColumnStore
}

func NewColumnar(cs *ColumnStore) *Columnar {
	return &Columnar{store: cs}
}

func (c *Columnar) Store() *ColumnStore { return c.store }

func (c *Columnar) Options(_ context.Context) (models.FilterOptions, error) {
	return c.store.Options(), nil
}

func (c *Columnar) DefaultSelection(_ context.Context) (models.FilterSelection, error) {
	return c.store.DefaultSelection(), nil
}

func (c *Columnar) Records(ctx context.Context, sel models.FilterSelection, offset, limit int) ([]models.Record, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	view := Filter(c.store, sel)
	return view.Slice(offset, limit), view.Len(), nil
}

func (c *Columnar) Counts(ctx context.Context, sel models.FilterSelection) ([]models.CountRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return CountByCountryAndPriceType(Filter(c.store, sel)), nil
}

func (c *Columnar) Means(ctx context.Context, sel models.FilterSelection) ([]models.MeanRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return AveragePriceByYearAndCommodity(Filter(c.store, sel)), nil
}

func (c *Columnar) Describe(ctx context.Context, sel models.FilterSelection) (models.Description, error) {
	if err := ctx.Err(); err != nil {
		return models.Description{}, err
	}
	return Describe(Filter(c.store, sel)), nil
}

func (c *Columnar) Distribution(ctx context.Context, sel models.FilterSelection) ([]models.DistributionRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return PriceDistribution(Filter(c.store, sel)), nil
}

func (c *Columnar) Summarize(ctx context.Context, sel models.FilterSelection, previewRows int) (*models.Summary, error) {
	return Summarize(ctx, c.store, sel, previewRows)
}
