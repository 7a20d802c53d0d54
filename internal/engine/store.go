package engine

import (
	"sort"

	"foodprices/internal/models"
)

// ColumnStore holds the dataset in Struct-of-Arrays format.
// It is built once and never mutated afterwards, so it is safe to share
// between goroutines.
type ColumnStore struct {
	// Data Columns (Flat Arrays)
	Prices []float64
	Years  []int32
	Months []int32

	// Dictionary Encoded IDs (0..N)
	CountryIDs   []int32
	RegionIDs    []int32
	MarketIDs    []int32
	CommodityIDs []int32
	CurrencyIDs  []int32
	PriceTypeIDs []int32
	UnitIDs      []int32

	// Dictionaries (ID -> String)
	CountryDict   []string
	RegionDict    []string
	MarketDict    []string
	CommodityDict []string
	CurrencyDict  []string
	PriceTypeDict []string
	UnitDict      []string
}

// Len returns the number of rows.
func (cs *ColumnStore) Len() int {
	return len(cs.Prices)
}

// Record decodes row i back into a typed record.
func (cs *ColumnStore) Record(i int) models.Record {
	return models.Record{
		Country:   cs.CountryDict[cs.CountryIDs[i]],
		Region:    cs.RegionDict[cs.RegionIDs[i]],
		Market:    cs.MarketDict[cs.MarketIDs[i]],
		Commodity: cs.CommodityDict[cs.CommodityIDs[i]],
		Currency:  cs.CurrencyDict[cs.CurrencyIDs[i]],
		PriceType: cs.PriceTypeDict[cs.PriceTypeIDs[i]],
		Unit:      cs.UnitDict[cs.UnitIDs[i]],
		Month:     int(cs.Months[i]),
		Year:      int(cs.Years[i]),
		Price:     cs.Prices[i],
	}
}

// YearBounds returns the observed min and max year. An empty store
// reports (0, 0).
func (cs *ColumnStore) YearBounds() (int, int) {
	if len(cs.Years) == 0 {
		return 0, 0
	}
	lo, hi := cs.Years[0], cs.Years[0]
	for _, y := range cs.Years[1:] {
		if y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	return int(lo), int(hi)
}

// Options returns the sorted distinct values a selection can be built from.
func (cs *ColumnStore) Options() models.FilterOptions {
	lo, hi := cs.YearBounds()
	return models.FilterOptions{
		Countries:   sortedCopy(cs.CountryDict),
		Commodities: sortedCopy(cs.CommodityDict),
		PriceTypes:  sortedCopy(cs.PriceTypeDict),
		MinYear:     lo,
		MaxYear:     hi,
	}
}

// DefaultSelection selects every country, every commodity and the full
// observed year range.
func (cs *ColumnStore) DefaultSelection() models.FilterSelection {
	opts := cs.Options()
	return models.FilterSelection{
		Countries:   opts.Countries,
		Commodities: opts.Commodities,
		YearFrom:    opts.MinYear,
		YearTo:      opts.MaxYear,
	}
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// --- BUILDER ---

// dictionary interns strings into dense int32 ids in first-seen order.
type dictionary struct {
	index  map[string]int32
	values []string
}

func newDictionary() *dictionary {
	return &dictionary{index: make(map[string]int32)}
}

func (d *dictionary) intern(s string) int32 {
	if id, ok := d.index[s]; ok {
		return id
	}
	id := int32(len(d.values))
	d.values = append(d.values, s)
	d.index[s] = id
	return id
}

// StoreBuilder appends records into a new ColumnStore.
type StoreBuilder struct {
	store *ColumnStore

	country   *dictionary
	region    *dictionary
	market    *dictionary
	commodity *dictionary
	currency  *dictionary
	ptype     *dictionary
	unit      *dictionary
}

// NewStoreBuilder returns a builder with room for sizeHint rows.
func NewStoreBuilder(sizeHint int) *StoreBuilder {
	return &StoreBuilder{
		store: &ColumnStore{
			Prices:       make([]float64, 0, sizeHint),
			Years:        make([]int32, 0, sizeHint),
			Months:       make([]int32, 0, sizeHint),
			CountryIDs:   make([]int32, 0, sizeHint),
			RegionIDs:    make([]int32, 0, sizeHint),
			MarketIDs:    make([]int32, 0, sizeHint),
			CommodityIDs: make([]int32, 0, sizeHint),
			CurrencyIDs:  make([]int32, 0, sizeHint),
			PriceTypeIDs: make([]int32, 0, sizeHint),
			UnitIDs:      make([]int32, 0, sizeHint),
		},
		country:   newDictionary(),
		region:    newDictionary(),
		market:    newDictionary(),
		commodity: newDictionary(),
		currency:  newDictionary(),
		ptype:     newDictionary(),
		unit:      newDictionary(),
	}
}

// Append adds one record at the end of the store.
func (b *StoreBuilder) Append(r models.Record) {
	s := b.store
	s.Prices = append(s.Prices, r.Price)
	s.Years = append(s.Years, int32(r.Year))
	s.Months = append(s.Months, int32(r.Month))
	s.CountryIDs = append(s.CountryIDs, b.country.intern(r.Country))
	s.RegionIDs = append(s.RegionIDs, b.region.intern(r.Region))
	s.MarketIDs = append(s.MarketIDs, b.market.intern(r.Market))
	s.CommodityIDs = append(s.CommodityIDs, b.commodity.intern(r.Commodity))
	s.CurrencyIDs = append(s.CurrencyIDs, b.currency.intern(r.Currency))
	s.PriceTypeIDs = append(s.PriceTypeIDs, b.ptype.intern(r.PriceType))
	s.UnitIDs = append(s.UnitIDs, b.unit.intern(r.Unit))
}

// Build finalizes the store. The builder must not be used afterwards.
func (b *StoreBuilder) Build() *ColumnStore {
	s := b.store
	s.CountryDict = b.country.values
	s.RegionDict = b.region.values
	s.MarketDict = b.market.values
	s.CommodityDict = b.commodity.values
	s.CurrencyDict = b.currency.values
	s.PriceTypeDict = b.ptype.values
	s.UnitDict = b.unit.values
	b.store = nil
	return s
}

// NewColumnStore builds a store from records, keeping their order.
func NewColumnStore(records []models.Record) *ColumnStore {
	b := NewStoreBuilder(len(records))
	for _, r := range records {
		b.Append(r)
	}
	return b.Build()
}
