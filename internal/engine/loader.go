package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"foodprices/internal/logger"
	"foodprices/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zip"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrNoCSVEntry is returned when a zip archive holds no usable CSV file.
	ErrNoCSVEntry = errors.New("no csv entry in archive")
	// ErrMissingColumn is returned when the header lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyFile is returned when the input has no header row.
	ErrEmptyFile = errors.New("empty input")
)

// Source column holding the country; renamed to "country" at load time.
const countrySourceColumn = "adm0_name"

var requiredColumns = []string{"country", "cm_name", "pt_name", "mp_year", "mp_price"}

// csvRow maps the source file columns. Numbers stay strings so a bad
// value only drops its own row.
type csvRow struct {
	Country   string `csv:"country"`
	Region    string `csv:"adm1_name"`
	Market    string `csv:"mkt_name"`
	Commodity string `csv:"cm_name"`
	Currency  string `csv:"cur_name"`
	PriceType string `csv:"pt_name"`
	Unit      string `csv:"um_name"`
	Month     string `csv:"mp_month"`
	Year      string `csv:"mp_year"`
	Price     string `csv:"mp_price"`
}

// LoadOptions configures LoadColumnar.
type LoadOptions struct {
	// Entry selects a file inside a zip archive. Empty picks the first .csv.
	Entry string
	// Encoding of the CSV bytes: latin1 (default), windows-1252 or utf-8.
	Encoding string
	// Progress, when set, receives a progress bar of decompressed bytes.
	Progress io.Writer
	Logger   *logger.Logger
}

// LoadColumnar reads a zip-compressed (or plain) CSV file into a ColumnStore.
func LoadColumnar(path string, opts LoadOptions) (*ColumnStore, *models.LoadReport, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	start := time.Now()
	log.Info("Loading dataset", zap.String("path", path))

	var (
		r    io.Reader
		size int64
		name = path
	)

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open archive %s: %w", path, err)
		}
		defer archive.Close()

		entry, err := pickEntry(archive.File, opts.Entry)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open entry %s: %w", entry.Name, err)
		}
		defer rc.Close()
		r, size, name = rc, int64(entry.UncompressedSize64), path+"!"+entry.Name
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		if st, err := f.Stat(); err == nil {
			size = st.Size()
		}
		r = f
	}

	if opts.Progress != nil {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription("loading "+filepath.Base(path)),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(opts.Progress) }),
		)
		defer func() { _ = bar.Finish() }()
		r = io.TeeReader(r, bar)
	}

	store, report, err := Decode(r, opts.Encoding, log)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}
	report.Source = name

	log.Info("Load complete",
		zap.String("source", name),
		zap.Int("rows", report.RowsKept),
		zap.Int("skipped", report.RowsSkipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return store, report, nil
}

// Decode parses CSV bytes in the given encoding into a ColumnStore.
// Rows whose year or price is missing or not a finite number are skipped
// and counted in the report.
func Decode(r io.Reader, encoding string, log *logger.Logger) (*ColumnStore, *models.LoadReport, error) {
	if log == nil {
		log = logger.NewNop()
	}
	text, err := decodeCharset(r, encoding)
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(text)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	dec := &headerDecoder{in: cr}
	builder := NewStoreBuilder(1024)
	report := &models.LoadReport{}

	err = gocsv.UnmarshalDecoderToCallback(dec, func(row csvRow) {
		report.RowsRead++
		rec, reason := row.toRecord()
		if reason != "" {
			report.RowsSkipped++
			log.Debug("Skipping row", zap.Int("record", report.RowsRead), zap.String("reason", reason))
			return
		}
		builder.Append(rec)
		report.RowsKept++
	})
	if dec.err != nil {
		return nil, nil, dec.err
	}
	if err != nil {
		return nil, nil, err
	}

	if report.RowsSkipped > 0 {
		log.Warn("Skipped rows with missing or invalid values",
			zap.Int("skipped", report.RowsSkipped),
			zap.Int("read", report.RowsRead),
		)
	}
	return builder.Build(), report, nil
}

func (row csvRow) toRecord() (models.Record, string) {
	year, err := strconv.ParseInt(strings.TrimSpace(row.Year), 10, 32)
	if err != nil {
		return models.Record{}, "invalid year " + strconv.Quote(row.Year)
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(row.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return models.Record{}, "invalid price " + strconv.Quote(row.Price)
	}
	month, err := strconv.ParseInt(strings.TrimSpace(row.Month), 10, 32)
	if err != nil {
		month = 0
	}

	return models.Record{
		Country:   row.Country,
		Region:    row.Region,
		Market:    row.Market,
		Commodity: row.Commodity,
		Currency:  row.Currency,
		PriceType: row.PriceType,
		Unit:      row.Unit,
		Month:     int(month),
		Year:      int(year),
		Price:     price,
	}, ""
}

func pickEntry(files []*zip.File, want string) (*zip.File, error) {
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		if want != "" {
			if f.Name == want || filepath.Base(f.Name) == want {
				return f, nil
			}
			continue
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			return f, nil
		}
	}
	if want != "" {
		return nil, fmt.Errorf("%w: %q not found", ErrNoCSVEntry, want)
	}
	return nil, ErrNoCSVEntry
}

// charsets maps the accepted encoding names to their decoders. A nil
// charmap means the input is already UTF-8.
var charsets = map[string]*charmap.Charmap{
	"":             charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"utf-8":        nil,
	"utf8":         nil,
}

// SupportedEncoding reports whether Decode accepts the encoding name.
func SupportedEncoding(encoding string) bool {
	_, ok := charsets[strings.ToLower(encoding)]
	return ok
}

func decodeCharset(r io.Reader, encoding string) (io.Reader, error) {
	cm, ok := charsets[strings.ToLower(encoding)]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
	if cm == nil {
		return r, nil
	}
	return cm.NewDecoder().Reader(r), nil
}

// headerDecoder feeds gocsv while normalizing the header row: it strips a
// BOM, renames the country column and checks required columns.
type headerDecoder struct {
	in         gocsv.CSVReader
	headerDone bool
	err        error
}

func (d *headerDecoder) GetCSVRow() ([]string, error) {
	row, err := d.in.Read()
	if err != nil {
		if !d.headerDone && errors.Is(err, io.EOF) {
			d.err = ErrEmptyFile
			return nil, d.err
		}
		// gocsv's callback API drops reader errors, so keep them here.
		if !errors.Is(err, io.EOF) {
			d.err = err
		}
		return nil, err
	}
	if d.headerDone {
		return row, nil
	}
	d.headerDone = true
	if d.err = normalizeHeader(row); d.err != nil {
		return nil, d.err
	}
	return row, nil
}

func (d *headerDecoder) GetCSVRows() ([][]string, error) {
	var rows [][]string
	for {
		row, err := d.GetCSVRow()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func normalizeHeader(header []string) error {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	present := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == countrySourceColumn {
			h = "country"
		}
		header[i] = h
		present[h] = true
	}
	for _, col := range requiredColumns {
		if !present[col] {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}
