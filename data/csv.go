package data

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	scierrors "github.com/ehoutland/tidymodels-test/pkg/errors"
	"github.com/ehoutland/tidymodels-test/pkg/log"
)

// CSVOption configures ReadCSV and LoadCSV.
type CSVOption func(*csvConfig)

type csvConfig struct {
	delimiter  rune
	naValues   []string
	types      map[string]ColumnType
	dateLayout string
	dateCols   map[string]bool
}

func defaultCSVConfig() *csvConfig {
	return &csvConfig{
		delimiter: ',',
		naValues:  []string{"", "NA", "NaN"},
		types:     map[string]ColumnType{},
		dateCols:  map[string]bool{},
	}
}

// WithDelimiter sets the field separator.
func WithDelimiter(d rune) CSVOption {
	return func(c *csvConfig) { c.delimiter = d }
}

// WithNAValues replaces the tokens read as missing.
func WithNAValues(values ...string) CSVOption {
	return func(c *csvConfig) { c.naValues = values }
}

// WithTypes forces column types instead of detecting them.
func WithTypes(types map[string]ColumnType) CSVOption {
	return func(c *csvConfig) {
		for k, v := range types {
			c.types[k] = v
		}
	}
}

// WithDateColumns parses the named columns as dates using layout.
func WithDateColumns(layout string, cols ...string) CSVOption {
	return func(c *csvConfig) {
		c.dateLayout = layout
		for _, col := range cols {
			c.dateCols[col] = true
		}
	}
}

// LoadCSV reads a delimited file from disk.
func LoadCSV(path string, opts ...CSVOption) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts...)
}

// ReadCSV parses delimited text with a header row. Rows whose field count
// differs from the header are dropped and reported once through a
// DataConversionWarning. Column types are detected unless forced with
// WithTypes: numbers and booleans become Numeric, everything else String.
// A detected string column whose present cells are at least numericShare
// numbers is read as Numeric; the other cells become missing and are
// reported through a DataConversionWarning.
func ReadCSV(r io.Reader, opts ...CSVOption) (*Frame, error) {
	cfg := defaultCSVConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.delimiter
	reader.FieldsPerRecord = -1

	var records [][]string
	dropped := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok && len(records) > 0 {
				dropped++
				continue
			}
			return nil, scierrors.Wrap(err, "read csv")
		}
		if len(records) > 0 && len(rec) != len(records[0]) {
			dropped++
			continue
		}
		records = append(records, append([]string(nil), rec...))
	}
	if len(records) == 0 {
		return nil, scierrors.Wrap(scierrors.ErrEmptyData, "read csv: no header")
	}
	if dropped > 0 {
		scierrors.Warn(scierrors.NewDataConversionWarning("csv", "row", "malformed row dropped", dropped))
	}
	if len(records) == 1 {
		cols := make([]*Column, len(records[0]))
		for i, name := range records[0] {
			cols[i] = NewString(name, nil, nil)
		}
		return NewFrame(cols...)
	}

	loadOpts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(cfg.naValues),
	}
	if forced := gotaTypes(cfg); len(forced) > 0 {
		loadOpts = append(loadOpts, dataframe.WithTypes(forced))
	}
	df := dataframe.LoadRecords(records, loadOpts...)
	if df.Err != nil {
		return nil, scierrors.Wrap(df.Err, "read csv")
	}

	cols := make([]*Column, 0, df.Ncol())
	for _, name := range df.Names() {
		col, err := fromSeries(df.Col(name), cfg)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	frame, err := NewFrame(cols...)
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("data").Debug("csv loaded",
		log.OperationKey, "load",
		log.SamplesKey, frame.NumRows(),
		log.FeaturesKey, frame.NumCols(),
		log.DroppedKey, dropped,
	)
	return frame, nil
}

// gotaTypes maps forced column types onto gota series types. Dates and
// categoricals are read as strings and converted afterwards.
func gotaTypes(cfg *csvConfig) map[string]series.Type {
	out := map[string]series.Type{}
	for name, t := range cfg.types {
		if t == Numeric {
			out[name] = series.Float
		} else {
			out[name] = series.String
		}
	}
	for name := range cfg.dateCols {
		out[name] = series.String
	}
	return out
}

func fromSeries(s series.Series, cfg *csvConfig) (*Column, error) {
	name := s.Name
	if cfg.dateCols[name] {
		return parseDates(name, s.Records(), s.IsNaN(), cfg.dateLayout), nil
	}
	want, forced := cfg.types[name]
	switch {
	case forced && want == Date:
		return parseDates(name, s.Records(), s.IsNaN(), time.DateOnly), nil
	case s.Type() == series.Float, s.Type() == series.Int, s.Type() == series.Bool:
		vals := s.Float()
		for i, missing := range s.IsNaN() {
			if missing {
				vals[i] = nan
			}
		}
		col := NewNumeric(name, vals)
		if forced && want != Numeric {
			return castColumn(col, want)
		}
		return col, nil
	default:
		if !forced {
			if col, bad, ok := coerceNumeric(s); ok {
				scierrors.Warn(scierrors.NewDataConversionWarning(name, "numeric", "unparseable cells set to missing", bad))
				return col, nil
			}
		}
		recs := s.Records()
		valid := make([]bool, len(recs))
		for i, missing := range s.IsNaN() {
			valid[i] = !missing
		}
		col := NewString(name, recs, valid)
		if forced && want != String {
			return castColumn(col, want)
		}
		return col, nil
	}
}

// numericShare is the share of present cells that must parse as numbers
// for a detected string column to be read as Numeric.
const numericShare = 0.9

func coerceNumeric(s series.Series) (col *Column, bad int, ok bool) {
	vals := s.Float()
	present := 0
	for i, missing := range s.IsNaN() {
		if missing {
			vals[i] = nan
			continue
		}
		present++
		if math.IsNaN(vals[i]) {
			bad++
		}
	}
	if present == 0 || float64(present-bad) < numericShare*float64(present) {
		return nil, 0, false
	}
	return NewNumeric(s.Name, vals), bad, true
}

func parseDates(name string, recs []string, missing []bool, layout string) *Column {
	times := make([]time.Time, len(recs))
	bad := 0
	for i, r := range recs {
		if missing[i] {
			continue
		}
		t, err := time.Parse(layout, r)
		if err != nil {
			bad++
			continue
		}
		times[i] = t
	}
	if bad > 0 {
		scierrors.Warn(scierrors.NewDataConversionWarning("string", "date", "unparseable date in "+name, bad))
	}
	return NewDate(name, times)
}
