package timedataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoHeader        = errors.New("csv has no header row")
	ErrMissingColumns  = errors.New("csv row needs a time column and a value column")
	ErrUnparsableTime  = errors.New("unable to parse time column")
	ErrUnparsableValue = errors.New("unable to parse value column")
)

// DefaultTimeLayouts are tried in order when parsing the time column
var DefaultTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"2006-01",
	"2006",
}

// CSVOptions configures how a two column csv is read. The first column is always the time
// and the second column the value.
type CSVOptions struct {
	Delimiter   rune
	TimeLayouts []string
	Location    *time.Location
}

// NewDefaultCSVOptions returns comma delimited options parsing times in UTC
func NewDefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		Delimiter:   ',',
		TimeLayouts: DefaultTimeLayouts,
		Location:    time.UTC,
	}
}

// LoadCSV reads a csv with a header row where the first column holds the time of the
// observation and the second column holds the value. Any row that cannot be parsed fails
// the whole load.
func LoadCSV(r io.Reader, opt *CSVOptions) (*TimeDataset, error) {
	if opt == nil {
		opt = NewDefaultCSVOptions()
	}
	layouts := opt.TimeLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimeLayouts
	}
	loc := opt.Location
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	if opt.Delimiter != 0 {
		reader.Comma = opt.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("unable to read csv header, %w", err)
	}

	var t []time.Time
	var y []float64
	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read csv row %d, %w", row, err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("row %d has %d columns, %w", row, len(record), ErrMissingColumns)
		}

		tPnt, err := ParseTime(record[0], layouts, loc)
		if err != nil {
			return nil, fmt.Errorf("row %d, %w", row, err)
		}
		valStr := strings.TrimSpace(record[1])
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d value %q, %w", row, valStr, ErrUnparsableValue)
		}
		t = append(t, tPnt)
		y = append(y, val)
	}

	return NewUnivariateDataset(t, y)
}

// ParseTime tries each layout in order and returns the first successful parse
func ParseTime(s string, layouts []string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	for _, layout := range layouts {
		if tPnt, err := time.ParseInLocation(layout, s, loc); err == nil {
			return tPnt, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrUnparsableTime)
}
