package timedataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	testData := map[string]struct {
		input    string
		opt      *CSVOptions
		expected *TimeDataset
		err      error
	}{
		"empty input": {
			input: "",
			err:   ErrNoHeader,
		},
		"header only": {
			input: "date,value\n",
			err:   ErrNoTrainingData,
		},
		"daily dates": {
			input: "date,value\n2023-01-01,1.5\n2023-01-02,2\n2023-01-03,-3.25\n",
			expected: &TimeDataset{
				T: []time.Time{
					time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
					time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
					time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
				},
				Y: []float64{1.5, 2, -3.25},
			},
		},
		"timestamps with extra columns": {
			input: "ts,value,note\n2023-01-01 10:00:00, 4,a\n2023-01-01 11:00:00, 5,b\n",
			expected: &TimeDataset{
				T: []time.Time{
					time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC),
					time.Date(2023, 1, 1, 11, 0, 0, 0, time.UTC),
				},
				Y: []float64{4, 5},
			},
		},
		"semicolon delimiter": {
			input: "ts;value\n2023-01-01T00:00:00Z;4\n2023-01-01T01:00:00Z;5\n",
			opt:   &CSVOptions{Delimiter: ';'},
			expected: &TimeDataset{
				T: []time.Time{
					time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
					time.Date(2023, 1, 1, 1, 0, 0, 0, time.UTC),
				},
				Y: []float64{4, 5},
			},
		},
		"single column": {
			input: "value\n1\n",
			err:   ErrMissingColumns,
		},
		"bad time": {
			input: "date,value\nyesterday,1\n",
			err:   ErrUnparsableTime,
		},
		"bad value": {
			input: "date,value\n2023-01-01,abc\n",
			err:   ErrUnparsableValue,
		},
		"unsorted": {
			input: "date,value\n2023-01-02,1\n2023-01-01,2\n",
			err:   ErrNonMontonic,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := LoadCSV(strings.NewReader(td.input), td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestParseTime(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected time.Time
		err      error
	}{
		"rfc3339":    {input: "2023-05-06T07:08:09Z", expected: time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)},
		"minutes":    {input: "2023-05-06 07:08", expected: time.Date(2023, 5, 6, 7, 8, 0, 0, time.UTC)},
		"slashes":    {input: "2023/05/06", expected: time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)},
		"us dates":   {input: "05/06/2023", expected: time.Date(2023, 5, 6, 0, 0, 0, 0, time.UTC)},
		"month only": {input: "\"2023-05\"", expected: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		"garbage":    {input: "not a time", err: ErrUnparsableTime},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := ParseTime(td.input, DefaultTimeLayouts, time.UTC)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}
