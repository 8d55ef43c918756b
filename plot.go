package forecastlab

import (
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	ChartTitle = "Model Forecast vs Actuals"

	// MissingValue is drawn as a gap in a line series
	MissingValue = "-"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// AxisLayout returns the date layout when every time point falls on midnight and a minute
// resolution layout otherwise
func AxisLayout(t []time.Time) string {
	for _, tPnt := range t {
		if tPnt.Hour() != 0 || tPnt.Minute() != 0 || tPnt.Second() != 0 {
			return dateTimeLayout
		}
	}
	return dateLayout
}

// LineTSeries generates an echart multi-line chart over a shared time axis. Each series in y
// must have the same length as t and NaN values are drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	layout := AxisLayout(t)
	xAxis := make([]string, len(t))
	for i, tPnt := range t {
		xAxis[i] = tPnt.Format(layout)
	}
	line = line.SetXAxis(xAxis)

	for i, series := range seriesName {
		lineData := make([]opts.LineData, len(y[i]))
		for j, v := range y[i] {
			if math.IsNaN(v) {
				lineData[j] = opts.LineData{Value: MissingValue}
				continue
			}
			lineData[j] = opts.LineData{Value: v}
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// Chart plots the training data, the held out test data and the forecast over the test period
func (r *Report) Chart() *charts.Line {
	train, test := r.Split.Train, r.Split.Test
	nTrain := train.Len()

	t := make([]time.Time, 0, nTrain+test.Len())
	t = append(t, train.T...)
	t = append(t, test.T...)

	trainPad := nanSlice(nTrain)
	testPad := nanSlice(test.Len())

	return LineTSeries(
		ChartTitle,
		[]string{"Train", "Test", "Forecast"},
		t,
		[][]float64{
			concat(train.Y, testPad),
			concat(trainPad, test.Y),
			concat(trainPad, r.Results.Forecast),
		},
	)
}

// Render writes an html page containing the chart
func (r *Report) Render(w io.Writer) error {
	page := components.NewPage()
	page.AddCharts(r.Chart())
	return page.Render(w)
}

func nanSlice(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}

func concat(a, b []float64) []float64 {
	res := make([]float64, 0, len(a)+len(b))
	res = append(res, a...)
	return append(res, b...)
}
