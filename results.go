package forecastlab

import "time"

// Results holds the forecast for each requested time point and its standard error
type Results struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Stderr   []float64   `json:"stderr"`
}

// Len returns the number of forecasted points
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}
