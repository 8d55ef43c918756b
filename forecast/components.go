package forecast

// Components is the decomposition of a prediction. The prediction is the sum of all components.
type Components struct {
	Trend       []float64 `json:"trend"`
	Seasonality []float64 `json:"seasonality"`
	Event       []float64 `json:"event"`
}
