// Package feature describes the labelled regressors generated from a time series. The additive
// model uses growth, changepoint, seasonality and event features while the tree model uses
// lag and calendar time features.
package feature

type FeatureType int

const (
	FeatureTypeGrowth FeatureType = iota
	FeatureTypeChangepoint
	FeatureTypeSeasonality
	FeatureTypeEvent
	FeatureTypeTime
	FeatureTypeLag
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeGrowth:
		return "growth"
	case FeatureTypeChangepoint:
		return "changepoint"
	case FeatureTypeSeasonality:
		return "seasonality"
	case FeatureTypeEvent:
		return "event"
	case FeatureTypeTime:
		return "time"
	case FeatureTypeLag:
		return "lag"
	}
	return "unknown"
}

// Feature is a single labelled regressor. String must be unique across features since it is
// used as the key within a Set.
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}
