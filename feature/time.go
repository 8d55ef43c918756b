package feature

import (
	"fmt"
	"strings"
	"time"
)

const (
	TimeHourOfDay  = "hod"
	TimeDayOfWeek  = "dow"
	TimeDayOfMonth = "dom"
	TimeMonth      = "month"
)

// Time is a calendar attribute of each time point
type Time struct {
	Name string `json:"name"`
}

func NewTime(name string) *Time {
	return &Time{name}
}

func (t Time) String() string {
	return fmt.Sprintf("tfeat_%s", t.Name)
}

func (t Time) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return t.Name, true
	}
	return "", false
}

func (t Time) Type() FeatureType {
	return FeatureTypeTime
}

func (t Time) Decode() map[string]string {
	return map[string]string{"name": t.Name}
}

// Value returns the calendar attribute of the time point. Unknown names return 0.
func (t Time) Value(tPnt time.Time) float64 {
	switch t.Name {
	case TimeHourOfDay:
		return float64(tPnt.Hour()) + float64(tPnt.Minute())/60.0
	case TimeDayOfWeek:
		return float64(tPnt.Weekday())
	case TimeDayOfMonth:
		return float64(tPnt.Day())
	case TimeMonth:
		return float64(tPnt.Month())
	}
	return 0
}
