package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// Lag is the value of the series a number of steps before the current point
type Lag struct {
	Order int `json:"order"`
}

func NewLag(order int) *Lag {
	return &Lag{order}
}

func (l Lag) String() string {
	return fmt.Sprintf("lag_%03d", l.Order)
}

func (l Lag) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "order":
		return strconv.Itoa(l.Order), true
	}
	return "", false
}

func (l Lag) Type() FeatureType {
	return FeatureTypeLag
}

func (l Lag) Decode() map[string]string {
	return map[string]string{"order": strconv.Itoa(l.Order)}
}
