package forecastlab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownModelKind     = errors.New("unknown model kind")
	ErrConfigIncomplete     = errors.New("model configuration is incomplete")
	ErrInvalidSeasonalOrder = errors.New("seasonal order must be 6 or 7 non-negative integers")
	ErrNilModelConfig       = errors.New("no model configuration")
)

// ModelKind identifies one of the supported model families
type ModelKind string

const (
	KindGradientBoostedTree   ModelKind = "gbt"
	KindAdditiveDecomposition ModelKind = "additive"
	KindSeasonalARIMA         ModelKind = "sarima"
)

var kindLabels = map[ModelKind]string{
	KindGradientBoostedTree:   "Gradient Boosted Trees",
	KindAdditiveDecomposition: "Additive Decomposition",
	KindSeasonalARIMA:         "SARIMA",
}

// Kinds lists every model kind in the order they are offered
func Kinds() []ModelKind {
	return []ModelKind{
		KindGradientBoostedTree,
		KindAdditiveDecomposition,
		KindSeasonalARIMA,
	}
}

// Label returns the display name of the kind
func (k ModelKind) Label() string {
	if label, exists := kindLabels[k]; exists {
		return label
	}
	return string(k)
}

func (k ModelKind) String() string {
	return string(k)
}

// Valid reports whether k is one of the supported kinds
func (k ModelKind) Valid() bool {
	_, exists := kindLabels[k]
	return exists
}

// NeedsConfig reports whether the kind takes user supplied parameters
func (k ModelKind) NeedsConfig() bool {
	return k == KindSeasonalARIMA
}

// ParseModelKind accepts either the key or the display label of a kind, ignoring case
func ParseModelKind(s string) (ModelKind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(s, string(k)) || strings.EqualFold(s, k.Label()) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q, %w", s, ErrUnknownModelKind)
}

// ModelConfig is the kind specific configuration handed to Train. The set of implementations
// is closed to this package.
type ModelConfig interface {
	Kind() ModelKind
	isModelConfig()
}

// GradientBoostedTreeConfig selects the gradient boosted tree forecaster
type GradientBoostedTreeConfig struct{}

func (GradientBoostedTreeConfig) Kind() ModelKind { return KindGradientBoostedTree }
func (GradientBoostedTreeConfig) isModelConfig()  {}

// AdditiveDecompositionConfig selects the additive trend, seasonality and event model
type AdditiveDecompositionConfig struct{}

func (AdditiveDecompositionConfig) Kind() ModelKind { return KindAdditiveDecomposition }
func (AdditiveDecompositionConfig) isModelConfig()  {}

// SeasonalARIMAConfig holds the (p, d, q) x (P, D, Q, m) orders. A zero Period is inferred
// from the sampling frequency of the training data.
type SeasonalARIMAConfig struct {
	Order         [3]int `json:"order"`
	SeasonalOrder [3]int `json:"seasonal_order"`
	Period        int    `json:"period"`
}

func (SeasonalARIMAConfig) Kind() ModelKind { return KindSeasonalARIMA }
func (SeasonalARIMAConfig) isModelConfig()  {}

// String formats the orders the way ParseSeasonalOrder reads them
func (c SeasonalARIMAConfig) String() string {
	vals := []int{
		c.Order[0], c.Order[1], c.Order[2],
		c.SeasonalOrder[0], c.SeasonalOrder[1], c.SeasonalOrder[2],
	}
	if c.Period > 0 {
		vals = append(vals, c.Period)
	}
	tokens := make([]string, len(vals))
	for i, v := range vals {
		tokens[i] = strconv.Itoa(v)
	}
	return strings.Join(tokens, " ")
}

// ParseModelConfig builds the configuration for kind from the raw user input. Only SARIMA reads
// the input; an empty input returns ErrConfigIncomplete.
func ParseModelConfig(kind ModelKind, raw string) (ModelConfig, error) {
	switch kind {
	case KindGradientBoostedTree:
		return GradientBoostedTreeConfig{}, nil
	case KindAdditiveDecomposition:
		return AdditiveDecompositionConfig{}, nil
	case KindSeasonalARIMA:
		if strings.TrimSpace(raw) == "" {
			return nil, ErrConfigIncomplete
		}
		cfg, err := ParseSeasonalOrder(raw)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("%q, %w", string(kind), ErrUnknownModelKind)
	}
}

// ParseSeasonalOrder reads whitespace separated "p d q P D Q" with an optional trailing season
// length m
func ParseSeasonalOrder(raw string) (SeasonalARIMAConfig, error) {
	var cfg SeasonalARIMAConfig

	tokens := strings.Fields(raw)
	if len(tokens) != 6 && len(tokens) != 7 {
		return cfg, fmt.Errorf("got %d values, %w", len(tokens), ErrInvalidSeasonalOrder)
	}

	vals := make([]int, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			return cfg, fmt.Errorf("value %q at position %d, %w", tok, i+1, ErrInvalidSeasonalOrder)
		}
		vals[i] = v
	}

	copy(cfg.Order[:], vals[0:3])
	copy(cfg.SeasonalOrder[:], vals[3:6])
	if len(vals) == 7 {
		cfg.Period = vals[6]
	}
	return cfg, nil
}
