package forecastlab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelKind(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected ModelKind
		err      error
	}{
		"gbt key":        {"gbt", KindGradientBoostedTree, nil},
		"gbt label":      {"Gradient Boosted Trees", KindGradientBoostedTree, nil},
		"additive key":   {" additive ", KindAdditiveDecomposition, nil},
		"additive label": {"additive decomposition", KindAdditiveDecomposition, nil},
		"sarima":         {"SARIMA", KindSeasonalARIMA, nil},
		"unknown":        {"prophet", "", ErrUnknownModelKind},
		"empty":          {"", "", ErrUnknownModelKind},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			kind, err := ParseModelKind(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, kind)
		})
	}
}

func TestModelKindLabels(t *testing.T) {
	assert.Equal(t, "Gradient Boosted Trees", KindGradientBoostedTree.Label())
	assert.Equal(t, "Additive Decomposition", KindAdditiveDecomposition.Label())
	assert.Equal(t, "SARIMA", KindSeasonalARIMA.Label())
	assert.Len(t, Kinds(), 3)
	for _, k := range Kinds() {
		assert.True(t, k.Valid())
	}
	assert.False(t, ModelKind("other").Valid())
	assert.True(t, KindSeasonalARIMA.NeedsConfig())
	assert.False(t, KindGradientBoostedTree.NeedsConfig())
}

func TestParseSeasonalOrder(t *testing.T) {
	testData := map[string]struct {
		input    string
		expected SeasonalARIMAConfig
		err      error
	}{
		"six values": {
			input:    "1 1 1 0 1 1",
			expected: SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{0, 1, 1}},
		},
		"seven values": {
			input:    "2 0 1 1 1 0 12",
			expected: SeasonalARIMAConfig{Order: [3]int{2, 0, 1}, SeasonalOrder: [3]int{1, 1, 0}, Period: 12},
		},
		"extra whitespace": {
			input:    "  1\t0  0 0 0 0\n",
			expected: SeasonalARIMAConfig{Order: [3]int{1, 0, 0}},
		},
		"five values":     {input: "1 1 1 0 1", err: ErrInvalidSeasonalOrder},
		"one value":       {input: "1", err: ErrInvalidSeasonalOrder},
		"eight values":    {input: "1 1 1 0 1 1 7 7", err: ErrInvalidSeasonalOrder},
		"non integer":     {input: "1 1 a 0 1 1", err: ErrInvalidSeasonalOrder},
		"decimal":         {input: "1 1 1.5 0 1 1", err: ErrInvalidSeasonalOrder},
		"negative":        {input: "1 -1 1 0 1 1", err: ErrInvalidSeasonalOrder},
		"comma separated": {input: "1,1,1,0,1,1", err: ErrInvalidSeasonalOrder},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseSeasonalOrder(td.input)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, cfg)
		})
	}
}

func TestParseModelConfig(t *testing.T) {
	testData := map[string]struct {
		kind     ModelKind
		raw      string
		expected ModelConfig
		err      error
	}{
		"gbt ignores input":      {KindGradientBoostedTree, "garbage", GradientBoostedTreeConfig{}, nil},
		"additive ignores input": {KindAdditiveDecomposition, "", AdditiveDecompositionConfig{}, nil},
		"sarima empty":           {KindSeasonalARIMA, "", nil, ErrConfigIncomplete},
		"sarima blank":           {KindSeasonalARIMA, "   ", nil, ErrConfigIncomplete},
		"sarima short":           {KindSeasonalARIMA, "1 1", nil, ErrInvalidSeasonalOrder},
		"sarima valid": {
			KindSeasonalARIMA, "1 0 0 0 0 0",
			SeasonalARIMAConfig{Order: [3]int{1, 0, 0}}, nil,
		},
		"unknown kind": {ModelKind("x"), "", nil, ErrUnknownModelKind},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseModelConfig(td.kind, td.raw)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, cfg)
			assert.Equal(t, td.kind, cfg.Kind())
		})
	}
}

func TestSeasonalARIMAConfigString(t *testing.T) {
	cfg := SeasonalARIMAConfig{Order: [3]int{1, 1, 1}, SeasonalOrder: [3]int{0, 1, 1}}
	assert.Equal(t, "1 1 1 0 1 1", cfg.String())

	cfg.Period = 7
	assert.Equal(t, "1 1 1 0 1 1 7", cfg.String())

	parsed, err := ParseSeasonalOrder(cfg.String())
	require.NoError(t, err)
	assert.Equal(t, cfg, parsed)
}
