package forecast

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/forecastlab/feature"
	"github.com/aouyang1/forecastlab/stats"
	"github.com/goccy/go-json"
)

// Model represents a serializeable format of a forecast storing the forecast options, fit scores,
// and coefficients
type Model struct {
	TrainStartTime time.Time     `json:"train_start_time"`
	TrainEndTime   time.Time     `json:"train_end_time"`
	Options        *Options      `json:"options"`
	Scores         *stats.Scores `json:"scores"`
	Weights        Weights       `json:"weights"`
}

// TablePrint writes the model options, scores and weights in a human readable table
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%sForecast:\n", prefix); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s - %s\n", prefix, indent, m.TrainStartTime, m.TrainEndTime); err != nil {
		return err
	}
	if err := m.Options.TablePrint(w, prefix, indent); err != nil {
		return err
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%sScores:\n", prefix); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAE: %.3f    MAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, indent,
			m.Scores.MAE,
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent)
}

// Weights stores the intercept and coefficients for the forecast model
type Weights struct {
	Intercept float64         `json:"intercept"`
	Coef      []FeatureWeight `json:"coefficients"`
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(wr, "%sWeights:\n", prefix); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(wr, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sType\tLabels\tValue\t\n", prefix, indent); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%.3f\t\n", prefix, indent, "intercept", "{}", w.Intercept); err != nil {
		return err
	}
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value)
		if fw.Value == 0 {
			val = "..."
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, indent,
			fw.Type, string(labelOut), val); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// FeatureWeight represents a feature described with a type e.g. changepoint, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}
