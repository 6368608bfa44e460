package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// IndicatorState is the tri-state outcome of one threshold check.
type IndicatorState string

const (
	// StateExceeded means a contributing statistic met or exceeded the threshold.
	StateExceeded IndicatorState = "exceeded"
	// StateNotExceeded means every contributing statistic is known and below the threshold.
	StateNotExceeded IndicatorState = "not_exceeded"
	// StateUnknown means missing data prevented a definite comparison.
	StateUnknown IndicatorState = "unknown"
)

// RiskLabel is the final categorical risk classification for a plot.
type RiskLabel string

const (
	RiskLow            RiskLabel = "low"
	RiskHigh           RiskLabel = "high"
	RiskMoreInfoNeeded RiskLabel = "more_info_needed"
)

// RiskColumn is the output column name for the final risk label.
const RiskColumn = "EUDR_risk"

// Thresholds holds the four caller-supplied indicator thresholds, each a
// percentage in [0, 100]. Comparison is inclusive: value >= threshold.
type Thresholds struct {
	TreeCover         float64 `json:"ind_1_threshold"`
	Commodities       float64 `json:"ind_2_threshold"`
	DisturbanceBefore float64 `json:"ind_3_threshold"`
	DisturbanceAfter  float64 `json:"ind_4_threshold"`
}

// DefaultThresholds returns the reference defaults: 10% tree cover, 10%
// commodities, any disturbance either side of the cutoff year.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TreeCover:         10.0,
		Commodities:       10.0,
		DisturbanceBefore: 0.0,
		DisturbanceAfter:  0.0,
	}
}

// For returns the threshold for the given indicator.
func (t Thresholds) For(ind Indicator) float64 {
	switch ind {
	case IndicatorTreeCover:
		return t.TreeCover
	case IndicatorCommodities:
		return t.Commodities
	case IndicatorDisturbanceBefore:
		return t.DisturbanceBefore
	case IndicatorDisturbanceAfter:
		return t.DisturbanceAfter
	}
	return 0
}

// Validate checks that every threshold is within [0, 100].
func (t Thresholds) Validate() error {
	for _, ind := range Indicators {
		v := t.For(ind)
		if v < 0 || v > 100 {
			return eris.Errorf("model: threshold for indicator %d out of range [0,100]: %g", int(ind), v)
		}
	}
	return nil
}

// IndicatorStates maps each indicator to its computed state. JSON output
// is keyed by the indicator's output column name so API consumers see the
// same names as the CSV and XLSX exports.
type IndicatorStates map[Indicator]IndicatorState

func (s IndicatorStates) MarshalJSON() ([]byte, error) {
	out := make(map[string]IndicatorState, len(s))
	for ind, state := range s {
		out[ind.Column()] = state
	}
	return json.Marshal(out)
}

func (s *IndicatorStates) UnmarshalJSON(data []byte) error {
	var raw map[string]IndicatorState
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m := make(IndicatorStates, len(raw))
	for _, ind := range Indicators {
		if state, ok := raw[ind.Column()]; ok {
			m[ind] = state
		}
	}
	*s = m
	return nil
}

// RiskAssessment is the classification outcome for one plot: the final
// label plus the four underlying indicator states so callers can audit
// why the label was assigned.
type RiskAssessment struct {
	PlotID string          `json:"plot_id"`
	States IndicatorStates `json:"indicators"`
	Label  RiskLabel       `json:"eudr_risk"`
}

// State returns the recorded state for an indicator, defaulting to unknown.
func (a RiskAssessment) State(ind Indicator) IndicatorState {
	if s, ok := a.States[ind]; ok {
		return s
	}
	return StateUnknown
}
