package model

import "time"

// RunStatus tracks an analysis run through its lifecycle.
type RunStatus string

const (
	RunStatusQueued      RunStatus = "queued"
	RunStatusReducing    RunStatus = "reducing"
	RunStatusClassifying RunStatus = "classifying"
	RunStatusComplete    RunStatus = "complete"
	RunStatusFailed      RunStatus = "failed"
)

// RunRequest captures what the caller asked for, persisted alongside the run.
type RunRequest struct {
	Source        string     `json:"source,omitempty"`
	Plots         int        `json:"plots"`
	OutputUnit    OutputUnit `json:"output_unit"`
	CalculateRisk bool       `json:"calculate_risk"`
	Thresholds    Thresholds `json:"thresholds"`
}

// RunResult summarizes a finished analysis run.
type RunResult struct {
	Rows        int               `json:"rows"`
	Columns     int               `json:"columns"`
	NulledCells int               `json:"nulled_cells"`
	Labels      map[RiskLabel]int `json:"labels,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Run is one persisted analysis run record.
type Run struct {
	ID        string     `json:"id"`
	Request   RunRequest `json:"request"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
