// Package monitoring collects run-level health metrics from the store and
// raises webhook alerts when failure or data-quality thresholds are breached.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/store"
)

// MetricsSnapshot holds a point-in-time view of analysis run health.
type MetricsSnapshot struct {
	// Run counts within the lookback window.
	RunsTotal      int     `json:"runs_total"`
	RunsComplete   int     `json:"runs_complete"`
	RunsFailed     int     `json:"runs_failed"`
	RunsQueued     int     `json:"runs_queued"`
	RunsInProgress int     `json:"runs_in_progress"`
	FailRate       float64 `json:"fail_rate"`

	// Volume and data quality across completed runs.
	PlotsAnalyzed int     `json:"plots_analyzed"`
	RowsProduced  int     `json:"rows_produced"`
	NulledCells   int     `json:"nulled_cells"`
	NullRate      float64 `json:"null_rate"`

	// Risk label distribution across completed runs.
	Labels       map[model.RiskLabel]int `json:"labels,omitempty"`
	MoreInfoRate float64                 `json:"more_info_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from persisted analysis runs.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector over the run store.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		Labels:        make(map[model.RiskLabel]int),
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalCells int
	var labelled int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		case model.RunStatusReducing, model.RunStatusClassifying:
			snap.RunsInProgress++
		}
		if r.Result == nil || r.Result.Error != "" {
			continue
		}
		snap.PlotsAnalyzed += r.Request.Plots
		snap.RowsProduced += r.Result.Rows
		snap.NulledCells += r.Result.NulledCells
		totalCells += r.Result.Rows * r.Result.Columns
		for label, n := range r.Result.Labels {
			snap.Labels[label] += n
			labelled += n
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if totalCells > 0 {
		snap.NullRate = float64(snap.NulledCells) / float64(totalCells)
	}
	if labelled > 0 {
		snap.MoreInfoRate = float64(snap.Labels[model.RiskMoreInfoNeeded]) / float64(labelled)
	}

	return snap, nil
}
