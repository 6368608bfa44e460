package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/herrtunante/whisp/internal/config"
	"github.com/herrtunante/whisp/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertNullRate       AlertType = "null_rate"
	AlertMoreInfoRate   AlertType = "more_info_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client

	// Breaker optionally guards webhook delivery so a dead alert endpoint
	// stops consuming the check loop instead of timing out every cycle.
	Breaker *resilience.CircuitBreaker
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	// Run failure rate. Skip tiny samples so one bad file in an otherwise
	// idle window does not page anyone.
	finished := snap.RunsComplete + snap.RunsFailed
	if finished >= 5 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.FailureRateThreshold,
				"failed":    snap.RunsFailed,
				"finished":  finished,
			},
			Timestamp: now,
		})
	}

	// Null-cell rate: a spike usually means a layer started returning
	// values the table builder cannot convert.
	if a.cfg.NullRateThreshold > 0 && snap.RowsProduced > 0 && snap.NullRate > a.cfg.NullRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertNullRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Nulled cell rate %.1f%% exceeds threshold %.1f%% (%d nulled cells across %d rows in last %dh)",
				snap.NullRate*100, a.cfg.NullRateThreshold*100,
				snap.NulledCells, snap.RowsProduced, snap.LookbackHours,
			),
			Details: map[string]any{
				"null_rate":    snap.NullRate,
				"threshold":    a.cfg.NullRateThreshold,
				"nulled_cells": snap.NulledCells,
				"rows":         snap.RowsProduced,
			},
			Timestamp: now,
		})
	}

	// Share of plots classified more_info_needed: indicates missing or
	// unusable layer data rather than genuinely ambiguous plots.
	if a.cfg.MoreInfoRateThreshold > 0 && snap.MoreInfoRate > a.cfg.MoreInfoRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertMoreInfoRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"more_info_needed rate %.1f%% exceeds threshold %.1f%% in last %dh",
				snap.MoreInfoRate*100, a.cfg.MoreInfoRateThreshold*100, snap.LookbackHours,
			),
			Details: map[string]any{
				"more_info_rate": snap.MoreInfoRate,
				"threshold":      a.cfg.MoreInfoRateThreshold,
				"labels":         snap.Labels,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.deliver(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// deliver sends one alert, through the circuit breaker when configured.
func (a *Alerter) deliver(ctx context.Context, alert Alert) error {
	if a.Breaker == nil {
		return a.sendWebhook(ctx, alert)
	}
	return a.Breaker.Execute(ctx, func(ctx context.Context) error {
		return a.sendWebhook(ctx, alert)
	})
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 500 {
		// Server-side failures count toward the breaker; a 4xx means the
		// payload or URL is wrong and retrying will not help.
		return resilience.NewTransientError(
			eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode),
			resp.StatusCode,
		)
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
