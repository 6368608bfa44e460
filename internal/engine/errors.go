package engine

import "fmt"

// CombinationError reports a layer-set invariant violation during
// combination. It indicates a programming bug, not a data problem,
// and aborts the request.
type CombinationError struct {
	DatasetID string
	Err       error
}

func (e *CombinationError) Error() string {
	return fmt.Sprintf("combine: dataset %s: %v", e.DatasetID, e.Err)
}

func (e *CombinationError) Unwrap() error { return e.Err }

// ReductionError wraps a compute backend failure. It is retryable, but
// retry policy belongs to the orchestration layer; the engine surfaces
// it once and gives up.
type ReductionError struct {
	Plots int
	Err   error
}

func (e *ReductionError) Error() string {
	return fmt.Sprintf("reduce: backend call failed for %d plots: %v", e.Plots, e.Err)
}

func (e *ReductionError) Unwrap() error { return e.Err }

// ClassificationError reports a schema mismatch between the statistics
// table and the registry: a required contributing column is absent.
type ClassificationError struct {
	Column string
	Err    error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify: column %s: %v", e.Column, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ConversionError reports a per-cell unit conversion failure: conversion
// on a zero-area plot, or a non-numeric value in a numeric-only layer.
// It is contained to the single cell; the affected statistic is nulled
// and the run continues.
type ConversionError struct {
	PlotID    string
	DatasetID string
	Reason    string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert: plot %s, dataset %s: %s", e.PlotID, e.DatasetID, e.Reason)
}
