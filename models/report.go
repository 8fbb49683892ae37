package models

import (
	"errors"
	"time"
)

// Errors surfaced per record or per feature. None of them aborts a batch.
var (
	ErrMissingCategory  = errors.New("record has no usable category")
	ErrModelNotFound    = errors.New("no trained model for category and task")
	ErrEmptyFeatureSet  = errors.New("no model features present in record")
	ErrPredictionFailed = errors.New("prediction failed")
)

// ReportKind classifies an imputation report entry.
type ReportKind string

const (
	KindPredicted        ReportKind = "Predicted"
	KindMissingCategory  ReportKind = "MissingCategory"
	KindModelNotFound    ReportKind = "ModelNotFound"
	KindEmptyFeatureSet  ReportKind = "EmptyFeatureSet"
	KindPredictionFailed ReportKind = "PredictionFailed"
)

// Err maps a kind to its sentinel error; KindPredicted maps to nil.
func (k ReportKind) Err() error {
	switch k {
	case KindMissingCategory:
		return ErrMissingCategory
	case KindModelNotFound:
		return ErrModelNotFound
	case KindEmptyFeatureSet:
		return ErrEmptyFeatureSet
	case KindPredictionFailed:
		return ErrPredictionFailed
	}
	return nil
}

// ReportEntry describes what happened to one target of one record.
type ReportEntry struct {
	Row      int
	Category string
	Target   string
	Task     Task
	Kind     ReportKind
	Value    float64
	Features []string // exact feature names handed to the model
	Detail   string
}

// ImputationReport summarises a batch run.
type ImputationReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Entries    []ReportEntry
	Counts     map[ReportKind]int
}

// NewImputationReport creates an empty report for the given run.
func NewImputationReport(runID string) *ImputationReport {
	return &ImputationReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Counts:    make(map[ReportKind]int),
	}
}

// Add appends entries and updates the per-kind counters.
func (r *ImputationReport) Add(entries ...ReportEntry) {
	for _, e := range entries {
		r.Entries = append(r.Entries, e)
		r.Counts[e.Kind]++
	}
}

// InsightReport holds the dynamic per-table query results.
type InsightReport struct {
	Table         string
	TotalItems    int
	TitleColumn   string
	PriceColumn   string
	HasPrice      bool
	AveragePrice  float64
	MostExpensive []Record
	SortColumn    string
	TopBySort     []Record
	Sample        []Record
}
