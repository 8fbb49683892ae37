// Package imputation fills missing price and rating values on appliance
// records using per-category trained models.
package imputation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"appliance-pipeline/features"
	"appliance-pipeline/models"
	"appliance-pipeline/utils"
)

// Registry looks up a trained model by category and task.
type Registry interface {
	Get(category string, task models.Task) (models.TrainedModel, bool)
}

// PreprocessorSource supplies the fitted preprocessing for a category, if any.
type PreprocessorSource interface {
	Preprocessor(category string) (models.Transformer, bool)
}

// Engine imputes price and rating one record at a time. It holds no state
// between records; the registry is only read.
type Engine struct {
	catalog  *features.Catalog
	registry Registry
	prep     PreprocessorSource
	logger   *utils.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPreprocessors applies the category's fitted preprocessing before
// feature derivation.
func WithPreprocessors(src PreprocessorSource) Option {
	return func(e *Engine) { e.prep = src }
}

// NewEngine creates an Engine over the given catalog and registry.
func NewEngine(catalog *features.Catalog, registry Registry, logger *utils.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = utils.Discard()
	}
	e := &Engine{catalog: catalog, registry: registry, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ImputeRecord returns a copy of rec with price and/or rating filled where a
// model allowed it, plus one report entry per attempted target. Entries carry
// Row 0; ImputeBatch numbers them.
func (e *Engine) ImputeRecord(rec models.Record) (models.Record, []models.ReportEntry) {
	out := rec.Clone()

	category := rec.Category()
	if category == "" {
		return out, []models.ReportEntry{{
			Kind:   models.KindMissingCategory,
			Detail: models.ErrMissingCategory.Error(),
		}}
	}

	priceMissing := !rec.Has(models.FieldPrice)
	ratingMissing := !rec.Has(models.FieldRating)

	view := rec
	if e.prep != nil {
		if p, ok := e.prep.Preprocessor(category); ok {
			view = p.Transform(rec)
		}
	}
	augmented, _ := e.catalog.Apply(view, category)

	var entries []models.ReportEntry

	if task, ok := PriceTask(!priceMissing); ok {
		entry := e.predict(category, task, augmented)
		if entry.Kind == models.KindPredicted {
			out[models.FieldPrice] = entry.Value
			augmented[models.FieldPrice] = entry.Value
		}
		entries = append(entries, entry)
	}

	if task, ok := RatingTask(!ratingMissing, out.Has(models.FieldPrice)); ok {
		entry := e.predict(category, task, augmented)
		if entry.Kind == models.KindPredicted {
			out[models.FieldRating] = entry.Value
		}
		entries = append(entries, entry)
	}

	return out, entries
}

// predict runs one task against the augmented view. It never panics.
func (e *Engine) predict(category string, task models.Task, augmented models.Record) (entry models.ReportEntry) {
	entry = models.ReportEntry{Category: category, Target: task.Target(), Task: task}

	defer func() {
		if r := recover(); r != nil {
			entry.Kind = models.KindPredictionFailed
			entry.Detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	model, ok := e.registry.Get(category, task)
	if !ok {
		entry.Kind = models.KindModelNotFound
		entry.Detail = fmt.Sprintf("%s model for %q not found", task, category)
		return entry
	}

	vector := make(map[string]float64)
	var names []string
	for _, name := range model.FeatureNames() {
		if task.Excludes(name) {
			continue
		}
		v, ok := augmented.Float(name)
		if !ok {
			continue
		}
		vector[name] = v
		names = append(names, name)
	}
	entry.Features = names

	if len(names) == 0 {
		entry.Kind = models.KindEmptyFeatureSet
		entry.Detail = models.ErrEmptyFeatureSet.Error()
		return entry
	}

	v, err := model.Predict(vector)
	if err != nil {
		entry.Kind = models.KindPredictionFailed
		entry.Detail = err.Error()
		return entry
	}

	entry.Kind = models.KindPredicted
	entry.Value = v
	return entry
}

// ImputeBatch processes records sequentially. A failure on one record is
// reported and never stops the rest.
func (e *Engine) ImputeBatch(recs []models.Record) ([]models.Record, *models.ImputationReport) {
	report := models.NewImputationReport(uuid.NewString())
	out := make([]models.Record, len(recs))

	for i, rec := range recs {
		updated, entries := e.imputeSafely(rec)
		out[i] = updated
		for j := range entries {
			entries[j].Row = i
			e.logEntry(entries[j])
		}
		report.Add(entries...)
	}

	report.Records = len(recs)
	report.FinishedAt = time.Now()
	e.logger.Info("[imputation] run %s: %d records, %d predicted, %d model not found, %d empty feature set, %d failed, %d skipped",
		report.RunID, report.Records,
		report.Counts[models.KindPredicted],
		report.Counts[models.KindModelNotFound],
		report.Counts[models.KindEmptyFeatureSet],
		report.Counts[models.KindPredictionFailed],
		report.Counts[models.KindMissingCategory])
	return out, report
}

func (e *Engine) imputeSafely(rec models.Record) (out models.Record, entries []models.ReportEntry) {
	defer func() {
		if r := recover(); r != nil {
			out = rec.Clone()
			entries = []models.ReportEntry{{
				Category: rec.Category(),
				Kind:     models.KindPredictionFailed,
				Detail:   fmt.Sprintf("panic: %v", r),
			}}
		}
	}()
	return e.ImputeRecord(rec)
}

func (e *Engine) logEntry(en models.ReportEntry) {
	switch en.Kind {
	case models.KindPredicted:
		e.logger.Info("[imputation] row %d (%s): predicted %s = %.2f using %s",
			en.Row, en.Category, en.Target, en.Value, en.Task)
	case models.KindMissingCategory:
		e.logger.Warn("[imputation] row %d: skipped, 'category' is missing", en.Row)
	default:
		e.logger.Warn("[imputation] row %d (%s): %s %s: %s",
			en.Row, en.Category, en.Target, en.Kind, en.Detail)
	}
}
