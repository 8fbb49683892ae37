package models

// TrainedModel is an opaque regressor keyed by (category, task).
type TrainedModel interface {
	// FeatureNames returns the feature set the model was trained on.
	FeatureNames() []string
	// Predict returns one scalar for one row. Features the model knows but
	// the map lacks are filled by the model itself.
	Predict(features map[string]float64) (float64, error)
}

// Transformer maps a raw record onto the representation a model was trained
// on (encoding, scaling). It must not modify its input.
type Transformer interface {
	Transform(rec Record) Record
}
