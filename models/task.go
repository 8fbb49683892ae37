package models

// Task is one of the prediction objectives a model is trained for.
// The string values are part of the on-disk model naming and must not change.
type Task string

const (
	TaskPrice              Task = "price"
	TaskRatingWithPrice    Task = "rating_with_price"
	TaskRatingWithoutPrice Task = "rating_without_price"
)

// AllTasks lists the tasks in training order.
var AllTasks = []Task{TaskPrice, TaskRatingWithPrice, TaskRatingWithoutPrice}

// Target returns the field the task predicts.
func (t Task) Target() string {
	if t == TaskPrice {
		return FieldPrice
	}
	return FieldRating
}

// Excluded returns the fields that never enter the task's input vector.
func (t Task) Excluded() []string {
	switch t {
	case TaskRatingWithPrice:
		return []string{FieldRating}
	default:
		return []string{FieldPrice, FieldRating}
	}
}

// Excludes reports whether field is kept out of the task's inputs.
func (t Task) Excludes(field string) bool {
	for _, f := range t.Excluded() {
		if f == field {
			return true
		}
	}
	return false
}

// Valid reports whether t is one of the known tasks.
func (t Task) Valid() bool {
	switch t {
	case TaskPrice, TaskRatingWithPrice, TaskRatingWithoutPrice:
		return true
	}
	return false
}
