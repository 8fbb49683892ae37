package imputation

import "appliance-pipeline/models"

// PriceTask decides whether price needs predicting. The second result is
// false when nothing is to be done.
func PriceTask(pricePresent bool) (models.Task, bool) {
	if pricePresent {
		return "", false
	}
	return models.TaskPrice, true
}

// RatingTask decides which rating model applies. pricePresent must reflect the
// record after price imputation, not the record as received.
func RatingTask(ratingPresent, pricePresent bool) (models.Task, bool) {
	switch {
	case ratingPresent:
		return "", false
	case pricePresent:
		return models.TaskRatingWithPrice, true
	default:
		return models.TaskRatingWithoutPrice, true
	}
}
