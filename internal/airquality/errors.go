package airquality

import "errors"

var (
	// ErrCityNotFound is returned when geocoding yields no candidate.
	ErrCityNotFound = errors.New("city not found")

	// ErrDataMissing is returned when an upstream response lacks expected fields.
	ErrDataMissing = errors.New("upstream data missing")
)
