package airquality

import (
	"fmt"
	"time"
)

// Coordinate is a resolved (latitude, longitude) pair for a city.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within geographic bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// PM25Observation is one hourly PM2.5 reading in µg/m³.
type PM25Observation struct {
	Time time.Time `json:"time"` // always UTC
	PM25 float64   `json:"pm25"`
}

// MeteoObservation is one hourly meteorological reading.
type MeteoObservation struct {
	Time             time.Time `json:"time"` // always UTC
	Temperature      float64   `json:"temperature"`
	RelativeHumidity float64   `json:"relativeHumidity"`
	WindSpeed        float64   `json:"windSpeed"`
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// History bundles everything fetched for one city and date range.
type History struct {
	City       string
	Coordinate Coordinate
	Range      DateRange
	PM25       []PM25Observation
	Meteo      []MeteoObservation
}
