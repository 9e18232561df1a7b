package weather

import (
	"errors"
	"fmt"
	"strconv"
)

// Snapshot is the provider-neutral view of current conditions at a point.
type Snapshot struct {
	Condition       string   `json:"condition"`
	TemperatureC    float64  `json:"temperature_c"`
	WindKph         float64  `json:"wind_kph"`
	PrecipitationMm float64  `json:"precipitation_mm"`
	Humidity        *int     `json:"humidity,omitempty"`
	PressureMb      *float64 `json:"pressure_mb,omitempty"`
	CloudPct        *int     `json:"cloud_pct,omitempty"`
}

// ErrUnavailable matches every *UnavailableError.
var ErrUnavailable = errors.New("weather unavailable")

// Failure reasons, also used as the outcome metric label.
const (
	ReasonHTTPStatus  = "http_error"
	ReasonTransport   = "transport_error"
	ReasonMalformed   = "malformed"
	ReasonCircuitOpen = "circuit_open"
)

// UnavailableError reports that no snapshot could be produced for the
// attempted coordinates.
type UnavailableError struct {
	Latitude  float64
	Longitude float64
	Reason    string
	Status    int // upstream HTTP status, 0 when none was received
	Err       error
}

// Coordinates formats the attempted point as "lat,lng".
func (e *UnavailableError) Coordinates() string {
	return formatCoordinates(e.Latitude, e.Longitude)
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("weather unavailable for %s (%s): %v", e.Coordinates(), e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func formatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
