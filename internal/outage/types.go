package outage

import "time"

// Location is a user-registered place that outages can reference.
type Location struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Locality  string    `json:"locality,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationSummary is the subset of a location loaded alongside an outage.
type LocationSummary struct {
	ID        int64
	Name      string
	Address   string
	Locality  string
	City      string
	Country   string
	Latitude  float64
	Longitude float64
}

// Weather holds the conditions recorded for an outage at its last enrichment.
type Weather struct {
	Condition     string
	Temperature   float64 // °C
	WindSpeed     float64 // km/h
	Precipitation float64 // mm
	Humidity      *int
	Pressure      *float64
	Cloud         *int
}

// Outage is a single power outage event owned by one user.
// EndTime is nil while the outage is ongoing.
type Outage struct {
	ID         int64
	UserID     int64
	StartTime  time.Time
	EndTime    *time.Time
	LocationID *int64
	Location   *LocationSummary
	Weather    Weather
	DayOfWeek  int
	IsHoliday  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status is the derived lifecycle state of an outage.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts "ongoing" or "completed".
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusOngoing, StatusCompleted:
		return Status(s), true
	}
	return "", false
}

// Summary returns the embedded view of l used in outage responses.
func (l Location) Summary() *LocationSummary {
	return &LocationSummary{
		ID:        l.ID,
		Name:      l.Name,
		Address:   l.Address,
		Locality:  l.Locality,
		City:      l.City,
		Country:   l.Country,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
	}
}
