package api

import (
	"time"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

type locationResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Locality    string    `json:"locality,omitempty"`
	City        string    `json:"city,omitempty"`
	Country     string    `json:"country,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	FullAddress string    `json:"full_address"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func presentLocation(l outage.Location) locationResponse {
	return locationResponse{
		ID:          l.ID,
		UserID:      l.UserID,
		Name:        l.Name,
		Address:     l.Address,
		Locality:    l.Locality,
		City:        l.City,
		Country:     l.Country,
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		FullAddress: outage.FullAddress(l),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

type locationSummaryResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Locality  string  `json:"locality,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type weatherResponse struct {
	Condition     string   `json:"condition"`
	Temperature   float64  `json:"temperature"`
	WindSpeed     float64  `json:"wind_speed"`
	Precipitation float64  `json:"precipitation"`
	Humidity      *int     `json:"humidity,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	Cloud         *int     `json:"cloud,omitempty"`
}

type outageResponse struct {
	ID         int64                    `json:"id"`
	UserID     int64                    `json:"user_id"`
	StartTime  time.Time                `json:"start_time"`
	EndTime    *time.Time               `json:"end_time"`
	Duration   int                      `json:"duration"`
	Status     outage.Status            `json:"status"`
	LocationID *int64                   `json:"location_id"`
	Location   *locationSummaryResponse `json:"location,omitempty"`
	Weather    weatherResponse          `json:"weather"`
	DayOfWeek  int                      `json:"day_of_week"`
	IsHoliday  bool                     `json:"is_holiday"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// presentOutage shapes o for the wire; duration and status are derived
// against now and never read from storage.
func presentOutage(o outage.Outage, now time.Time) outageResponse {
	resp := outageResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		StartTime:  o.StartTime,
		EndTime:    o.EndTime,
		Duration:   outage.DurationMinutes(o, now),
		Status:     outage.StatusOf(o),
		LocationID: o.LocationID,
		Weather: weatherResponse{
			Condition:     o.Weather.Condition,
			Temperature:   o.Weather.Temperature,
			WindSpeed:     o.Weather.WindSpeed,
			Precipitation: o.Weather.Precipitation,
			Humidity:      o.Weather.Humidity,
			Pressure:      o.Weather.Pressure,
			Cloud:         o.Weather.Cloud,
		},
		DayOfWeek: o.DayOfWeek,
		IsHoliday: o.IsHoliday,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if l := o.Location; l != nil {
		resp.Location = &locationSummaryResponse{
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
	return resp
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

type listResponse[T any] struct {
	Data []T      `json:"data"`
	Meta pageMeta `json:"meta"`
}

// presentPage maps every item through fn. Data is never null on the wire.
func presentPage[S, T any](r outage.PageResult[S], fn func(S) T) listResponse[T] {
	data := make([]T, 0, len(r.Items))
	for _, item := range r.Items {
		data = append(data, fn(item))
	}
	return listResponse[T]{
		Data: data,
		Meta: pageMeta{
			CurrentPage: r.Page.Number,
			PerPage:     r.Page.Size,
			Total:       r.Total,
			LastPage:    r.LastPage(),
		},
	}
}
