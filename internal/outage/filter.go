package outage

import (
	"strings"
	"time"
)

// OutagePredicate is one independent condition of an outage listing.
// Predicates combine by logical AND; storage translates each into SQL,
// Match gives the same semantics in memory.
type OutagePredicate interface {
	Match(o Outage, now time.Time) bool
}

// LocationPredicate is one independent condition of a location listing.
type LocationPredicate interface {
	Match(l Location) bool
}

// StartedFrom keeps outages with start_time >= From.
type StartedFrom struct{ From time.Time }

func (p StartedFrom) Match(o Outage, _ time.Time) bool { return !o.StartTime.Before(p.From) }

// EndedByOrOngoing keeps outages with end_time <= By, plus ongoing ones.
type EndedByOrOngoing struct{ By time.Time }

func (p EndedByOrOngoing) Match(o Outage, _ time.Time) bool {
	return o.EndTime == nil || !o.EndTime.After(p.By)
}

// DurationBetween keeps outages whose duration in minutes lies in [Min, Max].
// Ongoing outages are measured up to now. A nil Max is unbounded.
type DurationBetween struct {
	Min int
	Max *int
}

func (p DurationBetween) Match(o Outage, now time.Time) bool {
	d := DurationMinutes(o, now)
	if d < p.Min {
		return false
	}
	return p.Max == nil || d <= *p.Max
}

// StatusIs keeps ongoing or completed outages.
type StatusIs struct{ Status Status }

func (p StatusIs) Match(o Outage, _ time.Time) bool { return StatusOf(o) == p.Status }

// WeatherConditionIs matches the recorded condition text exactly.
type WeatherConditionIs struct{ Condition string }

func (p WeatherConditionIs) Match(o Outage, _ time.Time) bool {
	return o.Weather.Condition == p.Condition
}

type TemperatureAtLeast struct{ Celsius float64 }

func (p TemperatureAtLeast) Match(o Outage, _ time.Time) bool {
	return o.Weather.Temperature >= p.Celsius
}

type TemperatureAtMost struct{ Celsius float64 }

func (p TemperatureAtMost) Match(o Outage, _ time.Time) bool {
	return o.Weather.Temperature <= p.Celsius
}

type WindSpeedAtLeast struct{ Kph float64 }

func (p WindSpeedAtLeast) Match(o Outage, _ time.Time) bool { return o.Weather.WindSpeed >= p.Kph }

type HolidayIs struct{ Holiday bool }

func (p HolidayIs) Match(o Outage, _ time.Time) bool { return o.IsHoliday == p.Holiday }

type DayOfWeekIs struct{ Day int }

func (p DayOfWeekIs) Match(o Outage, _ time.Time) bool { return o.DayOfWeek == p.Day }

// OutageFilter holds the optional listing filters; nil fields are not applied.
type OutageFilter struct {
	StartDate        *time.Time
	EndDate          *time.Time
	DurationMin      *int
	DurationMax      *int
	Status           *Status
	WeatherCondition *string
	TemperatureMin   *float64
	TemperatureMax   *float64
	WindSpeedMin     *float64
	IsHoliday        *bool
	DayOfWeek        *int
}

// Predicates builds the conjunction for the filters that are present.
func (f OutageFilter) Predicates() []OutagePredicate {
	var ps []OutagePredicate
	if f.StartDate != nil {
		ps = append(ps, StartedFrom{From: *f.StartDate})
	}
	if f.EndDate != nil {
		ps = append(ps, EndedByOrOngoing{By: *f.EndDate})
	}
	if f.DurationMin != nil || f.DurationMax != nil {
		p := DurationBetween{Max: f.DurationMax}
		if f.DurationMin != nil {
			p.Min = *f.DurationMin
		}
		ps = append(ps, p)
	}
	if f.Status != nil {
		ps = append(ps, StatusIs{Status: *f.Status})
	}
	if f.WeatherCondition != nil {
		ps = append(ps, WeatherConditionIs{Condition: *f.WeatherCondition})
	}
	if f.TemperatureMin != nil {
		ps = append(ps, TemperatureAtLeast{Celsius: *f.TemperatureMin})
	}
	if f.TemperatureMax != nil {
		ps = append(ps, TemperatureAtMost{Celsius: *f.TemperatureMax})
	}
	if f.WindSpeedMin != nil {
		ps = append(ps, WindSpeedAtLeast{Kph: *f.WindSpeedMin})
	}
	if f.IsHoliday != nil {
		ps = append(ps, HolidayIs{Holiday: *f.IsHoliday})
	}
	if f.DayOfWeek != nil {
		ps = append(ps, DayOfWeekIs{Day: *f.DayOfWeek})
	}
	return ps
}

func (f OutageFilter) validate() error {
	v := &ValidationError{}
	if f.DurationMin != nil && *f.DurationMin < 0 {
		v.Add("duration_min", "The duration min must be at least 0.")
	}
	if f.DurationMin != nil && f.DurationMax != nil && *f.DurationMax < *f.DurationMin {
		v.Add("duration_max", "The duration max must be greater than or equal to duration min.")
	}
	if f.DayOfWeek != nil && (*f.DayOfWeek < 0 || *f.DayOfWeek > 6) {
		v.Add("day_of_week", "The day of week must be between 0 and 6.")
	}
	return v.OrNil()
}

type CityIs struct{ City string }

func (p CityIs) Match(l Location) bool { return l.City == p.City }

type LocalityIs struct{ Locality string }

func (p LocalityIs) Match(l Location) bool { return l.Locality == p.Locality }

type CountryIs struct{ Country string }

func (p CountryIs) Match(l Location) bool { return l.Country == p.Country }

// NameOrAddressContains is a case-insensitive substring search.
type NameOrAddressContains struct{ Term string }

func (p NameOrAddressContains) Match(l Location) bool {
	t := strings.ToLower(p.Term)
	return strings.Contains(strings.ToLower(l.Name), t) || strings.Contains(strings.ToLower(l.Address), t)
}

// WithinRadius keeps locations strictly closer than RadiusKm to the center.
type WithinRadius struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

func (p WithinRadius) Match(l Location) bool {
	return DistanceKm(p.Latitude, p.Longitude, l.Latitude, l.Longitude) < p.RadiusKm
}

// Center is a radius search origin.
type Center struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// LocationFilter holds the optional location listing filters.
type LocationFilter struct {
	City     *string
	Locality *string
	Country  *string
	Search   *string
	Near     *Center
}

func (f LocationFilter) Predicates() []LocationPredicate {
	var ps []LocationPredicate
	if f.City != nil {
		ps = append(ps, CityIs{City: *f.City})
	}
	if f.Locality != nil {
		ps = append(ps, LocalityIs{Locality: *f.Locality})
	}
	if f.Country != nil {
		ps = append(ps, CountryIs{Country: *f.Country})
	}
	if f.Search != nil && *f.Search != "" {
		ps = append(ps, NameOrAddressContains{Term: *f.Search})
	}
	if f.Near != nil {
		ps = append(ps, WithinRadius{
			Latitude:  f.Near.Latitude,
			Longitude: f.Near.Longitude,
			RadiusKm:  f.Near.RadiusKm,
		})
	}
	return ps
}

func (f LocationFilter) validate() error {
	if f.Near == nil {
		return nil
	}
	v := &ValidationError{}
	if f.Near.Latitude < -90 || f.Near.Latitude > 90 {
		v.Add("latitude", "The latitude must be between -90 and 90.")
	}
	if f.Near.Longitude < -180 || f.Near.Longitude > 180 {
		v.Add("longitude", "The longitude must be between -180 and 180.")
	}
	if f.Near.RadiusKm <= 0 {
		v.Add("radius", "The radius must be greater than 0.")
	}
	return v.OrNil()
}
