package outage

import (
	"math"
	"strings"
	"time"
)

// DeriveDayOfWeek maps t to 0 (Sunday) through 6 (Saturday) in UTC, the
// zone outage times are stored and returned in.
func DeriveDayOfWeek(t time.Time) int {
	return int(t.UTC().Weekday())
}

// SetStartTime stores t in UTC and re-derives DayOfWeek from it.
// Every code path that changes StartTime goes through here.
func (o *Outage) SetStartTime(t time.Time) {
	o.StartTime = t.UTC()
	o.DayOfWeek = DeriveDayOfWeek(o.StartTime)
}

// SetEndTime stores t in UTC. Nil leaves the outage ongoing.
func (o *Outage) SetEndTime(t *time.Time) {
	if t == nil {
		o.EndTime = nil
		return
	}
	end := t.UTC()
	o.EndTime = &end
}

// DurationMinutes returns whole minutes from start to end, or to now while
// the outage is ongoing. Never negative.
func DurationMinutes(o Outage, now time.Time) int {
	end := now
	if o.EndTime != nil {
		end = *o.EndTime
	}
	d := end.Sub(o.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// StatusOf reports ongoing iff the outage has no end time.
func StatusOf(o Outage) Status {
	if o.EndTime == nil {
		return StatusOngoing
	}
	return StatusCompleted
}

// FullAddress joins the non-empty address parts with ", ".
func FullAddress(l Location) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Address, l.Locality, l.City, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two points using the
// spherical law of cosines, the same formula the SQL radius filter uses.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	c := math.Cos(rlat1)*math.Cos(rlat2)*math.Cos(dlng) + math.Sin(rlat1)*math.Sin(rlat2)
	// Rounding can push identical points slightly past 1.
	c = math.Max(-1, math.Min(1, c))
	return earthRadiusKm * math.Acos(c)
}

// roundCoordinate truncates to the 7 decimal places the locations table keeps,
// so duplicate checks compare what is actually stored.
func roundCoordinate(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}
