package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// timeLayouts are accepted for date filters, most specific first.
var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// queryParser reads optional query parameters, collecting every malformed
// value as a field error instead of stopping at the first.
type queryParser struct {
	q    url.Values
	errs *outage.ValidationError
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q, errs: &outage.ValidationError{}}
}

func (p *queryParser) has(key string) bool {
	return strings.TrimSpace(p.q.Get(key)) != ""
}

func (p *queryParser) str(key string) *string {
	if !p.has(key) {
		return nil
	}
	v := strings.TrimSpace(p.q.Get(key))
	return &v
}

func (p *queryParser) integer(key string) *int {
	s := p.str(key)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		p.errs.Add(key, fmt.Sprintf("The %s must be an integer.", label(key)))
		return nil
	}
	return &n
}

func (p *queryParser) number(key string) *float64 {
	s := p.str(key)
	if s == nil {
		return nil
	}
	f, err := strconv.ParseFloat(*s, 64)
	if err != nil {
		p.errs.Add(key, fmt.Sprintf("The %s must be a number.", label(key)))
		return nil
	}
	return &f
}

func (p *queryParser) boolean(key string) *bool {
	s := p.str(key)
	if s == nil {
		return nil
	}
	b, err := strconv.ParseBool(*s)
	if err != nil {
		p.errs.Add(key, fmt.Sprintf("The %s field must be true or false.", label(key)))
		return nil
	}
	return &b
}

func (p *queryParser) date(key string) *time.Time {
	s := p.str(key)
	if s == nil {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	p.errs.Add(key, fmt.Sprintf("The %s is not a valid date.", label(key)))
	return nil
}

// sort reads sort_by and order, falling back to def.
func (p *queryParser) sort(def outage.Sort) outage.Sort {
	s := def
	if field := p.str("sort_by"); field != nil {
		s.Field = *field
	}
	if order := p.str("order"); order != nil {
		switch strings.ToLower(*order) {
		case "asc":
			s.Descending = false
		case "desc":
			s.Descending = true
		default:
			p.errs.Add("order", "The order must be asc or desc.")
		}
	}
	return s
}

func (p *queryParser) page() outage.Page {
	number, size := 1, outage.DefaultPerPage
	if n := p.integer("page"); n != nil {
		number = *n
	}
	if n := p.integer("per_page"); n != nil {
		size = *n
	}
	return outage.NewPage(number, size)
}

func (p *queryParser) err() error { return p.errs.OrNil() }

func label(key string) string { return strings.ReplaceAll(key, "_", " ") }

func parseLocationQuery(q url.Values) (outage.LocationFilter, outage.Sort, outage.Page, error) {
	p := newQueryParser(q)

	f := outage.LocationFilter{
		City:     p.str("city"),
		Locality: p.str("locality"),
		Country:  p.str("country"),
		Search:   p.str("search"),
	}
	if p.has("latitude") && p.has("longitude") && p.has("radius") {
		lat, lng, radius := p.number("latitude"), p.number("longitude"), p.number("radius")
		if lat != nil && lng != nil && radius != nil {
			f.Near = &outage.Center{Latitude: *lat, Longitude: *lng, RadiusKm: *radius}
		}
	}

	s := p.sort(outage.DefaultLocationSort)
	pg := p.page()
	return f, s, pg, p.err()
}

func parseOutageQuery(q url.Values) (outage.OutageFilter, outage.Sort, outage.Page, error) {
	p := newQueryParser(q)

	f := outage.OutageFilter{
		StartDate:        p.date("start_date"),
		EndDate:          p.date("end_date"),
		DurationMin:      p.integer("duration_min"),
		DurationMax:      p.integer("duration_max"),
		WeatherCondition: p.str("weather_condition"),
		TemperatureMin:   p.number("temperature_min"),
		TemperatureMax:   p.number("temperature_max"),
		WindSpeedMin:     p.number("wind_speed_min"),
		IsHoliday:        p.boolean("is_holiday"),
		DayOfWeek:        p.integer("day_of_week"),
	}
	if s := p.str("status"); s != nil {
		status, ok := outage.ParseStatus(*s)
		if !ok {
			p.errs.Add("status", "The status must be ongoing or completed.")
		} else {
			f.Status = &status
		}
	}

	s := p.sort(outage.DefaultOutageSort)
	pg := p.page()
	return f, s, pg, p.err()
}
