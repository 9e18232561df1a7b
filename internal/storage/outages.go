package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

// Outage reads always join the referenced location so responses can embed it.
const outageSelect = `
	SELECT o.id, o.user_id, o.start_time, o.end_time, o.location_id,
	       o.weather_condition, o.temperature, o.wind_speed, o.precipitation,
	       o.humidity, o.pressure, o.cloud, o.day_of_week, o.is_holiday,
	       o.created_at, o.updated_at,
	       l.name, l.address, l.locality, l.city, l.country, l.latitude, l.longitude
	FROM outages o
	LEFT JOIN locations l ON l.id = o.location_id`

func scanOutage(s scanner) (outage.Outage, error) {
	var o outage.Outage
	var (
		name, address, locality, city, country *string
		lat, lng                               *float64
	)

	err := s.Scan(
		&o.ID,
		&o.UserID,
		&o.StartTime,
		&o.EndTime,
		&o.LocationID,
		&o.Weather.Condition,
		&o.Weather.Temperature,
		&o.Weather.WindSpeed,
		&o.Weather.Precipitation,
		&o.Weather.Humidity,
		&o.Weather.Pressure,
		&o.Weather.Cloud,
		&o.DayOfWeek,
		&o.IsHoliday,
		&o.CreatedAt,
		&o.UpdatedAt,
		&name,
		&address,
		&locality,
		&city,
		&country,
		&lat,
		&lng,
	)
	if err != nil {
		return outage.Outage{}, err
	}
	o.StartTime = o.StartTime.UTC()
	o.SetEndTime(o.EndTime)

	if o.LocationID != nil && name != nil {
		o.Location = &outage.LocationSummary{
			ID:       *o.LocationID,
			Name:     *name,
			Address:  derefString(address),
			Locality: derefString(locality),
			City:     derefString(city),
			Country:  derefString(country),
		}
		if lat != nil && lng != nil {
			o.Location.Latitude = *lat
			o.Location.Longitude = *lng
		}
	}
	return o, nil
}

func outageArgs(o *outage.Outage) []any {
	return []any{
		o.StartTime,
		o.EndTime,
		o.LocationID,
		o.Weather.Condition,
		o.Weather.Temperature,
		o.Weather.WindSpeed,
		o.Weather.Precipitation,
		o.Weather.Humidity,
		o.Weather.Pressure,
		o.Weather.Cloud,
		o.DayOfWeek,
		o.IsHoliday,
	}
}

// CreateOutage inserts o and fills in its id and timestamps.
func (r *Repository) CreateOutage(ctx context.Context, o *outage.Outage) error {
	const q = `
		INSERT INTO outages (
			user_id, start_time, end_time, location_id,
			weather_condition, temperature, wind_speed, precipitation,
			humidity, pressure, cloud, day_of_week, is_holiday
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	args := append([]any{o.UserID}, outageArgs(o)...)
	if err := r.q.QueryRow(ctx, q, args...).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return fmt.Errorf("inserting outage: %w", err)
	}

	return nil
}

// GetOutage retrieves an outage by id with its location summary.
// Returns nil, nil when the outage does not exist.
func (r *Repository) GetOutage(ctx context.Context, id int64) (*outage.Outage, error) {
	o, err := scanOutage(r.q.QueryRow(ctx, outageSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying outage %d: %w", id, err)
	}

	return &o, nil
}

// UpdateOutage overwrites every mutable column of o and refreshes UpdatedAt.
func (r *Repository) UpdateOutage(ctx context.Context, o *outage.Outage) error {
	const q = `
		UPDATE outages
		SET start_time        = $2,
		    end_time          = $3,
		    location_id       = $4,
		    weather_condition = $5,
		    temperature       = $6,
		    wind_speed        = $7,
		    precipitation     = $8,
		    humidity          = $9,
		    pressure          = $10,
		    cloud             = $11,
		    day_of_week       = $12,
		    is_holiday        = $13,
		    updated_at        = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	args := append([]any{o.ID}, outageArgs(o)...)
	if err := r.q.QueryRow(ctx, q, args...).Scan(&o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &outage.NotFoundError{Resource: "outage", ID: o.ID}
		}
		return fmt.Errorf("updating outage %d: %w", o.ID, err)
	}

	return nil
}

// EndOutage sets end_time only while the row is still ongoing, so two
// concurrent end requests cannot both succeed.
func (r *Repository) EndOutage(ctx context.Context, o *outage.Outage) error {
	const q = `
		UPDATE outages
		SET end_time = $2, updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, q, o.ID, o.EndTime).Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return outage.ErrAlreadyEnded
		}
		return fmt.Errorf("ending outage %d: %w", o.ID, err)
	}

	return nil
}

// DeleteOutage removes an outage. Deleting a missing row is not an error.
func (r *Repository) DeleteOutage(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM outages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting outage %d: %w", id, err)
	}
	return nil
}

// ListOutagesForUser returns one page of the user's outages matching every
// predicate, plus the total number of matches.
func (r *Repository) ListOutagesForUser(ctx context.Context, oq outage.OutageQuery) ([]outage.Outage, int, error) {
	w := &where{}
	w.add("o.user_id = " + w.arg(oq.UserID))

	for _, p := range oq.Predicates {
		if err := outageCondition(w, p, oq.Now); err != nil {
			return nil, 0, err
		}
	}

	order, err := orderBy("o.", oq.Sort, outage.OutageSortFields)
	if err != nil {
		return nil, 0, err
	}

	countSQL := `SELECT COUNT(*) FROM outages o` + w.String()
	countArgs := append([]any(nil), w.args...)

	pageSQL := outageSelect + w.String() + order +
		fmt.Sprintf(" LIMIT %s OFFSET %s", w.arg(oq.Page.Size), w.arg(oq.Page.Offset()))

	items, total, err := countAndPage(ctx, r.q, countSQL, pageSQL, countArgs, w.args, scanOutage)
	if err != nil {
		return nil, 0, fmt.Errorf("listing outages for user %d: %w", oq.UserID, err)
	}
	return items, total, nil
}

// outageCondition translates one predicate into SQL. now anchors the
// duration of ongoing outages.
func outageCondition(w *where, p outage.OutagePredicate, now time.Time) error {
	switch p := p.(type) {
	case outage.StartedFrom:
		w.add("o.start_time >= " + w.arg(p.From))
	case outage.EndedByOrOngoing:
		w.add(fmt.Sprintf("(o.end_time IS NULL OR o.end_time <= %s)", w.arg(p.By)))
	case outage.DurationBetween:
		d := durationSQL(w.arg(now))
		w.add(fmt.Sprintf("%s >= %s", d, w.arg(p.Min)))
		if p.Max != nil {
			w.add(fmt.Sprintf("%s <= %s", d, w.arg(*p.Max)))
		}
	case outage.StatusIs:
		if p.Status == outage.StatusOngoing {
			w.add("o.end_time IS NULL")
		} else {
			w.add("o.end_time IS NOT NULL")
		}
	case outage.WeatherConditionIs:
		w.add("o.weather_condition = " + w.arg(p.Condition))
	case outage.TemperatureAtLeast:
		w.add("o.temperature >= " + w.arg(p.Celsius))
	case outage.TemperatureAtMost:
		w.add("o.temperature <= " + w.arg(p.Celsius))
	case outage.WindSpeedAtLeast:
		w.add("o.wind_speed >= " + w.arg(p.Kph))
	case outage.HolidayIs:
		w.add("o.is_holiday = " + w.arg(p.Holiday))
	case outage.DayOfWeekIs:
		w.add("o.day_of_week = " + w.arg(p.Day))
	default:
		return fmt.Errorf("unsupported outage predicate %T", p)
	}
	return nil
}

// durationSQL is the outage length in whole minutes, measured to now while
// ongoing and never below zero.
func durationSQL(now string) string {
	return fmt.Sprintf(
		"GREATEST(0, FLOOR(EXTRACT(EPOCH FROM (COALESCE(o.end_time, %s::timestamptz) - o.start_time)) / 60))",
		now,
	)
}
