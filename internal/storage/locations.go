package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/outage-ledger/internal/outage"
)

const locationColumns = `id, user_id, name, address, locality, city, country, latitude, longitude, created_at, updated_at`

func scanLocation(s scanner) (outage.Location, error) {
	var l outage.Location
	var locality, city, country *string

	err := s.Scan(
		&l.ID,
		&l.UserID,
		&l.Name,
		&l.Address,
		&locality,
		&city,
		&country,
		&l.Latitude,
		&l.Longitude,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return outage.Location{}, err
	}

	l.Locality = derefString(locality)
	l.City = derefString(city)
	l.Country = derefString(country)
	return l, nil
}

// CreateLocation inserts l and fills in its id and timestamps.
func (r *Repository) CreateLocation(ctx context.Context, l *outage.Location) error {
	const q = `
		INSERT INTO locations (user_id, name, address, locality, city, country, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, q,
		l.UserID,
		l.Name,
		l.Address,
		nullIfEmpty(l.Locality),
		nullIfEmpty(l.City),
		nullIfEmpty(l.Country),
		l.Latitude,
		l.Longitude,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting location %q: %w", l.Name, err)
	}

	return nil
}

// GetLocation retrieves a location by id.
// Returns nil, nil when the location does not exist.
func (r *Repository) GetLocation(ctx context.Context, id int64) (*outage.Location, error) {
	q := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`

	l, err := scanLocation(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying location %d: %w", id, err)
	}

	return &l, nil
}

// UpdateLocation overwrites every mutable column of l and refreshes UpdatedAt.
func (r *Repository) UpdateLocation(ctx context.Context, l *outage.Location) error {
	const q = `
		UPDATE locations
		SET name       = $2,
		    address    = $3,
		    locality   = $4,
		    city       = $5,
		    country    = $6,
		    latitude   = $7,
		    longitude  = $8,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, q,
		l.ID,
		l.Name,
		l.Address,
		nullIfEmpty(l.Locality),
		nullIfEmpty(l.City),
		nullIfEmpty(l.Country),
		l.Latitude,
		l.Longitude,
	).Scan(&l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &outage.NotFoundError{Resource: "location", ID: l.ID}
		}
		return fmt.Errorf("updating location %d: %w", l.ID, err)
	}

	return nil
}

// DeleteLocation removes a location. Deleting a missing row is not an error.
func (r *Repository) DeleteLocation(ctx context.Context, id int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting location %d: %w", id, err)
	}
	return nil
}

// FindLocationByCoordinates returns any location other than excludeID stored
// at exactly lat/lng. Pass 0 to exclude nothing.
// Returns nil, nil when there is no such location.
func (r *Repository) FindLocationByCoordinates(ctx context.Context, lat, lng float64, excludeID int64) (*outage.Location, error) {
	q := `SELECT ` + locationColumns + `
		FROM locations
		WHERE latitude = $1 AND longitude = $2 AND id <> $3
		LIMIT 1`

	l, err := scanLocation(r.q.QueryRow(ctx, q, lat, lng, excludeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying location at %f,%f: %w", lat, lng, err)
	}

	return &l, nil
}

// CountOutagesForLocation returns how many outages reference the location.
func (r *Repository) CountOutagesForLocation(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM outages WHERE location_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting outages for location %d: %w", id, err)
	}
	return n, nil
}

// ListLocations returns one page of the user's locations matching every
// predicate, plus the total number of matches.
func (r *Repository) ListLocations(ctx context.Context, lq outage.LocationQuery) ([]outage.Location, int, error) {
	w := &where{}
	w.add("user_id = " + w.arg(lq.UserID))

	for _, p := range lq.Predicates {
		if err := locationCondition(w, p); err != nil {
			return nil, 0, err
		}
	}

	order, err := orderBy("", lq.Sort, outage.LocationSortFields)
	if err != nil {
		return nil, 0, err
	}

	countSQL := `SELECT COUNT(*) FROM locations` + w.String()
	countArgs := append([]any(nil), w.args...)

	pageSQL := `SELECT ` + locationColumns + ` FROM locations` + w.String() + order +
		fmt.Sprintf(" LIMIT %s OFFSET %s", w.arg(lq.Page.Size), w.arg(lq.Page.Offset()))

	items, total, err := countAndPage(ctx, r.q, countSQL, pageSQL, countArgs, w.args, scanLocation)
	if err != nil {
		return nil, 0, fmt.Errorf("listing locations for user %d: %w", lq.UserID, err)
	}
	return items, total, nil
}

// locationCondition translates one predicate into SQL.
func locationCondition(w *where, p outage.LocationPredicate) error {
	switch p := p.(type) {
	case outage.CityIs:
		w.add("city = " + w.arg(p.City))
	case outage.LocalityIs:
		w.add("locality = " + w.arg(p.Locality))
	case outage.CountryIs:
		w.add("country = " + w.arg(p.Country))
	case outage.NameOrAddressContains:
		term := w.arg(likePattern(p.Term))
		w.add(fmt.Sprintf(`(name ILIKE %[1]s ESCAPE '\' OR address ILIKE %[1]s ESCAPE '\')`, term))
	case outage.WithinRadius:
		lat, lng := w.arg(p.Latitude), w.arg(p.Longitude)
		w.add(fmt.Sprintf(`%s < %s`, distanceSQL(lat, lng), w.arg(p.RadiusKm)))
	default:
		return fmt.Errorf("unsupported location predicate %T", p)
	}
	return nil
}

// distanceSQL is the great-circle distance in km from ($lat, $lng) to the
// row's coordinates. The cosine is clamped so rounding cannot push acos
// out of its domain.
func distanceSQL(lat, lng string) string {
	return fmt.Sprintf(`(6371 * acos(LEAST(1.0, GREATEST(-1.0,
		cos(radians(%[1]s)) * cos(radians(latitude)) * cos(radians(longitude) - radians(%[2]s))
		+ sin(radians(%[1]s)) * sin(radians(latitude))))))`, lat, lng)
}
