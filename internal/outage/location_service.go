package outage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neexbeast/outage-ledger/internal/observability"
)

// LocationRepository is the persistence contract for locations.
// Lookups return nil, nil when the record does not exist.
type LocationRepository interface {
	CreateLocation(ctx context.Context, l *Location) error
	GetLocation(ctx context.Context, id int64) (*Location, error)
	UpdateLocation(ctx context.Context, l *Location) error
	DeleteLocation(ctx context.Context, id int64) error
	FindLocationByCoordinates(ctx context.Context, lat, lng float64, excludeID int64) (*Location, error)
	CountOutagesForLocation(ctx context.Context, id int64) (int, error)
	ListLocations(ctx context.Context, q LocationQuery) ([]Location, int, error)
}

// LocationCache is a read-through cache of location records.
// Get returns nil, nil on a miss.
type LocationCache interface {
	Get(ctx context.Context, id int64) (*Location, error)
	Set(ctx context.Context, l *Location) error
	Delete(ctx context.Context, id int64) error
}

// LocationService implements the location store rules: validation,
// coordinate uniqueness, the dependent-outage delete guard and ownership.
type LocationService struct {
	repo    LocationRepository
	cache   LocationCache
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewLocationService constructs a LocationService.
func NewLocationService(repo LocationRepository, cache LocationCache, metrics *observability.Metrics, log *slog.Logger) *LocationService {
	return &LocationService{repo: repo, cache: cache, metrics: metrics, log: log}
}

// Create validates and stores a new location owned by userID.
func (s *LocationService) Create(ctx context.Context, userID int64, in LocationInput) (*Location, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Locality = strings.TrimSpace(in.Locality)
	in.City = strings.TrimSpace(in.City)
	in.Country = strings.TrimSpace(in.Country)

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	loc := &Location{
		UserID:    userID,
		Name:      in.Name,
		Address:   in.Address,
		Locality:  in.Locality,
		City:      in.City,
		Country:   in.Country,
		Latitude:  roundCoordinate(*in.Latitude),
		Longitude: roundCoordinate(*in.Longitude),
	}

	if err := s.ensureUniqueCoordinates(ctx, loc.Latitude, loc.Longitude, 0); err != nil {
		return nil, err
	}

	if err := s.repo.CreateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	s.log.Info("location created", "location_id", loc.ID, "user_id", userID)
	return loc, nil
}

// Get returns the location if userID owns it.
func (s *LocationService) Get(ctx context.Context, userID, id int64) (*Location, error) {
	loc, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(CanViewLocation(userID, *loc)); err != nil {
		return nil, err
	}
	return loc, nil
}

// Update applies a partial update. Changing either coordinate re-runs the
// uniqueness check against every other location.
func (s *LocationService) Update(ctx context.Context, userID, id int64, p LocationPatch) (*Location, error) {
	p.Name = trimmed(p.Name)
	p.Address = trimmed(p.Address)
	p.Locality = trimmed(p.Locality)
	p.City = trimmed(p.City)
	p.Country = trimmed(p.Country)

	if err := validateStruct(p); err != nil {
		return nil, err
	}

	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(CanUpdateLocation(userID, *loc)); err != nil {
		return nil, err
	}

	if p.Name != nil {
		loc.Name = *p.Name
	}
	if p.Address != nil {
		loc.Address = *p.Address
	}
	if p.Locality != nil {
		loc.Locality = *p.Locality
	}
	if p.City != nil {
		loc.City = *p.City
	}
	if p.Country != nil {
		loc.Country = *p.Country
	}
	if p.Latitude != nil {
		loc.Latitude = roundCoordinate(*p.Latitude)
	}
	if p.Longitude != nil {
		loc.Longitude = roundCoordinate(*p.Longitude)
	}

	if p.Latitude != nil || p.Longitude != nil {
		if err := s.ensureUniqueCoordinates(ctx, loc.Latitude, loc.Longitude, loc.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("updating location %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	return loc, nil
}

// Delete removes the location unless an outage still references it.
func (s *LocationService) Delete(ctx context.Context, userID, id int64) error {
	loc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(CanDeleteLocation(userID, *loc)); err != nil {
		return err
	}

	n, err := s.repo.CountOutagesForLocation(ctx, id)
	if err != nil {
		return fmt.Errorf("counting outages for location %d: %w", id, err)
	}
	if n > 0 {
		return ErrHasDependents
	}

	if err := s.repo.DeleteLocation(ctx, id); err != nil {
		return fmt.Errorf("deleting location %d: %w", id, err)
	}
	s.invalidate(ctx, id)

	s.log.Info("location deleted", "location_id", id, "user_id", userID)
	return nil
}

// List returns one page of the caller's locations.
func (s *LocationService) List(ctx context.Context, userID int64, f LocationFilter, sort Sort, page Page) (PageResult[Location], error) {
	if err := f.validate(); err != nil {
		return PageResult[Location]{}, err
	}
	if err := validateSort(sort, LocationSortFields); err != nil {
		return PageResult[Location]{}, err
	}

	items, total, err := s.repo.ListLocations(ctx, LocationQuery{
		UserID:     userID,
		Predicates: f.Predicates(),
		Sort:       sort,
		Page:       page,
	})
	if err != nil {
		return PageResult[Location]{}, fmt.Errorf("listing locations: %w", err)
	}

	return PageResult[Location]{Items: items, Total: total, Page: page}, nil
}

// Resolve loads a location by id through the cache. It performs no
// ownership check.
func (s *LocationService) Resolve(ctx context.Context, id int64) (*Location, error) {
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		s.metrics.LocationCache.WithLabelValues("error").Inc()
		s.log.Warn("location cache get failed", "location_id", id, "err", err)
	}
	if cached != nil {
		s.metrics.LocationCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	s.metrics.LocationCache.WithLabelValues("miss").Inc()

	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, loc); err != nil {
		s.log.Warn("location cache set failed", "location_id", id, "err", err)
	}
	return loc, nil
}

func (s *LocationService) load(ctx context.Context, id int64) (*Location, error) {
	loc, err := s.repo.GetLocation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading location %d: %w", id, err)
	}
	if loc == nil {
		return nil, &NotFoundError{Resource: "location", ID: id}
	}
	return loc, nil
}

func (s *LocationService) ensureUniqueCoordinates(ctx context.Context, lat, lng float64, excludeID int64) error {
	existing, err := s.repo.FindLocationByCoordinates(ctx, lat, lng, excludeID)
	if err != nil {
		return fmt.Errorf("checking coordinates %f,%f: %w", lat, lng, err)
	}
	if existing != nil {
		return ErrDuplicateLocation
	}
	return nil
}

func (s *LocationService) invalidate(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("location cache delete failed", "location_id", id, "err", err)
	}
}
