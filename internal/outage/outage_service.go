package outage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/neexbeast/outage-ledger/internal/observability"
	"github.com/neexbeast/outage-ledger/internal/weather"
)

// OutageRepository is the persistence contract for outages.
// GetOutage returns nil, nil when the record does not exist.
type OutageRepository interface {
	CreateOutage(ctx context.Context, o *Outage) error
	GetOutage(ctx context.Context, id int64) (*Outage, error)
	UpdateOutage(ctx context.Context, o *Outage) error
	// EndOutage sets end_time only while it is still null and returns
	// ErrAlreadyEnded otherwise.
	EndOutage(ctx context.Context, o *Outage) error
	DeleteOutage(ctx context.Context, id int64) error
	ListOutagesForUser(ctx context.Context, q OutageQuery) ([]Outage, int, error)
}

// LocationResolver finds a location by id without an ownership check.
type LocationResolver interface {
	Resolve(ctx context.Context, id int64) (*Location, error)
}

// WeatherGateway fetches current conditions for a coordinate pair.
type WeatherGateway interface {
	FetchCurrentWeather(ctx context.Context, lat, lng float64) (weather.Snapshot, error)
}

// OutageService owns the outage lifecycle and the weather enrichment
// workflow: nothing is persisted unless the weather fetch succeeded.
type OutageService struct {
	repo      OutageRepository
	locations LocationResolver
	weather   WeatherGateway
	clock     clockwork.Clock
	metrics   *observability.Metrics
	log       *slog.Logger
}

// NewOutageService constructs an OutageService.
func NewOutageService(
	repo OutageRepository,
	locations LocationResolver,
	gateway WeatherGateway,
	clock clockwork.Clock,
	metrics *observability.Metrics,
	log *slog.Logger,
) *OutageService {
	return &OutageService{
		repo:      repo,
		locations: locations,
		weather:   gateway,
		clock:     clock,
		metrics:   metrics,
		log:       log,
	}
}

// Create records an outage at the referenced location, enriched with the
// location's current weather.
func (s *OutageService) Create(ctx context.Context, userID int64, in OutageInput) (*Outage, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.EndTime != nil && !in.EndTime.After(*in.StartTime) {
		return nil, fieldError("end_time", "The end time must be after the start time.")
	}

	o := &Outage{
		UserID:    userID,
		IsHoliday: *in.IsHoliday,
	}
	o.SetStartTime(*in.StartTime)
	o.SetEndTime(in.EndTime)

	loc, err := s.locationFor(ctx, userID, *in.LocationID)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, o, loc); err != nil {
		return nil, err
	}

	if err := s.repo.CreateOutage(ctx, o); err != nil {
		return nil, fmt.Errorf("creating outage: %w", err)
	}
	s.metrics.OutagesCreated.WithLabelValues(string(StatusOf(*o))).Inc()

	s.log.Info("outage created", "outage_id", o.ID, "user_id", userID, "location_id", loc.ID)
	return o, nil
}

// Get returns the outage if userID owns it.
func (s *OutageService) Get(ctx context.Context, userID, id int64) (*Outage, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(CanViewOutage(userID, *o)); err != nil {
		return nil, err
	}
	return o, nil
}

// Update applies a partial update. Weather is fetched again when the
// location is supplied or the start time moves.
func (s *OutageService) Update(ctx context.Context, userID, id int64, p OutagePatch) (*Outage, error) {
	if err := validateStruct(p); err != nil {
		return nil, err
	}

	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(CanUpdateOutage(userID, *o)); err != nil {
		return nil, err
	}

	refetch := false
	if p.StartTime != nil {
		refetch = !p.StartTime.Equal(o.StartTime)
		o.SetStartTime(*p.StartTime)
	}
	if p.EndTime != nil {
		o.SetEndTime(p.EndTime)
	}
	if o.EndTime != nil && o.EndTime.Before(o.StartTime) {
		return nil, fieldError("end_time", "The end time must be after the start time.")
	}
	if p.IsHoliday != nil {
		o.IsHoliday = *p.IsHoliday
	}

	locationID := o.LocationID
	if p.LocationID != nil {
		locationID = p.LocationID
		refetch = true
	}

	if refetch && locationID != nil {
		loc, err := s.locationFor(ctx, userID, *locationID)
		if err != nil {
			return nil, err
		}
		if err := s.enrich(ctx, o, loc); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateOutage(ctx, o); err != nil {
		return nil, fmt.Errorf("updating outage %d: %w", id, err)
	}
	return o, nil
}

// End transitions an ongoing outage to completed. It is the only operation
// that moves an outage out of the ongoing state without a full update.
func (s *OutageService) End(ctx context.Context, userID, id int64, in EndInput) (*Outage, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(CanUpdateOutage(userID, *o)); err != nil {
		return nil, err
	}

	if o.EndTime != nil {
		return nil, ErrAlreadyEnded
	}
	if in.EndTime.Before(o.StartTime) {
		return nil, ErrInvalidEndTime
	}

	o.SetEndTime(in.EndTime)
	if err := s.repo.EndOutage(ctx, o); err != nil {
		if errors.Is(err, ErrAlreadyEnded) {
			return nil, err
		}
		return nil, fmt.Errorf("ending outage %d: %w", id, err)
	}
	s.metrics.OutagesEnded.Inc()

	return o, nil
}

// Delete removes the outage. Nothing references outages, so it is unconditional.
func (s *OutageService) Delete(ctx context.Context, userID, id int64) error {
	o, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(CanDeleteOutage(userID, *o)); err != nil {
		return err
	}

	if err := s.repo.DeleteOutage(ctx, id); err != nil {
		return fmt.Errorf("deleting outage %d: %w", id, err)
	}
	return nil
}

// List returns one page of the caller's outages matching every present filter.
func (s *OutageService) List(ctx context.Context, userID int64, f OutageFilter, sort Sort, page Page) (PageResult[Outage], error) {
	if err := f.validate(); err != nil {
		return PageResult[Outage]{}, err
	}
	if err := validateSort(sort, OutageSortFields); err != nil {
		return PageResult[Outage]{}, err
	}

	now := s.clock.Now()
	items, total, err := s.repo.ListOutagesForUser(ctx, OutageQuery{
		UserID:     userID,
		Predicates: f.Predicates(),
		Sort:       sort,
		Page:       page,
		Now:        now,
	})
	if err != nil {
		return PageResult[Outage]{}, fmt.Errorf("listing outages: %w", err)
	}

	return PageResult[Outage]{Items: items, Total: total, Page: page, AsOf: now}, nil
}

func (s *OutageService) find(ctx context.Context, id int64) (*Outage, error) {
	o, err := s.repo.GetOutage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading outage %d: %w", id, err)
	}
	if o == nil {
		return nil, &NotFoundError{Resource: "outage", ID: id}
	}
	return o, nil
}

func (s *OutageService) locationFor(ctx context.Context, userID, id int64) (*Location, error) {
	loc, err := s.locations.Resolve(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrLocationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := authorize(CanViewLocation(userID, *loc)); err != nil {
		return nil, err
	}
	return loc, nil
}

// enrich fetches the weather at loc and merges it into o. On failure o's
// weather is left as it was and the caller must not persist.
func (s *OutageService) enrich(ctx context.Context, o *Outage, loc *Location) error {
	snap, err := s.weather.FetchCurrentWeather(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return fmt.Errorf("%w: location %d: %w", ErrWeatherUnavailable, loc.ID, err)
	}

	o.Weather = Weather{
		Condition:     snap.Condition,
		Temperature:   snap.TemperatureC,
		WindSpeed:     snap.WindKph,
		Precipitation: snap.PrecipitationMm,
		Humidity:      snap.Humidity,
		Pressure:      snap.PressureMb,
		Cloud:         snap.CloudPct,
	}
	id := loc.ID
	o.LocationID = &id
	o.Location = loc.Summary()
	return nil
}
