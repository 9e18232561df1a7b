package outage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/outage-ledger/internal/observability"
	"github.com/neexbeast/outage-ledger/internal/outage"
	"github.com/neexbeast/outage-ledger/internal/weather"
)

// ---- in-memory fakes ----

// memRepo stores copies so nothing a service does to a returned record
// reaches storage without an explicit write.
type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	locations map[int64]outage.Location
	outages   map[int64]outage.Outage

	getLocationCalls int
	endErr           error
}

func newMemRepo() *memRepo {
	return &memRepo{locations: map[int64]outage.Location{}, outages: map[int64]outage.Outage{}}
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) CreateLocation(_ context.Context, l *outage.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.id()
	l.CreatedAt, l.UpdatedAt = jan1, jan1
	m.locations[l.ID] = *l
	return nil
}

func (m *memRepo) GetLocation(_ context.Context, id int64) (*outage.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLocationCalls++
	l, ok := m.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memRepo) UpdateLocation(_ context.Context, l *outage.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[l.ID]; !ok {
		return &outage.NotFoundError{Resource: "location", ID: l.ID}
	}
	m.locations[l.ID] = *l
	return nil
}

func (m *memRepo) DeleteLocation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, id)
	return nil
}

func (m *memRepo) FindLocationByCoordinates(_ context.Context, lat, lng float64, excludeID int64) (*outage.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.locations {
		if l.Latitude == lat && l.Longitude == lng && l.ID != excludeID {
			return &l, nil
		}
	}
	return nil, nil
}

func (m *memRepo) CountOutagesForLocation(_ context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.outages {
		if o.LocationID != nil && *o.LocationID == id {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) ListLocations(_ context.Context, q outage.LocationQuery) ([]outage.Location, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []outage.Location
	for _, l := range m.locations {
		if l.UserID != q.UserID {
			continue
		}
		keep := true
		for _, p := range q.Predicates {
			keep = keep && p.Match(l)
		}
		if keep {
			all = append(all, l)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, q.Page), len(all), nil
}

func (m *memRepo) CreateOutage(_ context.Context, o *outage.Outage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.id()
	m.outages[o.ID] = *o
	return nil
}

func (m *memRepo) GetOutage(_ context.Context, id int64) (*outage.Outage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outages[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memRepo) UpdateOutage(_ context.Context, o *outage.Outage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.outages[o.ID]; !ok {
		return &outage.NotFoundError{Resource: "outage", ID: o.ID}
	}
	m.outages[o.ID] = *o
	return nil
}

func (m *memRepo) EndOutage(_ context.Context, o *outage.Outage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.endErr != nil {
		return m.endErr
	}
	stored := m.outages[o.ID]
	if stored.EndTime != nil {
		return outage.ErrAlreadyEnded
	}
	stored.EndTime = o.EndTime
	m.outages[o.ID] = stored
	return nil
}

func (m *memRepo) DeleteOutage(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.outages, id)
	return nil
}

func (m *memRepo) ListOutagesForUser(_ context.Context, q outage.OutageQuery) ([]outage.Outage, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []outage.Outage
	for _, o := range m.outages {
		if o.UserID != q.UserID {
			continue
		}
		keep := true
		for _, p := range q.Predicates {
			keep = keep && p.Match(o, q.Now)
		}
		if keep {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, q.Page), len(all), nil
}

func paginate[T any](items []T, p outage.Page) []T {
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type memCache struct {
	entries map[int64]outage.Location
	getErr  error
}

func (c *memCache) Get(_ context.Context, id int64) (*outage.Location, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	l, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (c *memCache) Set(_ context.Context, l *outage.Location) error {
	c.entries[l.ID] = *l
	return nil
}

func (c *memCache) Delete(_ context.Context, id int64) error {
	delete(c.entries, id)
	return nil
}

type mockWeather struct {
	fetchFn func(ctx context.Context, lat, lng float64) (weather.Snapshot, error)
	calls   int
}

func (m *mockWeather) FetchCurrentWeather(ctx context.Context, lat, lng float64) (weather.Snapshot, error) {
	m.calls++
	return m.fetchFn(ctx, lat, lng)
}

// ---- helpers ----

const (
	alice = int64(1)
	bob   = int64(2)
)

var rainy = weather.Snapshot{
	Condition:       "Light rain",
	TemperatureC:    8.5,
	WindKph:         22,
	PrecipitationMm: 1.2,
	Humidity:        ptr(81),
	PressureMb:      ptr(1012.0),
	CloudPct:        ptr(75),
}

type env struct {
	repo      *memRepo
	cache     *memCache
	weather   *mockWeather
	clock     *clockwork.FakeClock
	locations *outage.LocationService
	outages   *outage.OutageService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	e := &env{
		repo:  newMemRepo(),
		cache: &memCache{entries: map[int64]outage.Location{}},
		weather: &mockWeather{fetchFn: func(_ context.Context, _, _ float64) (weather.Snapshot, error) {
			return rainy, nil
		}},
		clock: clockwork.NewFakeClockAt(jan1.Add(3 * time.Hour)),
	}
	e.locations = outage.NewLocationService(e.repo, e.cache, metrics, log)
	e.outages = outage.NewOutageService(e.repo, e.locations, e.weather, e.clock, metrics, log)
	return e
}

func (e *env) location(t *testing.T, userID int64, lat, lng float64) *outage.Location {
	t.Helper()
	l, err := e.locations.Create(context.Background(), userID, outage.LocationInput{
		Name: "Substation", Address: "1 Grid Rd", City: "Springfield", Latitude: &lat, Longitude: &lng,
	})
	require.NoError(t, err)
	return l
}

func (e *env) ongoing(t *testing.T, userID, locationID int64, start time.Time) *outage.Outage {
	t.Helper()
	o, err := e.outages.Create(context.Background(), userID, outage.OutageInput{
		StartTime: &start, LocationID: &locationID, IsHoliday: ptr(false),
	})
	require.NoError(t, err)
	return o
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var v *outage.ValidationError
	require.ErrorAs(t, err, &v)
	return v.Fields
}

// ---- LocationService ----

func TestLocationService_Create(t *testing.T) {
	e := newEnv(t)
	lat, lng := 44.8125, 20.4612

	l, err := e.locations.Create(context.Background(), alice, outage.LocationInput{
		Name: "  Depot ", Address: "Knez Mihailova 1", Country: "RS", Latitude: &lat, Longitude: &lng,
	})
	require.NoError(t, err)

	assert.NotZero(t, l.ID)
	assert.Equal(t, alice, l.UserID)
	assert.Equal(t, "Depot", l.Name)
	assert.Equal(t, e.repo.locations[l.ID], *l)
}

func TestLocationService_Create_DuplicateCoordinates(t *testing.T) {
	e := newEnv(t)
	e.location(t, alice, 40.0, -74.0)

	lat, lng := 40.0, -74.0
	_, err := e.locations.Create(context.Background(), bob, outage.LocationInput{
		Name: "Other", Address: "Elsewhere", Latitude: &lat, Longitude: &lng,
	})
	assert.ErrorIs(t, err, outage.ErrDuplicateLocation)

	// Beyond the stored precision the pair is the same point.
	lat = 40.00000001
	_, err = e.locations.Create(context.Background(), alice, outage.LocationInput{
		Name: "Other", Address: "Elsewhere", Latitude: &lat, Longitude: &lng,
	})
	assert.ErrorIs(t, err, outage.ErrDuplicateLocation)
	assert.Len(t, e.repo.locations, 1)
}

func TestLocationService_Create_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.locations.Create(context.Background(), alice, outage.LocationInput{Name: "   "})
	fields := fieldsOf(t, err)
	assert.Equal(t, []string{"The name field is required."}, fields["name"])
	assert.Contains(t, fields, "address")
	assert.Contains(t, fields, "latitude")
	assert.Contains(t, fields, "longitude")

	lat, lng := 91.0, -181.0
	_, err = e.locations.Create(context.Background(), alice, outage.LocationInput{
		Name: "x", Address: "y", Latitude: &lat, Longitude: &lng,
	})
	fields = fieldsOf(t, err)
	assert.Equal(t, []string{"The latitude must not be greater than 90."}, fields["latitude"])
	assert.Equal(t, []string{"The longitude must be at least -180."}, fields["longitude"])
}

func TestLocationService_Get(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 1, 1)

	got, err := e.locations.Get(context.Background(), alice, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = e.locations.Get(context.Background(), bob, l.ID)
	assert.ErrorIs(t, err, outage.ErrForbidden)

	_, err = e.locations.Get(context.Background(), alice, 999)
	var nf *outage.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "location", nf.Resource)
}

func TestLocationService_Update(t *testing.T) {
	e := newEnv(t)
	a := e.location(t, alice, 40, -74)
	b := e.location(t, alice, 41, -74)

	// Warm the cache so the update has something to invalidate.
	_, err := e.locations.Resolve(context.Background(), b.ID)
	require.NoError(t, err)
	require.Contains(t, e.cache.entries, b.ID)

	updated, err := e.locations.Update(context.Background(), alice, b.ID, outage.LocationPatch{City: ptr(" Shelbyville ")})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.City)
	assert.Equal(t, "Substation", updated.Name, "omitted fields keep their values")
	assert.NotContains(t, e.cache.entries, b.ID)

	// Re-sending its own coordinates is not a collision.
	_, err = e.locations.Update(context.Background(), alice, b.ID, outage.LocationPatch{Latitude: ptr(41.0)})
	require.NoError(t, err)

	_, err = e.locations.Update(context.Background(), alice, b.ID, outage.LocationPatch{Latitude: ptr(40.0)})
	assert.ErrorIs(t, err, outage.ErrDuplicateLocation)
	assert.Equal(t, 41.0, e.repo.locations[b.ID].Latitude)

	_, err = e.locations.Update(context.Background(), bob, a.ID, outage.LocationPatch{Name: ptr("mine now")})
	assert.ErrorIs(t, err, outage.ErrForbidden)
	assert.Equal(t, "Substation", e.repo.locations[a.ID].Name)

	_, err = e.locations.Update(context.Background(), alice, a.ID, outage.LocationPatch{Name: ptr("")})
	assert.Contains(t, fieldsOf(t, err), "name")
}

func TestLocationService_Delete_HasDependents(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)

	err := e.locations.Delete(context.Background(), alice, l.ID)
	assert.ErrorIs(t, err, outage.ErrHasDependents)
	assert.Contains(t, e.repo.locations, l.ID)

	require.NoError(t, e.outages.Delete(context.Background(), alice, o.ID))
	require.NoError(t, e.locations.Delete(context.Background(), alice, l.ID))
	assert.NotContains(t, e.repo.locations, l.ID)
	assert.NotContains(t, e.cache.entries, l.ID)
}

func TestLocationService_Delete_Forbidden(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)

	err := e.locations.Delete(context.Background(), bob, l.ID)
	assert.ErrorIs(t, err, outage.ErrForbidden)
	assert.Contains(t, e.repo.locations, l.ID)
}

func TestLocationService_List(t *testing.T) {
	e := newEnv(t)
	e.location(t, alice, 1, 1)
	e.location(t, alice, 2, 2)
	e.location(t, bob, 3, 3)

	res, err := e.locations.List(context.Background(), alice, outage.LocationFilter{City: ptr("Springfield")},
		outage.DefaultLocationSort, outage.NewPage(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.LastPage())

	res, err = e.locations.List(context.Background(), alice,
		outage.LocationFilter{Near: &outage.Center{Latitude: 1, Longitude: 1, RadiusKm: 10}},
		outage.DefaultLocationSort, outage.NewPage(1, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestLocationService_List_Invalid(t *testing.T) {
	e := newEnv(t)

	_, err := e.locations.List(context.Background(), alice,
		outage.LocationFilter{Near: &outage.Center{Latitude: 95, Longitude: 0, RadiusKm: 0}},
		outage.DefaultLocationSort, outage.NewPage(1, 15))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "latitude")
	assert.Contains(t, fields, "radius")

	_, err = e.locations.List(context.Background(), alice, outage.LocationFilter{},
		outage.Sort{Field: "user_id"}, outage.NewPage(1, 15))
	assert.Contains(t, fieldsOf(t, err), "sort_by")
}

func TestLocationService_Resolve_ReadsThroughCache(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 1, 1)

	for i := 0; i < 3; i++ {
		got, err := e.locations.Resolve(context.Background(), l.ID)
		require.NoError(t, err)
		assert.Equal(t, l.ID, got.ID)
	}
	assert.Equal(t, 1, e.repo.getLocationCalls)
}

func TestLocationService_Resolve_CacheErrorFallsBack(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 1, 1)
	e.cache.getErr = errors.New("connection refused")

	got, err := e.locations.Resolve(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

// ---- OutageService ----

func TestOutageService_Create_Enriches(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)

	var gotLat, gotLng float64
	e.weather.fetchFn = func(_ context.Context, lat, lng float64) (weather.Snapshot, error) {
		gotLat, gotLng = lat, lng
		return rainy, nil
	}

	start := jan1
	o, err := e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, LocationID: &l.ID, IsHoliday: ptr(true),
	})
	require.NoError(t, err)

	assert.Equal(t, 40.0, gotLat)
	assert.Equal(t, -74.0, gotLng)
	assert.Equal(t, outage.Weather{
		Condition: "Light rain", Temperature: 8.5, WindSpeed: 22, Precipitation: 1.2,
		Humidity: ptr(81), Pressure: ptr(1012.0), Cloud: ptr(75),
	}, o.Weather)
	assert.Equal(t, 1, o.DayOfWeek)
	assert.True(t, o.IsHoliday)
	assert.Equal(t, outage.StatusOngoing, outage.StatusOf(*o))
	require.NotNil(t, o.Location)
	assert.Equal(t, "Substation", o.Location.Name)
	assert.Equal(t, *o, e.repo.outages[o.ID])
}

func TestOutageService_Create_WeatherFailurePersistsNothing(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	e.weather.fetchFn = func(_ context.Context, lat, lng float64) (weather.Snapshot, error) {
		return weather.Snapshot{}, &weather.UnavailableError{
			Latitude: lat, Longitude: lng, Reason: weather.ReasonHTTPStatus, Status: 400,
			Err: errors.New("No matching location found."),
		}
	}

	start := jan1
	_, err := e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, LocationID: &l.ID, IsHoliday: ptr(false),
	})
	assert.ErrorIs(t, err, outage.ErrWeatherUnavailable)
	assert.ErrorIs(t, err, weather.ErrUnavailable)
	assert.Empty(t, e.repo.outages)
}

func TestOutageService_Create_LocationChecks(t *testing.T) {
	e := newEnv(t)
	bobs := e.location(t, bob, 40, -74)
	start := jan1

	_, err := e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, LocationID: ptr(int64(999)), IsHoliday: ptr(false),
	})
	assert.ErrorIs(t, err, outage.ErrLocationNotFound)

	_, err = e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, LocationID: &bobs.ID, IsHoliday: ptr(false),
	})
	assert.ErrorIs(t, err, outage.ErrForbidden)

	assert.Zero(t, e.weather.calls)
	assert.Empty(t, e.repo.outages)
}

func TestOutageService_Create_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.outages.Create(context.Background(), alice, outage.OutageInput{})
	fields := fieldsOf(t, err)
	assert.Equal(t, []string{"A location is required to fetch weather data."}, fields["location_id"])
	assert.Equal(t, []string{"Please specify when the outage started."}, fields["start_time"])
	assert.Equal(t, []string{"The is holiday field is required."}, fields["is_holiday"])

	start, end := jan1, jan1
	_, err = e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, EndTime: &end, LocationID: ptr(int64(1)), IsHoliday: ptr(false),
	})
	assert.Contains(t, fieldsOf(t, err), "end_time")
	assert.Zero(t, e.weather.calls)
}

func TestOutageService_End(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)

	before := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)
	_, err := e.outages.End(context.Background(), alice, o.ID, outage.EndInput{EndTime: &before})
	assert.ErrorIs(t, err, outage.ErrInvalidEndTime)
	assert.Nil(t, e.repo.outages[o.ID].EndTime)

	after := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	ended, err := e.outages.End(context.Background(), alice, o.ID, outage.EndInput{EndTime: &after})
	require.NoError(t, err)
	assert.Equal(t, outage.StatusCompleted, outage.StatusOf(*ended))
	assert.Equal(t, 60, outage.DurationMinutes(*ended, e.clock.Now()))
	assert.Equal(t, after, *e.repo.outages[o.ID].EndTime)

	_, err = e.outages.End(context.Background(), alice, o.ID, outage.EndInput{EndTime: &after})
	assert.ErrorIs(t, err, outage.ErrAlreadyEnded)
}

func TestOutageService_OffsetTimesStoredAsUTC(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)

	eastern := time.FixedZone("EST", -5*3600)
	start := time.Date(2024, 1, 1, 23, 30, 0, 0, eastern)
	o, err := e.outages.Create(context.Background(), alice, outage.OutageInput{
		StartTime: &start, LocationID: &l.ID, IsHoliday: ptr(false),
	})
	require.NoError(t, err)

	stored := e.repo.outages[o.ID]
	assert.Equal(t, time.UTC, stored.StartTime.Location())
	assert.Equal(t, 2, stored.DayOfWeek)
	assert.Equal(t, int(stored.StartTime.Weekday()), stored.DayOfWeek)

	end := time.Date(2024, 1, 2, 0, 15, 0, 0, eastern)
	ended, err := e.outages.End(context.Background(), alice, o.ID, outage.EndInput{EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 5, 15, 0, 0, time.UTC), *ended.EndTime)
	assert.Equal(t, 45, outage.DurationMinutes(*ended, e.clock.Now()))
}

func TestOutageService_List_ReportsEvaluationInstant(t *testing.T) {
	e := newEnv(t)

	result, err := e.outages.List(context.Background(), alice, outage.OutageFilter{}, outage.DefaultOutageSort, outage.NewPage(1, 15))
	require.NoError(t, err)
	assert.Equal(t, e.clock.Now(), result.AsOf)
}

func TestOutageService_End_LostRace(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)
	e.repo.endErr = outage.ErrAlreadyEnded

	end := jan1.Add(time.Hour)
	_, err := e.outages.End(context.Background(), alice, o.ID, outage.EndInput{EndTime: &end})
	assert.ErrorIs(t, err, outage.ErrAlreadyEnded)
}

func TestOutageService_End_Validation(t *testing.T) {
	e := newEnv(t)

	_, err := e.outages.End(context.Background(), alice, 1, outage.EndInput{})
	assert.Equal(t, []string{"Please specify when the outage ended."}, fieldsOf(t, err)["end_time"])
}

func TestOutageService_Update_RederivesDayOfWeek(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)
	require.Equal(t, 1, o.DayOfWeek)
	require.Equal(t, 1, e.weather.calls)

	saturday := time.Date(2024, 1, 6, 8, 0, 0, 0, time.UTC)
	updated, err := e.outages.Update(context.Background(), alice, o.ID, outage.OutagePatch{StartTime: &saturday})
	require.NoError(t, err)

	assert.Equal(t, 6, updated.DayOfWeek)
	assert.Equal(t, 6, e.repo.outages[o.ID].DayOfWeek)
	assert.Equal(t, 2, e.weather.calls, "moving the start refreshes the weather")
}

func TestOutageService_Update_HolidayOnlySkipsWeather(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)

	updated, err := e.outages.Update(context.Background(), alice, o.ID, outage.OutagePatch{IsHoliday: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsHoliday)
	assert.Equal(t, 1, e.weather.calls)
}

func TestOutageService_Update_ChangesLocation(t *testing.T) {
	e := newEnv(t)
	first := e.location(t, alice, 40, -74)
	second := e.location(t, alice, 45, 19)
	o := e.ongoing(t, alice, first.ID, jan1)

	var gotLat float64
	e.weather.fetchFn = func(_ context.Context, lat, _ float64) (weather.Snapshot, error) {
		gotLat = lat
		return weather.Snapshot{Condition: "Sunny", TemperatureC: 25}, nil
	}

	updated, err := e.outages.Update(context.Background(), alice, o.ID, outage.OutagePatch{LocationID: &second.ID})
	require.NoError(t, err)
	assert.Equal(t, 45.0, gotLat)
	assert.Equal(t, second.ID, *updated.LocationID)
	assert.Equal(t, "Sunny", e.repo.outages[o.ID].Weather.Condition)
}

func TestOutageService_Update_WeatherFailureKeepsRecord(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)
	e.weather.fetchFn = func(_ context.Context, _, _ float64) (weather.Snapshot, error) {
		return weather.Snapshot{}, errors.New("timeout")
	}

	moved := jan1.Add(time.Hour)
	_, err := e.outages.Update(context.Background(), alice, o.ID, outage.OutagePatch{StartTime: &moved})
	assert.ErrorIs(t, err, outage.ErrWeatherUnavailable)
	assert.Equal(t, jan1, e.repo.outages[o.ID].StartTime)
}

func TestOutageService_Update_EndBeforeStart(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)

	end := jan1.Add(-time.Minute)
	_, err := e.outages.Update(context.Background(), alice, o.ID, outage.OutagePatch{EndTime: &end})
	assert.Contains(t, fieldsOf(t, err), "end_time")
	assert.Nil(t, e.repo.outages[o.ID].EndTime)
}

func TestOutageService_OtherUserIsForbidden(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)
	snapshot := e.repo.outages[o.ID]
	ctx := context.Background()

	_, err := e.outages.Get(ctx, bob, o.ID)
	assert.ErrorIs(t, err, outage.ErrForbidden)

	_, err = e.outages.Update(ctx, bob, o.ID, outage.OutagePatch{IsHoliday: ptr(true)})
	assert.ErrorIs(t, err, outage.ErrForbidden)

	end := jan1.Add(time.Hour)
	_, err = e.outages.End(ctx, bob, o.ID, outage.EndInput{EndTime: &end})
	assert.ErrorIs(t, err, outage.ErrForbidden)

	err = e.outages.Delete(ctx, bob, o.ID)
	assert.ErrorIs(t, err, outage.ErrForbidden)

	assert.Equal(t, snapshot, e.repo.outages[o.ID])
}

func TestOutageService_Delete(t *testing.T) {
	e := newEnv(t)
	l := e.location(t, alice, 40, -74)
	o := e.ongoing(t, alice, l.ID, jan1)

	require.NoError(t, e.outages.Delete(context.Background(), alice, o.ID))

	_, err := e.outages.Get(context.Background(), alice, o.ID)
	assert.ErrorIs(t, err, outage.ErrNotFound)
}

func TestOutageService_List_DurationRange(t *testing.T) {
	e := newEnv(t)
	now := e.clock.Now()
	ctx := context.Background()

	seed := func(userID int64, start time.Time, end *time.Time) int64 {
		o := &outage.Outage{UserID: userID, EndTime: end}
		o.SetStartTime(start)
		require.NoError(t, e.repo.CreateOutage(ctx, o))
		return o.ID
	}
	ongoing30 := seed(alice, now.Add(-30*time.Minute), nil)
	ongoing90 := seed(alice, now.Add(-90*time.Minute), nil)
	done60 := seed(alice, jan1, ptr(jan1.Add(60*time.Minute)))
	done120 := seed(alice, jan1, ptr(jan1.Add(120*time.Minute)))
	done121 := seed(alice, jan1, ptr(jan1.Add(121*time.Minute)))
	seed(bob, now.Add(-90*time.Minute), nil)

	res, err := e.outages.List(ctx, alice, outage.OutageFilter{DurationMin: ptr(60), DurationMax: ptr(120)},
		outage.DefaultOutageSort, outage.NewPage(1, 15))
	require.NoError(t, err)

	var ids []int64
	for _, o := range res.Items {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []int64{ongoing90, done60, done120}, ids)
	assert.NotContains(t, ids, ongoing30)
	assert.NotContains(t, ids, done121)
	assert.Equal(t, 3, res.Total)

	// Time passing moves ongoing outages into range.
	e.clock.Advance(30 * time.Minute)
	res, err = e.outages.List(ctx, alice, outage.OutageFilter{DurationMin: ptr(60), DurationMax: ptr(120)},
		outage.DefaultOutageSort, outage.NewPage(1, 15))
	require.NoError(t, err)
	ids = ids[:0]
	for _, o := range res.Items {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []int64{ongoing30, ongoing90, done60, done120}, ids)
}

func TestOutageService_List_Invalid(t *testing.T) {
	e := newEnv(t)

	_, err := e.outages.List(context.Background(), alice,
		outage.OutageFilter{DurationMin: ptr(90), DurationMax: ptr(60), DayOfWeek: ptr(7)},
		outage.DefaultOutageSort, outage.NewPage(1, 15))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "duration_max")
	assert.Contains(t, fields, "day_of_week")

	_, err = e.outages.List(context.Background(), alice, outage.OutageFilter{},
		outage.Sort{Field: "duration"}, outage.NewPage(1, 15))
	assert.Contains(t, fieldsOf(t, err), "sort_by")
}
