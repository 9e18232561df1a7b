package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/neexbeast/outage-ledger/internal/observability"
)

const (
	// DefaultBaseURL is the WeatherAPI.com v1 endpoint root.
	DefaultBaseURL = "https://api.weatherapi.com/v1"
	DefaultTimeout = 5 * time.Second

	maxErrorBody = 4 << 10
)

// Client fetches current conditions from WeatherAPI.com. Each call makes a
// single attempt; a circuit breaker fails fast while the provider is down.
type Client struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	log     *slog.Logger
}

// NewClient constructs a Client. An empty baseURL selects DefaultBaseURL and
// a non-positive timeout selects DefaultTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "weatherapi",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		metrics: metrics,
		log:     log,
	}
}

type currentResponse struct {
	Current *struct {
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		TempC      *float64 `json:"temp_c"`
		WindKph    *float64 `json:"wind_kph"`
		PrecipMm   *float64 `json:"precip_mm"`
		Humidity   *float64 `json:"humidity"`
		PressureMb *float64 `json:"pressure_mb"`
		Cloud      *float64 `json:"cloud"`
	} `json:"current"`
}

// FetchCurrentWeather returns the current conditions at lat,lng. Every
// failure is returned as *UnavailableError.
func (c *Client) FetchCurrentWeather(ctx context.Context, lat, lng float64) (Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, lat, lng)
	})
	c.metrics.WeatherDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			// Only the breaker itself produces errors of other types.
			unavailable = &UnavailableError{Latitude: lat, Longitude: lng, Reason: ReasonCircuitOpen, Err: err}
			c.log.Error("weather API circuit open", "coordinates", unavailable.Coordinates(), "err", err)
		}
		c.metrics.WeatherRequests.WithLabelValues(unavailable.Reason).Inc()
		return Snapshot{}, unavailable
	}

	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	snap, ok := result.(Snapshot)
	if !ok {
		return Snapshot{}, &UnavailableError{
			Latitude: lat, Longitude: lng, Reason: ReasonMalformed,
			Err: fmt.Errorf("unexpected result type %T", result),
		}
	}
	return snap, nil
}

func (c *Client) fetch(ctx context.Context, lat, lng float64) (Snapshot, error) {
	coords := formatCoordinates(lat, lng)
	fail := func(reason string, status int, err error) (Snapshot, error) {
		return Snapshot{}, &UnavailableError{Latitude: lat, Longitude: lng, Reason: reason, Status: status, Err: err}
	}

	params := url.Values{
		"key": {c.apiKey},
		"q":   {coords},
		"aqi": {"no"},
	}
	endpoint := c.baseURL + "/current.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(ReasonTransport, 0, fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("weather API connection error", "message", err.Error(), "coordinates", coords)
		return fail(ReasonTransport, 0, fmt.Errorf("GET current.json: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Error("weather API error", "status", resp.StatusCode, "body", string(body), "coordinates", coords)
		return fail(ReasonHTTPStatus, resp.StatusCode, fmt.Errorf("current.json returned status %d", resp.StatusCode))
	}

	var raw currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.log.Error("weather API malformed payload", "status", resp.StatusCode, "err", err, "coordinates", coords)
		return fail(ReasonMalformed, resp.StatusCode, fmt.Errorf("decoding current.json: %w", err))
	}

	snap, err := normalize(raw)
	if err != nil {
		c.log.Error("weather API malformed payload", "status", resp.StatusCode, "err", err, "coordinates", coords)
		return fail(ReasonMalformed, resp.StatusCode, err)
	}
	return snap, nil
}

// normalize maps WeatherAPI field names onto Snapshot. Condition, temperature,
// wind and precipitation are required; the rest are optional.
func normalize(raw currentResponse) (Snapshot, error) {
	cur := raw.Current
	switch {
	case cur == nil:
		return Snapshot{}, errors.New("payload has no current block")
	case cur.Condition.Text == "":
		return Snapshot{}, errors.New("payload has no current.condition.text")
	case cur.TempC == nil:
		return Snapshot{}, errors.New("payload has no current.temp_c")
	case cur.WindKph == nil:
		return Snapshot{}, errors.New("payload has no current.wind_kph")
	case cur.PrecipMm == nil:
		return Snapshot{}, errors.New("payload has no current.precip_mm")
	}

	return Snapshot{
		Condition:       cur.Condition.Text,
		TemperatureC:    *cur.TempC,
		WindKph:         *cur.WindKph,
		PrecipitationMm: *cur.PrecipMm,
		Humidity:        roundedInt(cur.Humidity),
		PressureMb:      cur.PressureMb,
		CloudPct:        roundedInt(cur.Cloud),
	}, nil
}

func roundedInt(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}
