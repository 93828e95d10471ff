package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

const defaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider implements airquality.Fetcher against the OpenWeatherMap
// current-weather and air-pollution endpoints.
type OpenWeatherProvider struct {
	name             string
	apiKey           string
	baseURL          string
	httpCfg          HTTPClientConfig
	weatherCircuit   *gobreaker.CircuitBreaker
	pollutionCircuit *gobreaker.CircuitBreaker
}

// OpenWeatherOption customises an OpenWeatherProvider.
type OpenWeatherOption func(*OpenWeatherProvider)

// WithBaseURL points the provider at a different API root (tests, proxies).
func WithBaseURL(base string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		if base != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithBackoff enables retries on 429/5xx and transport errors.
func WithBackoff(b BackoffConfig) OpenWeatherOption {
	return func(p *OpenWeatherProvider) { p.httpCfg.Backoff = b }
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, opts ...OpenWeatherOption) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: defaultOpenWeatherBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      0,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		weatherCircuit:   newBreaker("openweather-weather"),
		pollutionCircuit: newBreaker("openweather-air-pollution"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// FetchWeather calls /data/2.5/weather with metric units.
func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, at airquality.Coordinate) (airquality.WeatherPayload, error) {
	var payload airquality.WeatherPayload
	extra := url.Values{}
	extra.Set("units", "metric")
	if err := p.getJSON(ctx, p.weatherCircuit, "/data/2.5/weather", at, extra, &payload); err != nil {
		return airquality.WeatherPayload{}, err
	}
	return payload, nil
}

// FetchPollution calls /data/2.5/air_pollution.
func (p *OpenWeatherProvider) FetchPollution(ctx context.Context, at airquality.Coordinate) (airquality.PollutionPayload, error) {
	var payload airquality.PollutionPayload
	if err := p.getJSON(ctx, p.pollutionCircuit, "/data/2.5/air_pollution", at, nil, &payload); err != nil {
		return airquality.PollutionPayload{}, err
	}
	return payload, nil
}

func (p *OpenWeatherProvider) getJSON(
	ctx context.Context,
	cb *gobreaker.CircuitBreaker,
	path string,
	at airquality.Coordinate,
	extra url.Values,
	out any,
) error {
	if p.apiKey == "" {
		return fmt.Errorf("%w: openweather api key is not configured", airquality.ErrFetch)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(at.Lon, 'f', -1, 64))
		values.Set("appid", p.apiKey)
		for k, vs := range extra {
			for _, v := range vs {
				values.Add(k, v)
			}
		}

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, buildRequest)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", airquality.ErrFetch, path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode body: %v", airquality.ErrFetch, path, err)
	}
	return nil
}

var _ airquality.Fetcher = (*OpenWeatherProvider)(nil)
