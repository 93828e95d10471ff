package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

var lagos = airquality.Coordinate{Lat: 6.5244, Lon: 3.3792}

func newTestServer(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		assert.Equal(t, "6.5244", q.Get("lat"))
		assert.Equal(t, "3.3792", q.Get("lon"))
		assert.Equal(t, "secret", q.Get("appid"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch r.URL.Path {
		case "/data/2.5/weather":
			assert.Equal(t, "metric", q.Get("units"))
			_, _ = w.Write([]byte(`{"main":{"temp":29.5,"humidity":78},"weather":[{"description":"light rain"}]}`))
		case "/data/2.5/air_pollution":
			_, _ = w.Write([]byte(`{"list":[{"main":{"aqi":3},"components":{"pm2_5":12.1,"pm10":20.4,"no2":5.2,"o3":60.3,"co":230.5}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestOpenWeatherProviderFetchesBothEndpoints(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusOK)
	p := NewOpenWeatherProvider(srv.Client(), "secret", WithBaseURL(srv.URL))

	w, pol, err := airquality.FetchBoth(context.Background(), p, lagos)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(hits))

	sample, err := airquality.Assemble(w, pol, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 29.5, sample.Temperature)
	assert.Equal(t, "light rain", sample.Weather)
	require.NotNil(t, sample.AQIIndex)
	assert.Equal(t, 3, *sample.AQIIndex)
	assert.Equal(t, 230.5, sample.CO)
}

func TestOpenWeatherProviderStatusError(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusUnauthorized)
	p := NewOpenWeatherProvider(srv.Client(), "secret", WithBaseURL(srv.URL),
		WithBackoff(BackoffConfig{MaxRetries: 3, InitialInterval: time.Millisecond}))

	_, err := p.FetchWeather(context.Background(), lagos)
	require.Error(t, err)
	assert.True(t, errors.Is(err, airquality.ErrFetch))

	var se *airquality.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	// 4xx is not retried.
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestOpenWeatherProviderRetriesServerErrors(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusServiceUnavailable)
	p := NewOpenWeatherProvider(srv.Client(), "secret", WithBaseURL(srv.URL),
		WithBackoff(BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond}))

	_, err := p.FetchPollution(context.Background(), lagos)
	require.ErrorIs(t, err, airquality.ErrFetch)
	assert.EqualValues(t, 3, atomic.LoadInt32(hits))
}

func TestOpenWeatherProviderNoRetryByDefault(t *testing.T) {
	srv, hits := newTestServer(t, http.StatusInternalServerError)
	p := NewOpenWeatherProvider(srv.Client(), "secret", WithBaseURL(srv.URL))

	_, err := p.FetchPollution(context.Background(), lagos)
	require.ErrorIs(t, err, airquality.ErrFetch)
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))
}

func TestOpenWeatherProviderRequiresAPIKey(t *testing.T) {
	p := NewOpenWeatherProvider(http.DefaultClient, "")

	_, err := p.FetchWeather(context.Background(), lagos)
	require.ErrorIs(t, err, airquality.ErrFetch)
}
