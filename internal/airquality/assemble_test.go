package airquality

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	weatherJSON   = `{"main":{"temp":31.2,"humidity":70},"weather":[{"description":"scattered clouds"},{"description":"haze"}]}`
	pollutionJSON = `{"list":[{"main":{"aqi":4},"components":{"pm2_5":55.1,"pm10":80.2,"no2":14.5,"o3":90,"co":400.5}},{"main":{"aqi":1},"components":{"pm2_5":1,"pm10":1,"no2":1,"o3":1,"co":1}}]}`
)

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestAssembleMergesPayloads(t *testing.T) {
	w := decode[WeatherPayload](t, weatherJSON)
	p := decode[PollutionPayload](t, pollutionJSON)
	now := time.Date(2024, 6, 1, 13, 0, 0, 0, time.FixedZone("WAT", 3600))

	s, err := Assemble(w, p, now)
	require.NoError(t, err)

	assert.Equal(t, now.UTC(), s.Timestamp)
	assert.Equal(t, time.UTC, s.Timestamp.Location())
	assert.Equal(t, 31.2, s.Temperature)
	assert.Equal(t, 70.0, s.Humidity)
	assert.Equal(t, "scattered clouds", s.Weather)
	require.NotNil(t, s.AQIIndex)
	assert.Equal(t, 4, *s.AQIIndex, "only the first pollution entry is used")
	assert.Equal(t, 55.1, s.PM25)
	assert.Equal(t, 80.2, s.PM10)
	assert.Equal(t, 14.5, s.NO2)
	assert.Equal(t, 90.0, s.O3)
	assert.Equal(t, 400.5, s.CO)
	assert.Nil(t, s.AQICategory)
}

func TestAssembleZeroValuesAreNotMissing(t *testing.T) {
	w := decode[WeatherPayload](t, `{"main":{"temp":0,"humidity":0},"weather":[{"description":""}]}`)
	p := decode[PollutionPayload](t, `{"list":[{"main":{"aqi":1},"components":{"pm2_5":0,"pm10":0,"no2":0,"o3":0,"co":0}}]}`)

	_, err := Assemble(w, p, time.Now())
	assert.NoError(t, err)
}

func TestAssembleMissingKeys(t *testing.T) {
	cases := []struct {
		name      string
		weather   string
		pollution string
		wantPath  string
	}{
		{"no main", `{"weather":[{"description":"x"}]}`, pollutionJSON, "main.temp"},
		{"no humidity", `{"main":{"temp":1},"weather":[{"description":"x"}]}`, pollutionJSON, "main.humidity"},
		{"empty weather", `{"main":{"temp":1,"humidity":2},"weather":[]}`, pollutionJSON, "weather[0].description"},
		{"empty list", weatherJSON, `{"list":[]}`, "list[0]"},
		{"no aqi", weatherJSON, `{"list":[{"main":{},"components":{"pm2_5":1,"pm10":1,"no2":1,"o3":1,"co":1}}]}`, "list[0].main.aqi"},
		{"no co", weatherJSON, `{"list":[{"main":{"aqi":2},"components":{"pm2_5":1,"pm10":1,"no2":1,"o3":1}}]}`, "list[0].components.co"},
		{"no components", weatherJSON, `{"list":[{"main":{"aqi":2}}]}`, "list[0].components.pm2_5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := decode[WeatherPayload](t, tc.weather)
			p := decode[PollutionPayload](t, tc.pollution)

			_, err := Assemble(w, p, time.Now())
			require.ErrorIs(t, err, ErrMalformedPayload)
			assert.Contains(t, err.Error(), tc.wantPath)
			assert.Equal(t, StageAssemble, StageOf(err))
		})
	}
}
