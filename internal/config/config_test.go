package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

var configKeys = []string{
	"AQ_LATITUDE", "AQ_LONGITUDE", "OPENWEATHER_API_KEY", "OPENWEATHER_BASE_URL",
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	"SCHEDULE_INTERVAL", "TICK_TIMEOUT", "HTTP_TIMEOUT", "FETCH_MAX_RETRIES",
	"SPIKE_THRESHOLD", "AQI_CATEGORIES", "KAFKA_BROKERS", "KAFKA_ALERT_TOPIC",
	"STORE_MAX_HISTORY", "STORE_MAX_AGE", "PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	t.Setenv("OPENWEATHER_API_KEY", "test-key")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, airquality.Coordinate{Lat: 6.5244, Lon: 3.3792}, cfg.Coordinate)
	assert.Equal(t, 5*time.Minute, cfg.ScheduleInterval)
	assert.Equal(t, 2.0, cfg.SpikeThreshold)
	assert.Equal(t, airquality.DefaultCategories(), cfg.Categories)
	assert.False(t, cfg.DB.Enabled())
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "aqi-alerts", cfg.KafkaAlertTopic)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AQ_LATITUDE", "52.52")
	t.Setenv("AQ_LONGITUDE", "13.405")
	t.Setenv("SCHEDULE_INTERVAL", "30s")
	t.Setenv("SPIKE_THRESHOLD", "1.5")
	t.Setenv("AQI_CATEGORIES", "1=Low, 2=High")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "p@ss")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 52.52, cfg.Coordinate.Lat)
	assert.Equal(t, 30*time.Second, cfg.ScheduleInterval)
	assert.Equal(t, 1.5, cfg.SpikeThreshold)
	assert.Equal(t, airquality.CategoryTable{1: "Low", 2: "High"}, cfg.Categories)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "postgres://postgres:p%40ss@db:5432/air_quality_db?sslmode=disable", cfg.DB.DSN())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SPIKE_THRESHOLD":   "0",
		"SCHEDULE_INTERVAL": "soon",
		"AQ_LATITUDE":       "95",
		"AQI_CATEGORIES":    "1:Good",
		"DB_SSLMODE":        "sometimes",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseCategories(t *testing.T) {
	table, err := ParseCategories("1=Good,2=Fair,3=Moderate,4=Poor,5=Very Poor")
	require.NoError(t, err)
	assert.Equal(t, airquality.DefaultCategories(), table)
	assert.Equal(t, "1=Good,2=Fair,3=Moderate,4=Poor,5=Very Poor", FormatCategories(table))

	for _, bad := range []string{"", "x=Good", "1=", "1=Good,1=Fair"} {
		_, err := ParseCategories(bad)
		assert.Error(t, err, bad)
	}
}
