package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

var validate = validator.New()

// DBParams holds the postgres connection settings. An empty URL and Host
// selects the in-memory sink.
type DBParams struct {
	URL      string
	Host     string
	Port     int `validate:"omitempty,min=1,max=65535"`
	Name     string
	User     string
	Password string
	SSLMode  string `validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// Enabled reports whether a database has been configured.
func (d DBParams) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns the connection string, preferring an explicit URL.
func (d DBParams) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type AppConfig struct {
	Coordinate        airquality.Coordinate
	OpenWeatherAPIKey string `validate:"required"`
	OpenWeatherURL    string `validate:"required,url"`

	DB DBParams

	// ScheduleInterval controls how often a tick runs.
	ScheduleInterval time.Duration `validate:"gt=0"`
	TickTimeout      time.Duration `validate:"gt=0"`
	HTTPTimeout      time.Duration `validate:"gt=0"`
	FetchMaxRetries  int           `validate:"gte=0,lte=10"`

	SpikeThreshold float64                  `validate:"gt=0"`
	Categories     airquality.CategoryTable `validate:"required,min=1"`

	KafkaBrokers    []string
	KafkaAlertTopic string

	// In-memory sink retention.
	StoreMaxHistory int           // max rows per table (0 = unlimited)
	StoreMaxAge     time.Duration // max age of rows (0 = unlimited)

	Port string `validate:"required,numeric"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	if cfg.Coordinate.Lat, err = getenvFloat("AQ_LATITUDE", 6.5244); err != nil {
		return nil, err
	}
	if cfg.Coordinate.Lon, err = getenvFloat("AQ_LONGITUDE", 3.3792); err != nil {
		return nil, err
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")

	cfg.DB = DBParams{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     os.Getenv("DB_HOST"),
		Port:     getenvInt("DB_PORT", 5432),
		Name:     getenvDefault("DB_NAME", "air_quality_db"),
		User:     getenvDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
	}

	// Tick interval: default 5 minutes.
	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", "5m"); err != nil {
		return nil, err
	}
	if cfg.TickTimeout, err = getenvDuration("TICK_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)

	if cfg.SpikeThreshold, err = getenvFloat("SPIKE_THRESHOLD", airquality.DefaultSpikeThreshold); err != nil {
		return nil, err
	}

	cfg.Categories = airquality.DefaultCategories()
	if raw := os.Getenv("AQI_CATEGORIES"); raw != "" {
		if cfg.Categories, err = ParseCategories(raw); err != nil {
			return nil, err
		}
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaAlertTopic = getenvDefault("KAFKA_ALERT_TOPIC", "aqi-alerts")

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 288) // 24h at 5-minute ticks
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseCategories parses "1=Good,2=Fair" into a category table.
func ParseCategories(raw string) (airquality.CategoryTable, error) {
	table := airquality.CategoryTable{}
	for _, pair := range splitList(raw) {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid AQI_CATEGORIES entry %q: want index=name", pair)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("invalid AQI_CATEGORIES index %q: %w", k, err)
		}
		name := strings.TrimSpace(v)
		if name == "" {
			return nil, fmt.Errorf("invalid AQI_CATEGORIES entry %q: empty name", pair)
		}
		if _, dup := table[idx]; dup {
			return nil, fmt.Errorf("invalid AQI_CATEGORIES: index %d listed twice", idx)
		}
		table[idx] = name
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("invalid AQI_CATEGORIES: no entries")
	}
	return table, nil
}

// FormatCategories is the inverse of ParseCategories, ordered by index.
func FormatCategories(t airquality.CategoryTable) string {
	keys := make([]int, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d=%s", k, t[k]))
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
