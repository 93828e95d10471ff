package airquality

import (
	"fmt"
	"time"
)

// Coordinate is the fixed geographic point the pipeline observes.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// String returns "lat,lon" with four decimals, used in logs.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// SensorSample is one fetched observation plus the fields derived by the Enricher.
type SensorSample struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Weather     string    `json:"weather"`

	// AQIIndex is nil when the upstream record carried no index.
	AQIIndex *int    `json:"aqi_index"`
	PM25     float64 `json:"pm2_5"`
	PM10     float64 `json:"pm10"`
	NO2      float64 `json:"no2"`
	O3       float64 `json:"o3"`
	CO       float64 `json:"co"`

	// Derived.
	AQICategory   *string `json:"aqi_category"`
	AQIChange     float64 `json:"aqi_change"`
	SpikeDetected bool    `json:"spike_detected"`
}

// AlertRecord is the projection of a SensorSample on which a spike was detected.
type AlertRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	AQIIndex    int       `json:"aqi_index"`
	AQIChange   float64   `json:"aqi_change"`
	AQICategory *string   `json:"aqi_category"`
}

// EnrichedBatch is the output of one enrichment pass.
type EnrichedBatch struct {
	Readings []SensorSample `json:"readings"`
	Alerts   []AlertRecord  `json:"alerts"`
}

// LoadResult reports how many rows a sink appended for one batch.
type LoadResult struct {
	Readings int `json:"readings"`
	Alerts   int `json:"alerts"`
}

// IntPtr is a small helper for building samples with a known index.
func IntPtr(v int) *int { return &v }
