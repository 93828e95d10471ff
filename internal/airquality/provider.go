package airquality

import (
	"context"
)

// Fetcher abstracts the upstream source of raw weather and pollution payloads
// (e.g. OpenWeatherMap).
type Fetcher interface {
	Name() string
	FetchWeather(ctx context.Context, at Coordinate) (WeatherPayload, error)
	FetchPollution(ctx context.Context, at Coordinate) (PollutionPayload, error)
}

// Sink is the contract the persistence layer must satisfy. Persist appends
// all readings and alerts of one batch or none of them.
type Sink interface {
	EnsureSchema(ctx context.Context) error
	Persist(ctx context.Context, readings []SensorSample, alerts []AlertRecord) (LoadResult, error)
}

// ReadingStore is the read side used by the HTTP API.
type ReadingStore interface {
	RecentReadings(ctx context.Context, limit int) ([]SensorSample, error)
	RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AlertPublisher forwards committed alerts to downstream consumers.
type AlertPublisher interface {
	Publish(ctx context.Context, tickID string, alerts []AlertRecord) error
}

// TickRecorder observes tick outcomes (metrics).
type TickRecorder interface {
	RecordTick(result TickResult)
	RecordPublishFailure()
}
