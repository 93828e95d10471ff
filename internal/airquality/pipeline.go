package airquality

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TickResult summarises one pipeline invocation.
type TickResult struct {
	TickID     string     `json:"tickId"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Samples    int        `json:"samples"`
	Loaded     LoadResult `json:"loaded"`
	Stage      Stage      `json:"failedStage,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Succeeded reports whether the tick completed all stages.
func (r TickResult) Succeeded() bool {
	return r.Error == ""
}

// Duration is the wall time of the tick.
func (r TickResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline runs Fetcher -> Assemble -> Enrich -> Sink for a fixed coordinate.
type Pipeline struct {
	fetcher   Fetcher
	sink      Sink
	enricher  Enricher
	at        Coordinate
	publisher AlertPublisher
	recorder  TickRecorder
	now       func() time.Time

	mu   sync.RWMutex
	last *TickResult
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithPublisher forwards each committed batch's alerts to pub.
func WithPublisher(pub AlertPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithRecorder reports tick outcomes to rec.
func WithRecorder(rec TickRecorder) Option {
	return func(p *Pipeline) { p.recorder = rec }
}

// WithClock overrides the capture clock.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a new Pipeline.
func NewPipeline(fetcher Fetcher, sink Sink, enricher Enricher, at Coordinate, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  fetcher,
		sink:     sink,
		enricher: enricher,
		at:       at,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RunTick executes one full pass. Each stage fails fast; a failed tick
// writes nothing and the returned error wraps the failing stage's sentinel.
func (p *Pipeline) RunTick(ctx context.Context) (TickResult, error) {
	result := TickResult{
		TickID:    uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	loaded, samples, err := p.run(ctx, result.TickID)
	result.FinishedAt = time.Now().UTC()
	result.Samples = samples
	result.Loaded = loaded
	if err != nil {
		result.Stage = StageOf(err)
		result.Error = err.Error()
		log.Printf("ERROR: tick %s failed at %s stage: %v", result.TickID, result.Stage, err)
	} else {
		log.Printf("INFO: tick %s stored %d readings, %d alerts in %s",
			result.TickID, loaded.Readings, loaded.Alerts, result.Duration())
	}

	p.mu.Lock()
	p.last = &result
	p.mu.Unlock()

	if p.recorder != nil {
		p.recorder.RecordTick(result)
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, tickID string) (LoadResult, int, error) {
	if p.fetcher == nil {
		return LoadResult{}, 0, fmt.Errorf("%w: no fetcher configured", ErrFetch)
	}
	if p.sink == nil {
		return LoadResult{}, 0, fmt.Errorf("%w: no sink configured", ErrLoad)
	}

	log.Printf("DEBUG: tick %s fetching from %s for %s", tickID, p.fetcher.Name(), p.at)
	w, pol, err := FetchBoth(ctx, p.fetcher, p.at)
	if err != nil {
		return LoadResult{}, 0, err
	}

	sample, err := Assemble(w, pol, p.now())
	if err != nil {
		// A payload that cannot be assembled is an extract failure as well.
		return LoadResult{}, 0, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	batch, err := p.enricher.Enrich([]SensorSample{sample})
	if err != nil {
		return LoadResult{}, 1, err
	}

	loaded, err := p.sink.Persist(ctx, batch.Readings, batch.Alerts)
	if err != nil {
		if !errors.Is(err, ErrLoad) {
			err = fmt.Errorf("%w: %v", ErrLoad, err)
		}
		return LoadResult{}, len(batch.Readings), err
	}

	// Rows are committed; a publish failure is reported but does not fail the tick.
	if p.publisher != nil && len(batch.Alerts) > 0 {
		if perr := p.publisher.Publish(ctx, tickID, batch.Alerts); perr != nil {
			log.Printf("ERROR: tick %s publishing %d alerts: %v", tickID, len(batch.Alerts), perr)
			if p.recorder != nil {
				p.recorder.RecordPublishFailure()
			}
		}
	}

	return loaded, len(batch.Readings), nil
}

// LastTick returns the most recent tick result, if any tick has run.
func (p *Pipeline) LastTick() (TickResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return TickResult{}, false
	}
	return *p.last, true
}

// FetchBoth issues the weather and pollution requests concurrently and waits
// for both. Any failure is returned wrapped in ErrFetch.
func FetchBoth(ctx context.Context, f Fetcher, at Coordinate) (WeatherPayload, PollutionPayload, error) {
	var (
		wg     sync.WaitGroup
		w      WeatherPayload
		pol    PollutionPayload
		errW   error
		errPol error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		w, errW = f.FetchWeather(ctx, at)
	}()
	go func() {
		defer wg.Done()
		pol, errPol = f.FetchPollution(ctx, at)
	}()
	wg.Wait()

	if err := errors.Join(errW, errPol); err != nil {
		if !errors.Is(err, ErrFetch) {
			err = fmt.Errorf("%w: %w", ErrFetch, err)
		}
		return WeatherPayload{}, PollutionPayload{}, err
	}
	return w, pol, nil
}
