package airquality

import (
	"fmt"
	"math"
	"sort"
)

// CategoryTable maps an AQI index to its human-readable category.
type CategoryTable map[int]string

// DefaultCategories is the OpenWeatherMap 1..5 AQI scale.
func DefaultCategories() CategoryTable {
	return CategoryTable{
		1: "Good",
		2: "Fair",
		3: "Moderate",
		4: "Poor",
		5: "Very Poor",
	}
}

// DefaultSpikeThreshold is the absolute AQI change that counts as a spike.
const DefaultSpikeThreshold = 2.0

// Enricher derives AQI category, change and spike flags for a batch of samples.
// It holds no state between calls.
type Enricher struct {
	Categories     CategoryTable
	SpikeThreshold float64
}

// NewEnricher returns an Enricher, falling back to the defaults for a nil
// table or a non-positive threshold.
func NewEnricher(categories CategoryTable, threshold float64) Enricher {
	if categories == nil {
		categories = DefaultCategories()
	}
	if threshold <= 0 {
		threshold = DefaultSpikeThreshold
	}
	return Enricher{Categories: categories, SpikeThreshold: threshold}
}

// Enrich sorts the batch by timestamp (stable), derives the AQI fields and
// splits out the spike alerts. The input slice is left untouched. Either the
// whole batch is enriched or an ErrEnrichment error is returned.
func (e Enricher) Enrich(samples []SensorSample) (EnrichedBatch, error) {
	if len(samples) == 0 {
		return EnrichedBatch{}, fmt.Errorf("%w: empty batch", ErrEnrichment)
	}
	for i, s := range samples {
		if s.AQIIndex == nil {
			return EnrichedBatch{}, fmt.Errorf("%w: sample %d has no aqi_index", ErrEnrichment, i)
		}
	}

	readings := make([]SensorSample, len(samples))
	copy(readings, samples)
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	alerts := make([]AlertRecord, 0)
	for i := range readings {
		r := &readings[i]
		idx := *r.AQIIndex

		r.AQICategory = nil
		if name, ok := e.Categories[idx]; ok {
			r.AQICategory = &name
		}

		r.AQIChange = 0
		if i > 0 {
			r.AQIChange = float64(idx - *readings[i-1].AQIIndex)
		}
		r.SpikeDetected = e.isSpike(r.AQIChange)

		if r.SpikeDetected {
			alerts = append(alerts, AlertRecord{
				Timestamp:   r.Timestamp,
				AQIIndex:    idx,
				AQIChange:   r.AQIChange,
				AQICategory: r.AQICategory,
			})
		}
	}

	return EnrichedBatch{Readings: readings, Alerts: alerts}, nil
}

func (e Enricher) isSpike(change float64) bool {
	return math.Abs(change) >= e.SpikeThreshold
}
