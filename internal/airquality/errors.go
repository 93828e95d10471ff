package airquality

import (
	"errors"
	"fmt"
)

// Stage errors. Every failure returned by a pipeline stage wraps exactly one of these.
var (
	ErrFetch            = errors.New("fetch failed")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrEnrichment       = errors.New("enrichment failed")
	ErrLoad             = errors.New("load failed")
)

// StatusError carries the HTTP status of a failed upstream call.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Endpoint, e.StatusCode)
}

// Stage names a pipeline stage for logging and metrics.
type Stage string

const (
	StageNone     Stage = ""
	StageFetch    Stage = "fetch"
	StageAssemble Stage = "assemble"
	StageEnrich   Stage = "enrich"
	StageLoad     Stage = "load"
)

// StageOf maps an error to the stage that produced it.
func StageOf(err error) Stage {
	switch {
	case err == nil:
		return StageNone
	case errors.Is(err, ErrMalformedPayload):
		return StageAssemble
	case errors.Is(err, ErrFetch):
		return StageFetch
	case errors.Is(err, ErrEnrichment):
		return StageEnrich
	case errors.Is(err, ErrLoad):
		return StageLoad
	default:
		return Stage("unknown")
	}
}
