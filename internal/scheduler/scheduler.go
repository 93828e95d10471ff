package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/air-quality-etl/internal/airquality"
)

// TickRunner is the unit of work executed on every tick.
type TickRunner interface {
	RunTick(ctx context.Context) (airquality.TickResult, error)
}

// Scheduler periodically runs the air quality pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    TickRunner
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(interval, timeout time.Duration, runner TickRunner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first tick runs immediately. Ticks never overlap: a tick still running when
// the next one is due causes that run to be skipped.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) tick() {
	log.Println("scheduler: running air quality tick")

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	res, err := s.runner.RunTick(ctx)
	if err != nil {
		log.Printf("scheduler: tick %s failed: %v", res.TickID, err)
		return
	}
	log.Printf("scheduler: completed tick %s", res.TickID)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
